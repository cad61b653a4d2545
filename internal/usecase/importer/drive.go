package importer

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// Section headings of a drive export
const (
	headingEnhancedNotes  = "## Enhanced Notes"
	headingMyNotes        = "## My Notes"
	headingFullTranscript = "## Full Transcript"
)

var (
	// "[<stamp>] <title> - <a> - <b>.txt"
	driveFileName = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+?)\s*-\s*(.+?)\s*-\s*(.+)\.(?:txt|md)$`)
	noteIDInLink  = regexp.MustCompile(`/d/([a-f0-9-]+)`)
	creatorLabel  = regexp.MustCompile(`^([^(]+)\s*\(([^)]+)\)`)
	attendeeNames = regexp.MustCompile(`name:\s*(.+?)(?:\s+email:|,|$)`)

	// Lines inside the notes sections that repeat the header
	sectionNoise = []string{"**Date:**", "**Creator:**", "**Calendar Event:**", "**Attendees:**", "**Granola Note ID:**"}
	// Footer lines appended by the sync automation
	transcriptNoise = []string{"Original Granola Link:", "Synced via Zapier:"}
)

// DriveExportImporter reads note-tool exports synced to a shared drive: a
// fenced JSON metadata block (or bold markdown labels) followed by Enhanced
// Notes, My Notes and Full Transcript sections.
type DriveExportImporter struct {
	now func() time.Time
}

// NewDriveExportImporter creates a drive export importer using the wall clock
func NewDriveExportImporter() *DriveExportImporter {
	return &DriveExportImporter{now: time.Now}
}

func (d *DriveExportImporter) Source() entities.TranscriptSource {
	return entities.SourceGranolaDrive
}

func (d *DriveExportImporter) Parse(name string, raw []byte) (*entities.Transcript, error) {
	text, err := decode(raw)
	if err != nil {
		return nil, &ParseError{Path: name, Format: d.Source(), Err: err}
	}

	lines := splitLines(text)
	meta := extractDriveMetadata(lines)
	file := parseDriveFileName(filepath.Base(name))

	meetingID := metaString(meta, "granola_note_id")
	if meetingID == "" {
		meetingID = meetingIDFromName(name)
	}
	t := entities.NewTranscript(meetingID, entities.SourceGranolaDrive)

	t.EnhancedNotes = extractUntilAny(lines, headingEnhancedNotes, headingMyNotes, headingFullTranscript)
	t.MyNotes = ExtractSection(lines, headingMyNotes, headingFullTranscript)
	t.FullTranscript = ExtractSection(lines, headingFullTranscript, "")

	t.GranolaNoteID = metaString(meta, "granola_note_id")
	t.Title = metaString(meta, "title")
	t.CreatorName = metaString(meta, "creator_name")
	t.CreatorEmail = metaString(meta, "creator_email")
	t.CalendarEventTitle = metaString(meta, "calendar_event_title")
	t.CalendarEventID = metaString(meta, "calendar_event_id")
	t.GranolaLink = metaString(meta, "granola_link")
	t.FileCreatedTimestamp = metaInt(meta, "file_created_timestamp")
	t.ZapierStepID = metaInt(meta, "zapier_step_id")

	eventTime := metaString(meta, "calendar_event_time")
	if ts, ok := parseTimestamp(eventTime); ok {
		t.CalendarEventTime = &ts
	}

	title := t.Title
	if title == "" {
		title = file.title
	}
	t.Company = CompanyFromLabels(splitLines(t.EnhancedNotes), notesLabelScanLines)
	if t.Company == "" {
		t.Company = CompanyFromTitle(title)
	}

	t.Date, t.DateInferred = resolveDate(d.now, eventTime, file.stamp, file.trailer, title)

	t.Participants = attendeesFromValue(meta["attendees"])
	if len(t.Participants) == 0 {
		t.Participants = FindParticipants(lines, headerScanLines)
	}

	t.Notes = append(t.Notes, contentNotes(t.EnhancedNotes)...)
	t.Notes = append(t.Notes, contentNotes(t.MyNotes)...)
	t.Notes = append(t.Notes, transcriptNotes(t.FullTranscript)...)

	return finish(name, t)
}

type driveFile struct {
	stamp   string
	title   string
	trailer string
}

func parseDriveFileName(base string) driveFile {
	if m := driveFileName.FindStringSubmatch(base); m != nil {
		return driveFile{stamp: m[1], title: m[2], trailer: m[4]}
	}

	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(stem, " - ")
	f := driveFile{title: stem}
	if len(parts) > 1 {
		f.stamp = strings.Trim(parts[0], "[] ")
		f.title = parts[1]
	}
	if len(parts) > 2 {
		f.trailer = parts[len(parts)-1]
	}
	return f
}

// extractDriveMetadata reads the fenced JSON block, falling back to the
// bold-label header when the block is absent or still invalid after repair.
func extractDriveMetadata(lines []string) map[string]interface{} {
	start, end := -1, -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "```json" && start < 0 {
			start = i + 1
		} else if trimmed == "```" && start >= 0 {
			end = i
			break
		}
	}

	if start >= 0 && end >= 0 {
		if meta, err := parseMetadataJSON(strings.Join(lines[start:end], "\n")); err == nil {
			return meta
		}
	}
	return markdownLabelMetadata(lines)
}

// markdownLabelMetadata scans "**Label:** value" lines above the first
// section heading.
func markdownLabelMetadata(lines []string) map[string]interface{} {
	meta := map[string]interface{}{}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "## ") {
			break
		}

		switch {
		case strings.HasPrefix(line, "**Creator:**"):
			value := strings.TrimSpace(strings.TrimPrefix(line, "**Creator:**"))
			if m := creatorLabel.FindStringSubmatch(value); m != nil {
				meta["creator_name"] = strings.TrimSpace(m[1])
				meta["creator_email"] = strings.TrimSpace(m[2])
			} else {
				meta["creator_name"] = value
			}

		case strings.HasPrefix(line, "**Date:**"):
			meta["calendar_event_time"] = strings.TrimSpace(strings.TrimPrefix(line, "**Date:**"))

		case strings.HasPrefix(line, "**Meeting Link:**"):
			link := strings.TrimSpace(strings.TrimPrefix(line, "**Meeting Link:**"))
			meta["granola_link"] = link
			if m := noteIDInLink.FindStringSubmatch(link); m != nil {
				meta["granola_note_id"] = m[1]
			}

		case strings.HasPrefix(line, "**Attendees:**"):
			block := []string{strings.TrimSpace(strings.TrimPrefix(line, "**Attendees:**"))}
			for i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if strings.HasPrefix(next, "**") || strings.HasPrefix(next, "##") {
					break
				}
				i++
				block = append(block, next)
			}
			meta["attendees"] = strings.Join(attendeesFromBlock(block), ", ")
		}
	}

	if len(lines) > 0 {
		if first := strings.TrimSpace(lines[0]); strings.HasPrefix(first, "# ") {
			meta["title"] = strings.TrimSpace(strings.TrimPrefix(first, "# "))
		}
	}
	return meta
}

// attendeesFromBlock pairs "email:" and "name:" lines; an attendee needs both
func attendeesFromBlock(block []string) []string {
	var (
		names       []string
		name, email string
	)
	flush := func() {
		if name != "" && email != "" {
			names = append(names, name)
		}
		name, email = "", ""
	}
	for _, line := range block {
		switch {
		case strings.HasPrefix(line, "email:"):
			flush()
			email = strings.TrimSpace(strings.TrimPrefix(line, "email:"))
		case strings.HasPrefix(line, "name:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "name:"))
		}
	}
	flush()
	return names
}

// attendeesFromValue accepts a delimited string, a flattened
// "email: x name: y" string, or a list of strings or objects.
func attendeesFromValue(v interface{}) []string {
	switch val := v.(type) {
	case string:
		if strings.Contains(val, "name:") {
			var names []string
			for _, m := range attendeeNames.FindAllStringSubmatch(val, -1) {
				if n := strings.TrimSpace(m[1]); n != "" {
					names = append(names, n)
				}
			}
			return names
		}
		return SplitParticipants(val)
	case []interface{}:
		var names []string
		for _, item := range val {
			switch a := item.(type) {
			case string:
				if s := strings.TrimSpace(a); s != "" {
					names = append(names, s)
				}
			case map[string]interface{}:
				if n := metaString(a, "name"); n != "" {
					names = append(names, n)
				} else if e := metaString(a, "email"); e != "" {
					names = append(names, e)
				}
			}
		}
		return names
	}
	return nil
}

// contentNotes turns an enhanced-notes or my-notes section into speakerless notes
func contentNotes(section string) []entities.Note {
	var notes []entities.Note
	for _, line := range splitLines(section) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "---") {
			continue
		}
		if containsAny(line, sectionNoise) || strings.HasPrefix(line, "Chat with meeting transcript:") {
			continue
		}
		notes = append(notes, entities.NewNote("", "", stripBullet(line)))
	}
	return notes
}

// transcriptNotes parses the full transcript section, keeping speakers
func transcriptNotes(section string) []entities.Note {
	var notes []entities.Note
	for _, line := range splitLines(section) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "---") || containsAny(line, transcriptNoise) {
			continue
		}
		if strings.HasPrefix(line, "*") {
			continue
		}
		if note, ok := ParseNoteLine(line); ok {
			notes = append(notes, note)
		}
	}
	return notes
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func metaString(meta map[string]interface{}, key string) string {
	switch v := meta[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func metaInt(meta map[string]interface{}, key string) *int64 {
	var (
		n   int64
		err error
	)
	switch v := meta[key].(type) {
	case json.Number:
		n, err = v.Int64()
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float64:
		n = int64(v)
	case int:
		n = int64(v)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &n
}

// parseTimestamp keeps the full instant for metadata passthrough
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
