package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// Content types detected in a payload body
const (
	contentHTML      = "html"
	contentMarkdown  = "markdown"
	contentPlaintext = "plaintext"
)

// ZapierImporter maps automation payloads onto transcripts. Field names are
// resolved through a FieldMapping; the body is handed to the matching
// format importer.
type ZapierImporter struct {
	now     func() time.Time
	mapping *FieldMapping

	plaintext *PlaintextImporter
	markdown  *MarkdownImporter
	html      *HTMLImporter
}

// NewZapierImporter creates a payload importer with its own format importers
func NewZapierImporter(mapping *FieldMapping) *ZapierImporter {
	if mapping == nil {
		mapping = DefaultFieldMapping()
	}
	return &ZapierImporter{
		now:       time.Now,
		mapping:   mapping,
		plaintext: NewPlaintextImporter(),
		markdown:  NewMarkdownImporter(),
		html:      NewHTMLImporter(),
	}
}

func (z *ZapierImporter) Source() entities.TranscriptSource {
	return entities.SourceZapierGranola
}

// Parse decodes a JSON payload file
func (z *ZapierImporter) Parse(name string, raw []byte) (*entities.Transcript, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ParseError{Path: name, Format: z.Source(), Err: ErrEmptyDocument}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, &ParseError{Path: name, Format: z.Source(), Err: fmt.Errorf("invalid payload: %w", err)}
	}

	t, err := z.ParsePayload(payload)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = name
		}
		return nil, err
	}
	return t, nil
}

// ParsePayload builds a transcript from a decoded payload. Unknown keys are
// ignored and a meeting id is always produced.
func (z *ZapierImporter) ParsePayload(payload map[string]interface{}) (*entities.Transcript, error) {
	meetingID := z.field(payload, "meeting_id")
	if meetingID == "" {
		meetingID = "zap-" + z.now().Format("20060102-150405")
	}

	source := entities.TranscriptSource(z.mapping.Default("source", string(entities.SourceZapierGranola)))
	t := entities.NewTranscript(meetingID, source)
	t.Desk = z.field(payload, "desk")
	if t.Desk == "" {
		t.Desk = z.mapping.Default("desk", entities.DefaultDesk)
	}

	t.Title = z.field(payload, "title")
	t.Company = z.field(payload, "company")
	if t.Company == "" && t.Title != "" {
		t.Company = CompanyFromTitle(t.Title)
	}

	t.Date, t.DateInferred = resolveDate(z.now, z.field(payload, "date"))
	t.Participants = z.participants(payload)

	t.EnhancedNotes = z.field(payload, "enhanced_notes")
	t.MyNotes = z.field(payload, "my_notes")
	t.FullTranscript = z.field(payload, "full_transcript")
	t.CreatorName = z.field(payload, "creator_name")
	t.CreatorEmail = z.field(payload, "creator_email")
	t.CalendarEventTitle = z.field(payload, "calendar_event_title")
	t.CalendarEventID = z.field(payload, "calendar_event_id")
	t.GranolaLink = z.field(payload, "granola_link")
	t.GranolaNoteID = metaString(payload, "granola_note_id")
	if ts, ok := parseTimestamp(z.field(payload, "calendar_event_time")); ok {
		t.CalendarEventTime = &ts
	}
	for _, key := range z.mapping.Candidates("zapier_step_id") {
		if id := metaInt(payload, key); id != nil {
			t.ZapierStepID = id
			break
		}
	}

	content := z.field(payload, "content")
	t.Notes = z.bodyNotes(meetingID, content)
	if len(t.Notes) == 0 && t.FullTranscript != "" {
		t.Notes = transcriptNotes(t.FullTranscript)
	}

	if err := t.Validate(); err != nil {
		return nil, &ParseError{Path: meetingID, Format: t.Source, Err: err}
	}
	return t, nil
}

// field returns the first non-empty candidate value for a logical field
func (z *ZapierImporter) field(payload map[string]interface{}, name string) string {
	for _, key := range z.mapping.Candidates(name) {
		switch v := payload[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func (z *ZapierImporter) participants(payload map[string]interface{}) []string {
	for _, key := range z.mapping.Candidates("participants") {
		switch v := payload[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return SplitParticipants(v)
			}
		case []interface{}:
			if names := attendeesFromValue(v); len(names) > 0 {
				return names
			}
		}
	}
	return []string{}
}

// DetectContentType classifies a payload body as html, markdown or plaintext
func DetectContentType(content string) string {
	lower := strings.ToLower(strings.TrimSpace(content))
	if lower == "" {
		return contentPlaintext
	}
	for _, prefix := range []string{"<!doctype", "<html", "<div", "<p"} {
		if strings.HasPrefix(lower, prefix) {
			return contentHTML
		}
	}
	if strings.Contains(content, "</") {
		return contentHTML
	}
	if strings.HasPrefix(lower, "#") || strings.Contains(content, "**") || strings.Contains(content, "##") {
		return contentMarkdown
	}
	return contentPlaintext
}

// bodyNotes runs the matching format importer over a copy of the body
func (z *ZapierImporter) bodyNotes(meetingID, content string) []entities.Note {
	if strings.TrimSpace(content) == "" {
		return []entities.Note{}
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")

	switch DetectContentType(content) {
	case contentHTML:
		t, err := z.html.parseBody(meetingID, content)
		if err != nil {
			return []entities.Note{}
		}
		return t.Notes
	case contentMarkdown:
		return z.markdown.parseBody(meetingID, withSeparator(content)).Notes
	default:
		return z.plaintext.parseBody(meetingID, content).Notes
	}
}

// withSeparator inserts a "---" after the leading header lines of a
// markdown body that has none, so the header is not read as notes.
func withSeparator(content string) string {
	if strings.Contains(content, "---") {
		return content
	}

	lines := splitLines(content)
	split := 0
	for split < len(lines) {
		line := lines[split]
		if !strings.HasPrefix(strings.TrimSpace(line), "#") && !strings.Contains(line, "Participants:") {
			break
		}
		split++
	}

	if split == 0 {
		return "---\n" + content
	}
	return strings.Join(lines[:split], "\n") + "\n---\n" + strings.Join(lines[split:], "\n")
}
