package importer

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

const (
	// headerScanLines bounds label scans over the top of a document
	headerScanLines = 20
	// notesLabelScanLines bounds the company-label scan inside a notes section
	notesLabelScanLines = 10
	maxSpeakerLength    = 60
)

var (
	timestampedLine = regexp.MustCompile(`^\[(\d{1,2}:\d{2}(?::\d{2})?)\]\s*([^:\[\]]+?):\s*(.+)$`)
	attributedLine  = regexp.MustCompile(`^([^:\[\]]+?):\s*(.+)$`)

	isoDate       = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	dateOnlyLine  = regexp.MustCompile(`^\W*\d{4}-\d{2}-\d{2}\W*$`)
	labelLine     = regexp.MustCompile(`(?i)^\W*(date|participants|attendees|company|client|organization|title|creator|desk|meeting link|calendar event|granola note id)\W*:`)
	participantsL = regexp.MustCompile(`(?i)^\W*(?:participants|attendees)\W*:[\s*]*(.*)$`)
	companyL      = regexp.MustCompile(`(?i)^\W*(?:company|client|organization)\W*:[\s*]*(.+)$`)
	bulletPrefix  = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
)

// titleSeparators split a "<Company> - <Subject>" style title
var titleSeparators = []string{" - ", " — ", " – ", "—"}

var companyStoplist = map[string]bool{
	"meeting": true,
	"call":    true,
	"sync":    true,
	"test":    true,
	"notes":   true,
}

func splitLines(text string) []string {
	return strings.Split(text, "\n")
}

// ExtractSection returns the trimmed text strictly between the first line
// equal to start and the first later line equal to end. An empty or absent
// end marker extends the section to the end of the document.
func ExtractSection(lines []string, start, end string) string {
	return extractUntilAny(lines, start, end)
}

// extractUntilAny ends the section at the first later line matching any of
// the end markers.
func extractUntilAny(lines []string, start string, ends ...string) string {
	from := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == start {
			from = i + 1
			break
		}
	}
	if from < 0 {
		return ""
	}

	to := len(lines)
scan:
	for i := from; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		for _, end := range ends {
			if end != "" && trimmed == end {
				to = i
				break scan
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines[from:to], "\n"))
}

// ParseNoteLine classifies one content line. A bracketed timestamp and
// speaker give a timestamped note, a leading "Speaker:" gives an attributed
// note, anything else is kept whole as unattributed text.
func ParseNoteLine(line string) (entities.Note, bool) {
	line = strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
	if line == "" {
		return entities.Note{}, false
	}

	if m := timestampedLine.FindStringSubmatch(line); m != nil && validSpeaker(m[2]) {
		return entities.NewNote(m[1], m[2], m[3]), true
	}
	if m := attributedLine.FindStringSubmatch(line); m != nil && validSpeaker(m[1]) {
		return entities.NewNote("", m[1], m[2]), true
	}
	return entities.NewNote("", "", line), true
}

func validSpeaker(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxSpeakerLength {
		return false
	}
	if strings.Contains(strings.ToLower(s), "http") {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// isMetadataLine reports header lines that never become notes
func isMetadataLine(line, title string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return true
	case strings.HasPrefix(trimmed, "#"):
		return true
	case isSeparator(trimmed):
		return true
	case title != "" && trimmed == title:
		return true
	case dateOnlyLine.MatchString(trimmed):
		return true
	case labelLine.MatchString(trimmed):
		return true
	case strings.HasSuffix(trimmed, ":"):
		return true
	}
	return false
}

func isSeparator(line string) bool {
	if len(line) < 3 {
		return false
	}
	return strings.Trim(line, "-") == "" || strings.Trim(line, "=") == "" || strings.Trim(line, "*") == ""
}

// stripBullet removes a leading list marker
func stripBullet(line string) string {
	return bulletPrefix.ReplaceAllString(strings.TrimSpace(line), "")
}

// notesFromLines parses every non-metadata line into a note
func notesFromLines(lines []string, title string) []entities.Note {
	notes := make([]entities.Note, 0, len(lines))
	for _, line := range lines {
		if isMetadataLine(line, title) {
			continue
		}
		if note, ok := ParseNoteLine(stripBullet(line)); ok {
			notes = append(notes, note)
		}
	}
	return notes
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01-02T15_04_05.000Z",
	"2006-01-02T15_04_05Z",
	"02/01/2006",
	"01/02/2006",
}

// ParseDate accepts ISO-8601 forms, then the compact file timestamp, then
// slash dates. The result carries the calendar date only.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return calendarDate(t), true
		}
	}
	return time.Time{}, false
}

// FindDate returns the first YYYY-MM-DD date embedded in text
func FindDate(text string) (time.Time, bool) {
	for _, m := range isoDate.FindAllString(text, -1) {
		if t, ok := ParseDate(m); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// resolveDate returns the first parseable candidate, else the processing
// date flagged as inferred.
func resolveDate(now func() time.Time, candidates ...string) (time.Time, bool) {
	for _, c := range candidates {
		if t, ok := ParseDate(c); ok {
			return t, false
		}
		if t, ok := FindDate(c); ok {
			return t, false
		}
	}
	return calendarDate(now()), true
}

// SplitParticipants splits on semicolons when present, else commas.
// Separators inside parentheses are ignored.
func SplitParticipants(s string) []string {
	sep := ','
	if containsOutsideParens(s, ';') {
		sep = ';'
	}

	var (
		out   = []string{}
		depth int
		cur   strings.Builder
	)
	flush := func() {
		p := strings.Trim(strings.TrimSpace(cur.String()), ".*")
		if p != "" {
			out = append(out, strings.TrimSpace(p))
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case r == sep && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return out
}

func containsOutsideParens(s string, target rune) bool {
	depth := 0
	for _, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')' && depth > 0:
			depth--
		case r == target && depth == 0:
			return true
		}
	}
	return false
}

// FindParticipants scans the first limit lines for a participants label
func FindParticipants(lines []string, limit int) []string {
	for i, line := range lines {
		if i >= limit {
			break
		}
		if m := participantsL.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return SplitParticipants(m[1])
		}
	}
	return []string{}
}

// CompanyFromLabels scans the first limit lines for a company label
func CompanyFromLabels(lines []string, limit int) string {
	for i, line := range lines {
		if i >= limit {
			break
		}
		if m := companyL.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			value := strings.TrimSpace(strings.Split(m[1], ",")[0])
			if value = strings.Trim(value, "*"); value != "" {
				return value
			}
		}
	}
	return ""
}

// CompanyFromTitle returns the first capitalised word before the title
// separator that is not a generic meeting word.
func CompanyFromTitle(title string) string {
	title = strings.TrimSpace(strings.TrimLeft(title, "# "))
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
			break
		}
	}

	for _, field := range strings.Fields(title) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&'
		})
		if word == "" {
			continue
		}
		first := []rune(word)[0]
		if !unicode.IsUpper(first) {
			continue
		}
		if companyStoplist[strings.ToLower(word)] {
			continue
		}
		return word
	}
	return ""
}

// splitFrontMatter separates a leading "---" delimited block
func splitFrontMatter(text string) (front, body string, ok bool) {
	if !strings.HasPrefix(strings.TrimLeft(text, "\n"), "---\n") {
		return "", text, false
	}
	rest := strings.TrimPrefix(strings.TrimLeft(text, "\n"), "---\n")
	lines := splitLines(rest)
	for i, line := range lines {
		if strings.TrimSpace(line) == "---" {
			return strings.Join(lines[:i], "\n"), strings.Join(lines[i+1:], "\n"), true
		}
	}
	return "", text, false
}

// firstLines returns up to n non-empty trimmed lines
func firstLines(lines []string, n int) []string {
	out := make([]string, 0, n)
	for _, line := range lines {
		if len(out) == n {
			break
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
