package importer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

var titleDate = regexp.MustCompile(`\((\d{4}-\d{2}-\d{2})\)`)

// frontMatter is the optional YAML block at the top of a markdown transcript
type frontMatter struct {
	Desk         string      `yaml:"desk"`
	MeetingID    string      `yaml:"meeting_id"`
	Date         string      `yaml:"date"`
	Company      string      `yaml:"company"`
	Participants interface{} `yaml:"participants"`
}

func (f *frontMatter) participants() []string {
	switch v := f.Participants.(type) {
	case string:
		return SplitParticipants(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// MarkdownImporter reads "# Company — Subject (YYYY-MM-DD)" documents whose
// notes follow the first "---" separator.
type MarkdownImporter struct {
	now func() time.Time
}

// NewMarkdownImporter creates a markdown importer using the wall clock
func NewMarkdownImporter() *MarkdownImporter {
	return &MarkdownImporter{now: time.Now}
}

func (m *MarkdownImporter) Source() entities.TranscriptSource {
	return entities.SourceMarkdown
}

func (m *MarkdownImporter) Parse(name string, raw []byte) (*entities.Transcript, error) {
	text, err := decode(raw)
	if err != nil {
		return nil, &ParseError{Path: name, Format: m.Source(), Err: err}
	}
	return finish(name, m.parseBody(meetingIDFromName(name), text))
}

func (m *MarkdownImporter) parseBody(meetingID, text string) *entities.Transcript {
	var fm frontMatter
	if front, body, ok := splitFrontMatter(text); ok {
		// Malformed front matter is ignored field by field
		_ = yaml.Unmarshal([]byte(front), &fm)
		text = body
	}

	if fm.MeetingID != "" {
		meetingID = strings.TrimSpace(fm.MeetingID)
	}
	t := entities.NewTranscript(meetingID, entities.SourceMarkdown)
	if fm.Desk != "" {
		t.Desk = strings.TrimSpace(fm.Desk)
	}

	lines := splitLines(text)
	title, titleIdx := markdownTitle(lines)
	t.Title = title

	t.Company = strings.TrimSpace(fm.Company)
	if t.Company == "" {
		t.Company = CompanyFromTitle(title)
	}

	var inTitle string
	if match := titleDate.FindStringSubmatch(title); match != nil {
		inTitle = match[1]
	}
	header := firstLines(lines, headerScanLines)
	t.Date, t.DateInferred = resolveDate(m.now, fm.Date, inTitle, strings.Join(header, "\n"))

	if ps := fm.participants(); len(ps) > 0 {
		t.Participants = ps
	} else {
		t.Participants = FindParticipants(header, headerScanLines)
	}

	t.Notes = notesFromLines(markdownBody(lines, titleIdx), title)
	return t
}

func markdownTitle(lines []string) (string, int) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# ")), i
		}
	}
	return "", -1
}

// markdownBody returns the lines after the first separator, else after the
// title line.
func markdownBody(lines []string, titleIdx int) []string {
	for i, line := range lines {
		if strings.TrimSpace(line) == "---" {
			return lines[i+1:]
		}
	}
	return lines[titleIdx+1:]
}
