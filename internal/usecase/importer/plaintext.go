package importer

import (
	"strings"
	"time"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

const (
	plaintextTitleLines  = 5
	plaintextHeaderLines = 10
)

// PlaintextImporter reads loosely structured .txt transcripts: a title line
// such as "Acme Corp - Strategy Review", optional date and participants
// lines, then timestamped or attributed lines.
type PlaintextImporter struct {
	now func() time.Time
}

// NewPlaintextImporter creates a plaintext importer using the wall clock
func NewPlaintextImporter() *PlaintextImporter {
	return &PlaintextImporter{now: time.Now}
}

func (p *PlaintextImporter) Source() entities.TranscriptSource {
	return entities.SourcePlaintext
}

func (p *PlaintextImporter) Parse(name string, raw []byte) (*entities.Transcript, error) {
	text, err := decode(raw)
	if err != nil {
		return nil, &ParseError{Path: name, Format: p.Source(), Err: err}
	}
	return finish(name, p.parseBody(meetingIDFromName(name), text))
}

func (p *PlaintextImporter) parseBody(meetingID, text string) *entities.Transcript {
	t := entities.NewTranscript(meetingID, entities.SourcePlaintext)

	// YAML-style front matter carries nothing the plaintext reader uses
	_, body, _ := splitFrontMatter(text)
	lines := splitLines(body)
	header := firstLines(lines, plaintextHeaderLines)

	title := plaintextTitle(firstLines(lines, plaintextTitleLines))
	t.Title = title

	t.Company = CompanyFromLabels(header, plaintextHeaderLines)
	if t.Company == "" {
		t.Company = CompanyFromTitle(title)
	}

	t.Date, t.DateInferred = resolveDate(p.now, title, strings.Join(header, "\n"))
	t.Participants = FindParticipants(header, plaintextHeaderLines)
	t.Notes = notesFromLines(lines, title)
	return t
}

func plaintextTitle(lines []string) string {
	for _, line := range lines {
		if strings.HasPrefix(line, "[") || labelLine.MatchString(line) {
			continue
		}
		if m := attributedLine.FindStringSubmatch(line); m != nil && validSpeaker(m[1]) {
			continue
		}
		for _, sep := range titleSeparators[:3] {
			if strings.Contains(line, sep) {
				return line
			}
		}
	}
	return ""
}
