package entities

import (
	"strings"
	"time"
)

// TranscriptSource identifies the importer that produced a transcript
type TranscriptSource string

const (
	SourcePlaintext     TranscriptSource = "plaintext"
	SourceMarkdown      TranscriptSource = "markdown"
	SourceHTML          TranscriptSource = "html"
	SourceGranolaDrive  TranscriptSource = "granola_drive"
	SourceZapierGranola TranscriptSource = "zapier_granola"
)

// DefaultDesk is used when no source supplies a business category
const DefaultDesk = "Unknown"

// Note is one line of meeting content. Timestamp and Speaker are empty when
// the source line carried neither.
type Note struct {
	Timestamp string `json:"t,omitempty"`
	Speaker   string `json:"speaker,omitempty"`
	Text      string `json:"text"`
}

// NewNote trims its inputs. Callers must not pass an empty text.
func NewNote(timestamp, speaker, text string) Note {
	return Note{
		Timestamp: strings.TrimSpace(timestamp),
		Speaker:   strings.TrimSpace(speaker),
		Text:      strings.TrimSpace(text),
	}
}

// Transcript is the canonical meeting record produced by every importer
type Transcript struct {
	MeetingID    string           `json:"meeting_id"`
	Date         time.Time        `json:"date"`
	DateInferred bool             `json:"date_inferred"` // processing date substituted for a missing meeting date
	Company      string           `json:"company,omitempty"`
	Participants []string         `json:"participants"`
	Desk         string           `json:"desk"`
	Notes        []Note           `json:"notes"`
	Source       TranscriptSource `json:"source"`

	// Note-tool metadata, passed through to the warehouse record unchanged
	Title                string     `json:"title,omitempty"`
	GranolaNoteID        string     `json:"granola_note_id,omitempty"`
	CreatorName          string     `json:"creator_name,omitempty"`
	CreatorEmail         string     `json:"creator_email,omitempty"`
	CalendarEventTitle   string     `json:"calendar_event_title,omitempty"`
	CalendarEventID      string     `json:"calendar_event_id,omitempty"`
	CalendarEventTime    *time.Time `json:"calendar_event_time,omitempty"`
	GranolaLink          string     `json:"granola_link,omitempty"`
	FileCreatedTimestamp *int64     `json:"file_created_timestamp,omitempty"`
	ZapierStepID         *int64     `json:"zapier_step_id,omitempty"`

	// Raw content sections
	EnhancedNotes  string `json:"enhanced_notes,omitempty"`
	MyNotes        string `json:"my_notes,omitempty"`
	FullTranscript string `json:"full_transcript,omitempty"`
}

// NewTranscript creates a transcript with list fields initialised
func NewTranscript(meetingID string, source TranscriptSource) *Transcript {
	return &Transcript{
		MeetingID:    meetingID,
		Source:       source,
		Desk:         DefaultDesk,
		Participants: []string{},
		Notes:        []Note{},
	}
}

// HasContent reports whether any note or content section carries text
func (t *Transcript) HasContent() bool {
	if len(t.Notes) > 0 {
		return true
	}
	return strings.TrimSpace(t.EnhancedNotes) != "" ||
		strings.TrimSpace(t.MyNotes) != "" ||
		strings.TrimSpace(t.FullTranscript) != ""
}

// Validate checks the minimum a transcript needs before scoring
func (t *Transcript) Validate() error {
	if strings.TrimSpace(t.MeetingID) == "" {
		return ErrMissingMeetingID
	}
	if !t.HasContent() {
		return ErrNoContent
	}
	return nil
}

// DateString formats the meeting date as YYYY-MM-DD
func (t *Transcript) DateString() string {
	if t.Date.IsZero() {
		return ""
	}
	return t.Date.Format("2006-01-02")
}
