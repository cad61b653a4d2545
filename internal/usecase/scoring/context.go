package scoring

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

const (
	// minSectionChars is the length below which a content section is ignored
	minSectionChars = 100
	// shortNotesChars marks enhanced notes brief enough to need extra context
	shortNotesChars = 1000

	supplementTranscriptBudget = 3000
	supplementNoteLimit        = 20
	primaryContentBudget       = 8000
	salesTranscriptBudget      = 8000

	truncationMarker = "[Transcript truncated]"
)

// OpportunityContext frames the client side of the meeting for the
// opportunity rubric and the taxonomy and client passes.
func OpportunityContext(t *entities.Transcript) string {
	var b strings.Builder
	b.WriteString("CRITICAL SPEAKER CONTEXT:\n")
	b.WriteString("- \"Me:\" is our own representative. Do NOT analyze their statements.\n")
	b.WriteString("- \"Them:\" is the client. Analyze ONLY their statements.\n")
	b.WriteString("- Never attribute our representative's words to the client.\n\n")

	fmt.Fprintf(&b, "Company being analyzed: %s\n", valueOr(t.Company, "Unknown"))
	fmt.Fprintf(&b, "Date: %s\n", t.DateString())
	fmt.Fprintf(&b, "Participants: %s\n\n", strings.Join(t.Participants, ", "))

	enhanced := strings.TrimSpace(t.EnhancedNotes)
	full := strings.TrimSpace(t.FullTranscript)

	switch {
	case len(enhanced) > minSectionChars:
		b.WriteString("Enhanced Meeting Notes:\n")
		b.WriteString(enhanced)
		b.WriteString("\n")
		if len(enhanced) < shortNotesChars {
			if full != "" {
				b.WriteString("\nAdditional Context (Full Transcript):\n")
				b.WriteString(truncate(full, supplementTranscriptBudget))
				b.WriteString("\n")
			} else if len(t.Notes) > 0 {
				b.WriteString("\nAdditional Context (Meeting Notes):\n")
				b.WriteString(formatNotes(t.Notes, supplementNoteLimit))
			}
		}
	case len(full) > minSectionChars:
		b.WriteString("Full Transcript:\n")
		b.WriteString(truncate(full, primaryContentBudget))
		b.WriteString("\n")
	default:
		b.WriteString("Meeting Notes:\n")
		b.WriteString(truncate(formatNotes(t.Notes, 0), primaryContentBudget))
	}
	return b.String()
}

// SalesContext frames our representative's side of the meeting. The raw
// transcript is preferred since rep behaviour only shows in the dialogue.
func SalesContext(t *entities.Transcript, client string) string {
	var b strings.Builder
	b.WriteString("CRITICAL SPEAKER CONTEXT FOR SALES ASSESSMENT:\n")
	b.WriteString("- \"Me:\" is our representative. Analyze ONLY their statements and behaviour.\n")
	b.WriteString("- \"Them:\" is the client. Use their statements as context only.\n\n")

	fmt.Fprintf(&b, "Salesperson: %s\n", valueOr(t.CreatorName, "Unknown"))
	fmt.Fprintf(&b, "Client Company: %s\n", valueOr(client, valueOr(t.Company, "Unknown")))
	fmt.Fprintf(&b, "Date: %s\n", t.DateString())
	fmt.Fprintf(&b, "Meeting Title: %s\n\n", valueOr(t.Title, valueOr(t.CalendarEventTitle, "Unknown")))

	full := strings.TrimSpace(t.FullTranscript)
	enhanced := strings.TrimSpace(t.EnhancedNotes)
	switch {
	case len(full) > minSectionChars:
		b.WriteString("Full Transcript:\n")
		b.WriteString(truncate(full, salesTranscriptBudget))
		b.WriteString("\n")
	case len(enhanced) > minSectionChars:
		b.WriteString("Meeting Notes:\n")
		b.WriteString(enhanced)
		b.WriteString("\n")
	default:
		b.WriteString("Meeting Notes:\n")
		b.WriteString(truncate(formatNotes(t.Notes, 0), salesTranscriptBudget))
	}
	return b.String()
}

// formatNotes renders up to limit notes, all of them when limit is 0
func formatNotes(notes []entities.Note, limit int) string {
	var b strings.Builder
	for i, n := range notes {
		if limit > 0 && i == limit {
			break
		}
		if n.Timestamp != "" {
			fmt.Fprintf(&b, "[%s] ", n.Timestamp)
		}
		if n.Speaker != "" {
			fmt.Fprintf(&b, "%s: ", n.Speaker)
		}
		b.WriteString(n.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// truncate caps s at budget bytes on a rune boundary and appends the marker
func truncate(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	cut := budget
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n...\n" + truncationMarker
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
