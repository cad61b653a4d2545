package scoring

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

func TestOpportunityContext_ShortEnhancedNotesGetTranscript(t *testing.T) {
	tr := testTranscript()
	tr.EnhancedNotes = strings.Repeat("Client wants to expand. ", 10)
	tr.FullTranscript = strings.Repeat("Them: we are hiring. ", 400)

	got := OpportunityContext(tr)
	assert.True(t, strings.HasPrefix(got, "CRITICAL SPEAKER CONTEXT:"))
	assert.Contains(t, got, "Company being analyzed: Initech")
	assert.Contains(t, got, "Date: 2025-09-03")
	assert.Contains(t, got, "Participants: Pat Lee, Sam Chen")
	assert.Contains(t, got, "Enhanced Meeting Notes:")
	assert.Contains(t, got, "Additional Context (Full Transcript):")
	assert.Contains(t, got, truncationMarker)
	assert.NotContains(t, got, "Additional Context (Meeting Notes):")
}

func TestOpportunityContext_LongEnhancedNotesStandAlone(t *testing.T) {
	tr := testTranscript()
	tr.EnhancedNotes = strings.Repeat("x", 1200)
	tr.FullTranscript = strings.Repeat("y", 500)

	got := OpportunityContext(tr)
	assert.Contains(t, got, "Enhanced Meeting Notes:")
	assert.NotContains(t, got, "Additional Context")
	assert.NotContains(t, got, "yyyy")
}

func TestOpportunityContext_ShortEnhancedNotesWithNotesOnly(t *testing.T) {
	tr := testTranscript()
	tr.EnhancedNotes = strings.Repeat("z", 150)

	got := OpportunityContext(tr)
	assert.Contains(t, got, "Additional Context (Meeting Notes):")
	assert.Contains(t, got, "Them: We process payments")
}

func TestOpportunityContext_NotesFallback(t *testing.T) {
	tr := testTranscript()
	tr.Notes = []entities.Note{entities.NewNote("00:01", "Them", "We need help"), entities.NewNote("", "", "Loose note")}
	tr.Company = ""

	got := OpportunityContext(tr)
	assert.Contains(t, got, "Company being analyzed: Unknown")
	assert.Contains(t, got, "Meeting Notes:\n[00:01] Them: We need help\nLoose note\n")
}

func TestSalesContext_PrefersTranscript(t *testing.T) {
	tr := testTranscript()
	tr.Title = "Hiring sync"
	tr.EnhancedNotes = strings.Repeat("e", 300)
	tr.FullTranscript = strings.Repeat("Me: tell me about your team. ", 20)

	got := SalesContext(tr, "Initech Ltd")
	assert.True(t, strings.HasPrefix(got, "CRITICAL SPEAKER CONTEXT FOR SALES ASSESSMENT:"))
	assert.Contains(t, got, "Salesperson: Sean")
	assert.Contains(t, got, "Client Company: Initech Ltd")
	assert.Contains(t, got, "Meeting Title: Hiring sync")
	assert.Contains(t, got, "Full Transcript:")
	assert.NotContains(t, got, "eeee")

	got = SalesContext(tr, "")
	assert.Contains(t, got, "Client Company: Initech")
}

func TestTruncate_RuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10) // two bytes each
	got := truncate(s, 5)
	require.True(t, strings.HasSuffix(got, truncationMarker))

	head := strings.TrimSuffix(got, "\n...\n"+truncationMarker)
	assert.True(t, utf8.ValidString(head))
	assert.Equal(t, "éé", head)

	assert.Equal(t, "short", truncate("short", 10))
}

func TestFormatNotes_Limit(t *testing.T) {
	notes := []entities.Note{
		{Text: "one"}, {Text: "two"}, {Text: "three"},
	}
	assert.Equal(t, "one\ntwo\n", formatNotes(notes, 2))
	assert.Equal(t, "one\ntwo\nthree\n", formatNotes(notes, 0))
}
