package importer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

func TestZapier_MarkdownBody(t *testing.T) {
	payload := []byte(`{
		"id": "zap-note-1",
		"company": "Globex",
		"date": "2025-09-05",
		"participants": "Alex Kim; Jordan Lee",
		"creator_name": "Sean",
		"zapier_step_id": 991,
		"content": "# Kickoff\n\n**Alex:** We need designers.\nJordan: Budget is set for Q4."
	}`)

	tr, err := newTestRegistry().Parse("payload.json", payload)
	require.NoError(t, err)

	assert.Equal(t, entities.SourceZapierGranola, tr.Source)
	assert.Equal(t, "zap-note-1", tr.MeetingID)
	assert.Equal(t, "Globex", tr.Company)
	assert.Equal(t, day(2025, 9, 5), tr.Date)
	assert.Equal(t, []string{"Alex Kim", "Jordan Lee"}, tr.Participants)
	assert.Equal(t, "Sean", tr.CreatorName)
	require.NotNil(t, tr.ZapierStepID)
	assert.EqualValues(t, 991, *tr.ZapierStepID)

	require.Len(t, tr.Notes, 2)
	assert.Equal(t, entities.Note{Speaker: "Alex", Text: "We need designers."}, tr.Notes[0])
	assert.Equal(t, entities.Note{Speaker: "Jordan", Text: "Budget is set for Q4."}, tr.Notes[1])
}

func TestZapier_FieldSynonyms(t *testing.T) {
	payload := map[string]interface{}{
		"note_id":      "n-42",
		"organization": "Initech",
		"created_at":   "2025-08-28T09:30:00Z",
		"attendees":    "Pat Wilson, Sam Chen",
		"body":         "Them: We are hiring five engineers.\nMe: Great, let's talk scope.",
	}

	tr, err := newTestRegistry().Zapier().ParsePayload(payload)
	require.NoError(t, err)

	assert.Equal(t, "n-42", tr.MeetingID)
	assert.Equal(t, "Initech", tr.Company)
	assert.Equal(t, day(2025, 8, 28), tr.Date)
	assert.Equal(t, []string{"Pat Wilson", "Sam Chen"}, tr.Participants)
	require.Len(t, tr.Notes, 2)
	assert.Equal(t, "Them", tr.Notes[0].Speaker)
	assert.Equal(t, "Me", tr.Notes[1].Speaker)
}

func TestZapier_GeneratedIDAndTitleCompany(t *testing.T) {
	payload := map[string]interface{}{
		"title":   "FixtureCorp — Planning Meeting",
		"content": "Them: We need two designers by March.",
	}

	tr, err := newTestRegistry().Zapier().ParsePayload(payload)
	require.NoError(t, err)

	assert.Equal(t, "zap-20250910-101500", tr.MeetingID)
	assert.Equal(t, "FixtureCorp", tr.Company)
	assert.True(t, tr.DateInferred)
	assert.Equal(t, day(2025, 9, 10), tr.Date)
	assert.Equal(t, entities.DefaultDesk, tr.Desk)
}

func TestZapier_HTMLBody(t *testing.T) {
	payload := map[string]interface{}{
		"id":      "html-1",
		"content": `<div class="meeting-notes"><p>[00:01:00] Dana: We need a Head of Talent.</p><p>ok</p></div>`,
	}

	tr, err := newTestRegistry().Zapier().ParsePayload(payload)
	require.NoError(t, err)

	require.Len(t, tr.Notes, 1)
	assert.Equal(t, entities.Note{Timestamp: "00:01:00", Speaker: "Dana", Text: "We need a Head of Talent."}, tr.Notes[0])
}

func TestZapier_TranscriptFallback(t *testing.T) {
	payload := map[string]interface{}{
		"id":              "t-1",
		"full_transcript": "Them: We want to expand to Berlin.\nSynced via Zapier: 2025-09-03",
	}

	tr, err := newTestRegistry().Zapier().ParsePayload(payload)
	require.NoError(t, err)
	require.Len(t, tr.Notes, 1)
	assert.Equal(t, "We want to expand to Berlin.", tr.Notes[0].Text)
}

func TestZapier_Errors(t *testing.T) {
	reg := newTestRegistry()

	_, err := reg.Parse("empty.json", []byte(`{"id": "x", "content": "   "}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrNoContent))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "empty.json", perr.Path)

	_, err = reg.Parse("broken.json", []byte(`{"id": `))
	require.Error(t, err)
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, entities.SourceZapierGranola, perr.Format)
}

func TestLoadFieldMapping_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("field_mappings:\n  company: [customer]\n"), 0o644))

	m, err := LoadFieldMapping(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"customer"}, m.Candidates("company"))
	assert.Contains(t, m.Candidates("meeting_id"), "granola_note_id")
	assert.Equal(t, "Unknown", m.Default("desk", ""))

	z := NewZapierImporter(m)
	tr, err := z.ParsePayload(map[string]interface{}{
		"id":       "m-1",
		"company":  "Ignored Co",
		"customer": "Hooli",
		"content":  "Them: hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hooli", tr.Company)

	_, err = LoadFieldMapping(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, contentHTML, DetectContentType("<p>hello</p>"))
	assert.Equal(t, contentHTML, DetectContentType("text with <b>bold</b>"))
	assert.Equal(t, contentMarkdown, DetectContentType("# Title\nbody"))
	assert.Equal(t, contentMarkdown, DetectContentType("a **bold** claim"))
	assert.Equal(t, contentPlaintext, DetectContentType("Them: plain words"))
	assert.Equal(t, contentPlaintext, DetectContentType(""))
}
