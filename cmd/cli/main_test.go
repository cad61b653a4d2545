package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

func TestJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.jsonl")
	in := []*entities.Transcript{
		{MeetingID: "acme-sync", Source: entities.SourcePlaintext, Participants: []string{"Ana", "Bo"}},
		{MeetingID: "globex-intro", Source: entities.SourceMarkdown},
	}
	require.NoError(t, writeJSONL(path, in))

	out, err := readJSONL[entities.Transcript](path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "acme-sync", out[0].MeetingID)
	assert.Equal(t, []string{"Ana", "Bo"}, out[0].Participants)
	assert.Equal(t, "globex-intro", out[1].MeetingID)
}

func TestReadJSONL_SkipsBlankLinesAndReportsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"meeting_id\":\"a\"}\n\n{\"meeting_id\":\"b\"}\n"), 0o644))

	out, err := readJSONL[entities.ScoredRecord](path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[1].MeetingID)

	require.NoError(t, os.WriteFile(path, []byte("{\"meeting_id\":\"a\"}\nnot json\n"), 0o644))
	_, err = readJSONL[entities.ScoredRecord](path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ingest", "score", "upload", "dedupe", "migrate", "info", "mappings", "compare-models"} {
		assert.True(t, names[want], want)
	}
}
