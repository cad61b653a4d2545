package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-intel/internal/usecase/scoring"
)

var (
	_ scoring.Recorder  = (*Metrics)(nil)
	_ pipeline.Recorder = (*Metrics)(nil)
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg, reg)

	m.ObserveCriterion("opportunity", "now", "ok")
	m.ObserveCriterion("opportunity", "now", "ok")
	m.ObserveCriterion("sales", "discovery", "default")
	m.ObserveTranscript("processed")
	m.ObserveRequest("gpt-4o-mini", "ok", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CriterionResultsTotal.WithLabelValues("opportunity", "now", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CriterionResultsTotal.WithLabelValues("sales", "discovery", "default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TranscriptsProcessedTotal.WithLabelValues("processed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LLMRequestSeconds))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveTranscript("failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `meeting_intel_transcripts_processed_total{status="failed"} 1`)
}
