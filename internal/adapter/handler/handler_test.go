package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
	"github.com/johnquangdev/meeting-intel/internal/usecase/importer"
	"github.com/johnquangdev/meeting-intel/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-intel/pkg/config"
	pkgvalidator "github.com/johnquangdev/meeting-intel/pkg/validator"
	"github.com/johnquangdev/meeting-intel/pkg/webhook"
)

// fakeService records submissions and answers from fixed state
type fakeService struct {
	pipeline.Service

	registry   *importer.Registry
	storageOff bool
	submitted  []string
	jobs       map[string]*entities.ScoringJob
	scoreErr   error
}

func newFakeService() *fakeService {
	return &fakeService{
		registry: importer.NewRegistry(),
		jobs:     map[string]*entities.ScoringJob{},
	}
}

func (f *fakeService) Ingest(name string, raw []byte) (*entities.Transcript, error) {
	return f.registry.Parse(name, raw)
}

func (f *fakeService) IngestPayload(payload map[string]interface{}) (*entities.Transcript, error) {
	return f.registry.Zapier().ParsePayload(payload)
}

func (f *fakeService) Score(ctx context.Context, t *entities.Transcript, opts pipeline.ScoreOptions) (*pipeline.Result, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ucerrors.ErrInvalidInput, err)
	}
	if f.scoreErr != nil {
		return nil, f.scoreErr
	}
	return &pipeline.Result{
		Opportunity: &entities.OpportunityResult{MeetingID: t.MeetingID, TotalQualifiedSections: 4, Qualified: true, LLMModel: opts.Model},
	}, nil
}

func (f *fakeService) SubmitFile(ctx context.Context, bucket, filePath string, opts pipeline.ScoreOptions) (*entities.ScoringJob, error) {
	if f.storageOff {
		return nil, ucerrors.ErrStorageDisabled
	}
	job := entities.NewScoringJob(entities.ScoringJobTypeFile, filePath, opts.Model)
	f.jobs[job.ID.String()] = job
	f.submitted = append(f.submitted, filePath)
	return job, nil
}

func (f *fakeService) SubmitBatch(ctx context.Context, prefix string, maxFiles int, opts pipeline.ScoreOptions) ([]*entities.ScoringJob, error) {
	var jobs []*entities.ScoringJob
	for i := 0; i < maxFiles && i < 3; i++ {
		job, _ := f.SubmitFile(ctx, "", fmt.Sprintf("%sfile-%d.txt", prefix, i), opts)
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (f *fakeService) SubmitTranscript(ctx context.Context, t *entities.Transcript, opts pipeline.ScoreOptions) (*entities.ScoringJob, error) {
	job := entities.NewScoringJob(entities.ScoringJobTypeWebhook, "", opts.Model)
	job.MeetingID = t.MeetingID
	f.jobs[job.ID.String()] = job
	return job, nil
}

func (f *fakeService) GetJob(ctx context.Context, id string) (*entities.ScoringJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, ucerrors.ErrJobNotFound
	}
	return job, nil
}

// memMappings is an in-memory ClientMappingRepository
type memMappings map[string]*entities.ClientMapping

func (m memMappings) List(ctx context.Context) ([]*entities.ClientMapping, error) {
	out := make([]*entities.ClientMapping, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out, nil
}

func (m memMappings) Save(ctx context.Context, mapping *entities.ClientMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	m[entities.NormalizeVariant(mapping.VariantName)] = mapping
	return nil
}

func (m memMappings) Delete(ctx context.Context, variant string) error {
	key := entities.NormalizeVariant(variant)
	if _, ok := m[key]; !ok {
		return ucerrors.ErrMappingNotFound
	}
	delete(m, key)
	return nil
}

func (m memMappings) Load(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m {
		out[k] = v.CanonicalName
	}
	return out, nil
}

type envelope struct {
	Code    interface{}       `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func newTestServer(svc *fakeService, mappings memMappings) *echo.Echo {
	cfg := &config.Config{}
	cfg.LLM.DefaultModel = "gpt-4o-mini"
	cfg.Server.Environment = "test"

	e := echo.New()
	e.Validator = pkgvalidator.New()

	var records *Records
	if mappings != nil {
		records = NewRecordsHandler(nil, mappings, nil)
	}
	NewRouter(cfg, NewPipelineHandler(svc, "meeting-transcripts", nil), records, nil).Setup(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, contentType, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func TestProcessTranscript(t *testing.T) {
	svc := newFakeService()
	e := newTestServer(svc, nil)

	rec, env := do(t, e, http.MethodPost, "/v1/process-transcript", echo.MIMEApplicationJSON,
		`{"file_path":"transcripts/acme.txt","model":"gpt-4o"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var job map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &job))
	assert.Equal(t, "pending", job["status"])
	assert.Equal(t, "gpt-4o", job["model"])
	assert.Equal(t, []string{"transcripts/acme.txt"}, svc.submitted)

	rec, env = do(t, e, http.MethodGet, "/v1/status/"+job["id"].(string), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"status":"pending"`)
}

func TestProcessTranscript_Rejections(t *testing.T) {
	svc := newFakeService()
	e := newTestServer(svc, nil)

	rec, env := do(t, e, http.MethodPost, "/v1/process-transcript", echo.MIMEApplicationJSON, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", env.Code)

	rec, env = do(t, e, http.MethodPost, "/v1/process-transcript", echo.MIMEApplicationJSON,
		`{"bucket":"other","file_path":"a.txt"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "other", env.Details["bucket"])

	svc.storageOff = true
	rec, env = do(t, e, http.MethodPost, "/v1/process-transcript", echo.MIMEApplicationJSON,
		`{"bucket":"meeting-transcripts","file_path":"a.txt"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UNAVAILABLE", env.Code)
	assert.Empty(t, svc.submitted)
}

func TestProcessBatch_Defaults(t *testing.T) {
	svc := newFakeService()
	e := newTestServer(svc, nil)

	rec, env := do(t, e, http.MethodPost, "/v1/process-batch", echo.MIMEApplicationJSON, `{}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var batch struct {
		Prefix string `json:"prefix"`
		Count  int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	assert.Equal(t, "transcripts/", batch.Prefix)
	assert.Equal(t, 3, batch.Count)

	rec, _ = do(t, e, http.MethodPost, "/v1/process-batch", echo.MIMEApplicationJSON, `{"max_files":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus_UnknownJob(t *testing.T) {
	e := newTestServer(newFakeService(), nil)

	rec, env := do(t, e, http.MethodGet, "/v1/status/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", env.Code)
	assert.Equal(t, "nope", env.Details["job_id"])
}

func TestIngest_RawBody(t *testing.T) {
	e := newTestServer(newFakeService(), nil)
	doc := "Acme Corp - Strategy Review\n2025-09-03\n\nJane: We need to hire a CFO.\n"

	rec, env := do(t, e, http.MethodPost, "/v1/ingest?filename=acme-strategy.txt", echo.MIMETextPlain, doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tr entities.Transcript
	require.NoError(t, json.Unmarshal(env.Data, &tr))
	assert.Equal(t, "acme-strategy", tr.MeetingID)
	assert.Equal(t, entities.SourcePlaintext, tr.Source)

	rec, env = do(t, e, http.MethodPost, "/v1/ingest?filename=recording.mp3", echo.MIMETextPlain, "abc")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", env.Code)

	rec, _ = do(t, e, http.MethodPost, "/v1/ingest", echo.MIMETextPlain, doc)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScore(t *testing.T) {
	e := newTestServer(newFakeService(), nil)

	body := `{"meeting_id":"acme-sync","notes":[{"speaker":"Jane","text":"We need a CFO"}],"source":"plaintext"}`
	rec, env := do(t, e, http.MethodPost, "/v1/score?model=gpt-4o", echo.MIMEApplicationJSON, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total_qualified_sections":4`)
	assert.Contains(t, string(env.Data), `"llm_model":"gpt-4o"`)

	rec, env = do(t, e, http.MethodPost, "/v1/score", echo.MIMEApplicationJSON, `{"meeting_id":"empty"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", env.Code)

	rec, _ = do(t, e, http.MethodPost, "/v1/score", echo.MIMEApplicationJSON, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestZapierWebhook(t *testing.T) {
	svc := newFakeService()
	e := newTestServer(svc, nil)

	body := `{"meeting_id":"zap-acme","title":"Acme - Intro","enhanced_notes":"They need a CFO."}`
	rec, env := do(t, e, http.MethodPost, "/v1/webhooks/zapier", echo.MIMEApplicationJSON, body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"meeting_id":"zap-acme"`)

	rec, _ = do(t, e, http.MethodPost, "/v1/webhooks/zapier", echo.MIMEApplicationJSON, `[`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestZapierWebhookSignature(t *testing.T) {
	svc := newFakeService()
	e := echo.New()
	e.Validator = pkgvalidator.New()
	cfg := &config.Config{}
	h := NewPipelineHandler(svc, "meeting-transcripts", nil, WithWebhookSecret("s3cret"))
	NewRouter(cfg, h, nil, nil).Setup(e)

	body := `{"meeting_id":"zap-signed","title":"Acme - Intro","enhanced_notes":"They need a CFO."}`
	send := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/zapier", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if signature != "" {
			req.Header.Set(webhook.SignatureHeader, signature)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := send("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")

	rec = send(webhook.Sign("wrong", []byte(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = send(webhook.Sign("s3cret", []byte(body)))
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
}

func TestModelsAndHealth(t *testing.T) {
	e := newTestServer(newFakeService(), nil)

	rec, env := do(t, e, http.MethodGet, "/v1/models", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Default string `json:"default"`
		Models  []struct {
			Name    string `json:"name"`
			Default bool   `json:"default"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, "gpt-4o-mini", body.Default)
	defaults := 0
	for _, m := range body.Models {
		if m.Default {
			defaults++
			assert.Equal(t, "gpt-4o-mini", m.Name)
		}
	}
	assert.Equal(t, 1, defaults)

	rec, _ = do(t, e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return fmt.Errorf("connection refused") }

	e := echo.New()
	NewRouter(&config.Config{}, nil, nil, nil).
		WithChecks(map[string]func(context.Context) error{"cache": healthy}).
		Setup(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache":"ok"`)

	e = echo.New()
	NewRouter(&config.Config{}, nil, nil, nil).
		WithChecks(map[string]func(context.Context) error{"cache": healthy, "warehouse": down}).
		Setup(e)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"warehouse":"connection refused"`)
	assert.Contains(t, rec.Body.String(), `"not_ready"`)
}

func TestRecords_WarehouseDisabled(t *testing.T) {
	e := newTestServer(newFakeService(), memMappings{})

	rec, env := do(t, e, http.MethodGet, "/v1/records/recent", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "warehouse", env.Details["service"])

	rec, _ = do(t, e, http.MethodGet, "/v1/records/acme-sync", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClientMappings(t *testing.T) {
	mappings := memMappings{}
	e := newTestServer(newFakeService(), mappings)

	rec, _ := do(t, e, http.MethodPost, "/v1/client-mappings", echo.MIMEApplicationJSON,
		`{"variant_name":"ACME corp","canonical_name":"Acme Corporation"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, mappings, "acme corp")

	rec, _ = do(t, e, http.MethodPost, "/v1/client-mappings", echo.MIMEApplicationJSON, `{"variant_name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := do(t, e, http.MethodGet, "/v1/client-mappings", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "Acme Corporation")

	rec, _ = do(t, e, http.MethodDelete, "/v1/client-mappings?variant=Acme%20Corp", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, mappings)

	rec, env = do(t, e, http.MethodDelete, "/v1/client-mappings?variant=acme%20corp", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)
}
