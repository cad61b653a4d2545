package handler

import (
	"encoding/json"
	stdErrors "errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-intel/errors"
	dto "github.com/johnquangdev/meeting-intel/internal/adapter/dto/pipeline"
	"github.com/johnquangdev/meeting-intel/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
	"github.com/johnquangdev/meeting-intel/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-intel/pkg/webhook"
)

// maxUploadBytes bounds ingest and webhook bodies
const maxUploadBytes = 10 << 20

// Pipeline handles transcript processing endpoints
type Pipeline struct {
	svc           pipeline.Service
	bucket        string
	webhookSecret string
	logger        *zap.Logger
}

// PipelineOption configures a Pipeline handler
type PipelineOption func(*Pipeline)

// WithWebhookSecret requires automation payloads to carry a valid signature
func WithWebhookSecret(secret string) PipelineOption {
	return func(h *Pipeline) {
		h.webhookSecret = secret
	}
}

// NewPipelineHandler creates a new pipeline handler. bucket is the configured
// blob bucket; requests naming another bucket are rejected.
func NewPipelineHandler(svc pipeline.Service, bucket string, logger *zap.Logger, opts ...PipelineOption) *Pipeline {
	h := &Pipeline{svc: svc, bucket: bucket, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProcessTranscript queues one stored transcript for scoring
// @Summary      Process transcript
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        request  body      pipeline.ProcessTranscriptRequest  true  "Transcript location"
// @Success      202      {object}  pipeline.JobResponse
// @Router       /v1/process-transcript [post]
func (h *Pipeline) ProcessTranscript(c echo.Context) error {
	var req dto.ProcessTranscriptRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}
	if req.Bucket != "" && h.bucket != "" && req.Bucket != h.bucket {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("unknown bucket").WithDetail("bucket", req.Bucket))
	}

	job, err := h.svc.SubmitFile(c.Request().Context(), req.Bucket, req.FilePath, pipeline.ScoreOptions{
		Model:        req.Model,
		IncludeSales: req.IncludeSales,
	})
	if err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}
	return HandleAccepted(h.logger, c, presenter.ToJobResponse(job))
}

// ProcessBatch queues every transcript under a prefix
// @Summary      Process batch
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        request  body      pipeline.ProcessBatchRequest  true  "Prefix and limits"
// @Success      202      {object}  pipeline.BatchResponse
// @Router       /v1/process-batch [post]
func (h *Pipeline) ProcessBatch(c echo.Context) error {
	req := dto.ProcessBatchRequest{
		Prefix:   dto.DefaultBatchPrefix,
		MaxFiles: dto.DefaultBatchMaxFiles,
	}
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(h.logger, c, err)
	}

	jobs, err := h.svc.SubmitBatch(c.Request().Context(), req.Prefix, req.MaxFiles, pipeline.ScoreOptions{
		Model:        req.Model,
		IncludeSales: req.IncludeSales,
	})
	if err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}
	return HandleAccepted(h.logger, c, dto.BatchResponse{
		Prefix: req.Prefix,
		Count:  len(jobs),
		Jobs:   presenter.ToJobResponses(jobs),
	})
}

// Status returns the current state of a job
// @Summary      Job status
// @Tags         Pipeline
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  pipeline.JobResponse
// @Failure      404  {object}  map[string]interface{}
// @Router       /v1/status/{id} [get]
func (h *Pipeline) Status(c echo.Context) error {
	id := c.Param("id")
	job, err := h.svc.GetJob(c.Request().Context(), id)
	if err != nil {
		if stdErrors.Is(err, ucerrors.ErrJobNotFound) {
			return HandleError(h.logger, c, errors.ErrJobNotFound(id))
		}
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}
	return HandleSuccess(h.logger, c, presenter.ToJobResponse(job))
}

// Ingest imports an uploaded document and returns the transcript. The
// document is either a multipart "file" field or the raw body with a
// filename query parameter.
// @Summary      Ingest document
// @Tags         Pipeline
// @Accept       multipart/form-data
// @Produce      json
// @Success      200  {object}  entities.Transcript
// @Router       /v1/ingest [post]
func (h *Pipeline) Ingest(c echo.Context) error {
	name, raw, err := readDocument(c)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	t, err := h.svc.Ingest(name, raw)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}
	return HandleSuccess(h.logger, c, t)
}

// Score scores a transcript synchronously
// @Summary      Score transcript
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        model          query  string  false  "Model"
// @Param        include_sales  query  bool    false  "Run the sales track"
// @Success      200  {object}  pipeline.Result
// @Router       /v1/score [post]
func (h *Pipeline) Score(c echo.Context) error {
	var query dto.ScoreQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &query); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	var t entities.Transcript
	if err := json.NewDecoder(io.LimitReader(c.Request().Body, maxUploadBytes)).Decode(&t); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}
	if t.Desk == "" {
		t.Desk = entities.DefaultDesk
	}

	res, err := h.svc.Score(c.Request().Context(), &t, pipeline.ScoreOptions{
		Model:        query.Model,
		IncludeSales: query.IncludeSales,
	})
	if err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}
	return HandleSuccess(h.logger, c, res)
}

// ZapierWebhook imports an automation payload and queues it for scoring
// @Summary      Zapier webhook
// @Tags         Webhooks
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Signature  header  string  false  "hex HMAC-SHA256 of the body"
// @Success      202  {object}  pipeline.JobResponse
// @Router       /v1/webhooks/zapier [post]
func (h *Pipeline) ZapierWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadBytes))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	if h.webhookSecret != "" {
		if !webhook.Verify(h.webhookSecret, body, c.Request().Header.Get(webhook.SignatureHeader)) {
			if h.logger != nil {
				h.logger.Warn("🔒 Rejected unsigned automation payload", zap.String("remote_ip", c.RealIP()))
			}
			return HandleError(h.logger, c, errors.ErrInvalidSignature())
		}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload())
	}

	t, err := h.svc.IngestPayload(payload)
	if err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}

	job, err := h.svc.SubmitTranscript(c.Request().Context(), t, pipeline.ScoreOptions{
		Model:        GetQueryParam(c, "model", ""),
		IncludeSales: c.QueryParam("include_sales") == "true",
	})
	if err != nil {
		return HandleError(h.logger, c, toAppError(err))
	}

	if h.logger != nil {
		h.logger.Info("🪝 Automation payload accepted",
			zap.String("meeting_id", t.MeetingID),
			zap.String("job_id", job.ID.String()),
		)
	}
	return HandleAccepted(h.logger, c, presenter.ToJobResponse(job))
}

func readDocument(c echo.Context) (string, []byte, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return "", nil, errors.ErrInvalidPayload()
		}
		defer f.Close()
		raw, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			return "", nil, errors.ErrInvalidPayload()
		}
		return fh.Filename, raw, nil
	} else if !stdErrors.Is(err, http.ErrMissingFile) && !stdErrors.Is(err, http.ErrNotMultipart) {
		return "", nil, errors.ErrInvalidPayload()
	}

	name := c.QueryParam("filename")
	if name == "" {
		return "", nil, errors.ErrInvalidArgument("filename is required for a raw body")
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadBytes))
	if err != nil {
		return "", nil, errors.ErrInvalidPayload()
	}
	return name, raw, nil
}
