package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/meeting-intel/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-intel/pkg/ai"
	"github.com/johnquangdev/meeting-intel/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg             *config.Config
	pipelineHandler *Pipeline
	recordsHandler  *Records
	metrics         http.Handler
	checks          map[string]Check
}

// Check probes one dependency for readiness
type Check func(ctx context.Context) error

// readinessTimeout bounds the whole readiness probe
const readinessTimeout = 5 * time.Second

// NewRouter creates a new router with all handlers. metrics may be nil.
func NewRouter(cfg *config.Config, pipelineHandler *Pipeline, recordsHandler *Records, metrics http.Handler) *Router {
	return &Router{
		cfg:             cfg,
		pipelineHandler: pipelineHandler,
		recordsHandler:  recordsHandler,
		metrics:         metrics,
	}
}

// WithChecks sets the probes served on /health/ready
func (rt *Router) WithChecks(checks map[string]func(context.Context) error) *Router {
	rt.checks = make(map[string]Check, len(checks))
	for name, fn := range checks {
		rt.checks[name] = fn
	}
	return rt
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/", rt.serviceInfo)
	e.GET("/health", rt.healthCheck)
	e.GET("/health/ready", rt.readiness)
	if rt.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(rt.metrics))
	}

	// API v1 group
	v1 := e.Group("/v1")
	v1.GET("/models", rt.listModels)

	rt.setupPipelineRoutes(v1)
	rt.setupRecordRoutes(v1)
}

// setupPipelineRoutes configures ingest, scoring and job routes
func (rt *Router) setupPipelineRoutes(g *echo.Group) {
	if rt.pipelineHandler == nil {
		g.POST("/process-transcript", rt.notImplemented)
		g.POST("/process-batch", rt.notImplemented)
		g.GET("/status/:id", rt.notImplemented)
		return
	}

	g.POST("/process-transcript", rt.pipelineHandler.ProcessTranscript)
	g.POST("/process-batch", rt.pipelineHandler.ProcessBatch)
	g.GET("/status/:id", rt.pipelineHandler.Status)
	g.POST("/ingest", rt.pipelineHandler.Ingest)
	g.POST("/score", rt.pipelineHandler.Score)
	g.POST("/webhooks/zapier", rt.pipelineHandler.ZapierWebhook)
}

// setupRecordRoutes configures warehouse and client-mapping routes
func (rt *Router) setupRecordRoutes(g *echo.Group) {
	if rt.recordsHandler == nil {
		return
	}

	records := g.Group("/records")
	records.GET("/recent", rt.recordsHandler.Recent)
	records.GET("/info", rt.recordsHandler.Info)
	records.POST("/dedupe", rt.recordsHandler.Dedupe)
	records.GET("/:meeting_id", rt.recordsHandler.Get)

	mappings := g.Group("/client-mappings")
	mappings.GET("", rt.recordsHandler.ListMappings)
	mappings.POST("", rt.recordsHandler.SaveMapping)
	mappings.DELETE("", rt.recordsHandler.DeleteMapping)
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":   "This endpoint is not yet implemented",
		"path":    c.Request().URL.Path,
		"method":  c.Request().Method,
		"message": "Please initialize the required handler in main.go",
	})
}

// serviceInfo describes the service
func (rt *Router) serviceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service":       "meeting-intel",
		"version":       "1.0.0",
		"default_model": rt.cfg.LLM.DefaultModel,
		"endpoints": []string{
			"POST /v1/process-transcript",
			"POST /v1/process-batch",
			"GET /v1/status/:id",
			"POST /v1/ingest",
			"POST /v1/score",
			"POST /v1/webhooks/zapier",
			"GET /v1/models",
		},
	})
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
		"storage":     rt.cfg.Storage.Enabled,
		"warehouse":   rt.cfg.Database.Enabled,
		"cache":       rt.cfg.Cache.Backend,
	})
}

// readiness runs every dependency probe and reports 503 if any fails
func (rt *Router) readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(rt.checks))
	for name := range rt.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := rt.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	ready := "ready"
	if status != http.StatusOK {
		ready = "not_ready"
	}
	return c.JSON(status, map[string]interface{}{
		"status": ready,
		"checks": results,
	})
}

// listModels lists supported models with the default flagged
func (rt *Router) listModels(c echo.Context) error {
	return HandleSuccess(nil, c, map[string]interface{}{
		"default": rt.cfg.LLM.DefaultModel,
		"models":  presenter.ToModelResponses(ai.SupportedModels(), rt.cfg.LLM.DefaultModel),
	})
}
