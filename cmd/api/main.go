package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	pkgvalidator "github.com/johnquangdev/meeting-intel/pkg/validator"

	"github.com/johnquangdev/meeting-intel/internal/adapter/handler"
	"github.com/johnquangdev/meeting-intel/internal/app"
	"github.com/johnquangdev/meeting-intel/pkg/config"
)

// @title           Meeting Intel API
// @version         1.0
// @description     Transcript ingestion and opportunity scoring pipeline
// @BasePath        /v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := app.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")
	ctx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.New(ctx, cfg, logger, app.Options{
		Scoring:   true,
		Warehouse: true,
		Storage:   true,
	})
	cancelInit()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	if application.DB == nil {
		log.Println("⚠️  Warehouse disabled; scored records are not loaded")
	}
	if application.Blobs == nil {
		log.Println("⚠️  Blob storage disabled; process-transcript and process-batch are unavailable")
	}

	// Start pipeline workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if err := application.Pipeline.StartWorkerPool(workerCtx, cfg.Server.Workers); err != nil {
		log.Fatalf("Failed to start worker pool: %v", err)
	}

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	pipelineHandler := handler.NewPipelineHandler(application.Pipeline, cfg.Storage.BucketName, logger,
		handler.WithWebhookSecret(cfg.Server.WebhookSecret),
	)
	recordsHandler := handler.NewRecordsHandler(application.Records, application.Mappings, logger)
	router := handler.NewRouter(cfg, pipelineHandler, recordsHandler, application.Metrics.Handler()).
		WithChecks(application.Checks())
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}
	if err := application.Pipeline.StopWorkerPool(); err != nil {
		log.Printf("⚠️  %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
