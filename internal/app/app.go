// Package app wires configuration into the pipeline and its collaborators.
// The API server and the CLI share it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-intel/internal/adapter/repository"
	"github.com/johnquangdev/meeting-intel/internal/domain/repositories"
	"github.com/johnquangdev/meeting-intel/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-intel/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-intel/internal/infrastructure/metrics"
	"github.com/johnquangdev/meeting-intel/internal/infrastructure/storage"
	"github.com/johnquangdev/meeting-intel/internal/usecase/importer"
	"github.com/johnquangdev/meeting-intel/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-intel/internal/usecase/scoring"
	"github.com/johnquangdev/meeting-intel/pkg/ai"
	"github.com/johnquangdev/meeting-intel/pkg/config"
	"github.com/johnquangdev/meeting-intel/pkg/jobcontext"
)

// Options select which collaborators are built
type Options struct {
	// Scoring builds the LLM client and engine; it requires an API key
	Scoring bool
	// Warehouse connects to Postgres when the database is enabled
	Warehouse bool
	// Storage connects to the blob store when it is enabled
	Storage bool
}

// App holds the wired collaborators. Optional ones are nil when disabled.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Registry *importer.Registry
	LLM      *ai.OpenAIClient
	Engine   *scoring.Engine
	DB       *gorm.DB
	Blobs    *storage.MinIOClient
	Records  repositories.RecordRepository
	Mappings repositories.ClientMappingRepository
	Jobs     repositories.JobRepository
	Pipeline pipeline.Service

	checks  map[string]func(context.Context) error
	closers []func()
}

// NewLogger builds the process logger for the configured environment
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Server.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// New builds the application. Close releases whatever was opened, also
// when New fails part way.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		Jobs:    repository.NewMemoryJobRepository(),
		checks:  make(map[string]func(context.Context) error),
	}

	mapping, err := importer.LoadFieldMapping(cfg.Importer.MappingFile)
	if err != nil {
		return nil, err
	}
	a.Registry = importer.NewRegistry(
		importer.WithLogger(logger),
		importer.WithFieldMapping(mapping),
	)

	if opts.Scoring {
		if err := cfg.RequireLLM(); err != nil {
			return nil, err
		}
		a.LLM = ai.NewOpenAIClient(&cfg.LLM, ai.WithLogger(logger))
		a.Engine = scoring.NewEngine(a.LLM, scoring.ConfigFrom(cfg), logger, scoring.WithRecorder(a.Metrics))
		a.checks["llm"] = a.LLM.Ping
	}

	if opts.Warehouse && cfg.Database.Enabled {
		db, err := database.NewPostgresDB(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.DB = db
		a.closers = append(a.closers, func() { _ = database.CloseDB(db) })

		if cfg.Database.AutoMigrate {
			if cfg.Server.Environment == "production" {
				a.Close()
				return nil, fmt.Errorf("DB_AUTO_MIGRATE is enabled in production; run the migrate command instead")
			}
			if err := database.AutoMigrate(db); err != nil {
				a.Close()
				return nil, err
			}
		}
		a.checks["warehouse"] = func(ctx context.Context) error {
			return db.WithContext(ctx).Exec("SELECT 1").Error
		}
		a.Records = repository.NewRecordRepository(db)
		a.Mappings = repository.NewClientMappingRepository(db)
	}

	if opts.Storage && cfg.Storage.Enabled {
		blobs, err := storage.NewMinIOClient(ctx, &cfg.Storage)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Blobs = blobs
		a.checks["storage"] = func(ctx context.Context) error {
			_, err := blobs.Info(ctx)
			return err
		}
	}

	scoreCache, err := a.newCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	deps := pipeline.Deps{
		Registry: a.Registry,
		Cache:    scoreCache,
		Jobs:     a.Jobs,
		Recorder: a.Metrics,
		Logger:   logger,
	}
	// typed nils must not leak into the interfaces
	if a.Engine != nil {
		deps.Scorer = a.Engine
	}
	if a.Blobs != nil {
		deps.Blobs = a.Blobs
	}
	deps.Records = a.Records
	deps.Mappings = a.Mappings

	a.Pipeline = pipeline.NewService(deps, pipeline.Config{
		Concurrency: cfg.Scoring.Concurrency,
		CacheTTL:    cfg.Cache.TTL,
		JobTimeout:  jobcontext.DefaultTimeout,
	})
	return a, nil
}

func (a *App) newCache(ctx context.Context) (repositories.ScoreCache, error) {
	if a.Config.Cache.Backend == "redis" {
		store, err := cache.NewRedisStore(ctx, a.Config)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.checks["cache"] = store.Ping
		return store, nil
	}

	store := cache.NewMemoryStore()
	a.closers = append(a.closers, func() { _ = store.Close() })
	return store, nil
}

// Checks returns the readiness probes of the collaborators that were built
func (a *App) Checks() map[string]func(context.Context) error {
	return a.checks
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
