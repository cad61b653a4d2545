package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
	"github.com/johnquangdev/meeting-intel/internal/usecase/importer"
)

// Transcript outcome labels reported to the Recorder
const (
	StatusProcessed = "processed"
	StatusCached    = "cached"
	StatusFailed    = "failed"
)

// Scorer runs the rubric passes for one transcript
type Scorer interface {
	Score(ctx context.Context, t *entities.Transcript, model string) (*entities.OpportunityResult, error)
	ScoreSales(ctx context.Context, t *entities.Transcript, model, client string) (*entities.SalesResult, error)
	DefaultModel() string
}

// Recorder counts transcripts by outcome
type Recorder interface {
	ObserveTranscript(status string)
}

// ScoreOptions selects the model and whether the sales track runs
type ScoreOptions struct {
	Model        string
	IncludeSales bool
}

// Result is the aggregate produced for one transcript
type Result struct {
	Opportunity *entities.OpportunityResult `json:"opportunity"`
	Sales       *entities.SalesResult       `json:"sales,omitempty"`
	Record      *entities.ScoredRecord      `json:"record"`
	Cached      bool                        `json:"cached"`
}

// cachedScore is the payload stored under score:{meeting_id}:{model}
type cachedScore struct {
	Opportunity *entities.OpportunityResult `json:"opportunity"`
	Sales       *entities.SalesResult       `json:"sales,omitempty"`
}

// Service defines pipeline orchestration methods
type Service interface {
	Ingest(name string, raw []byte) (*entities.Transcript, error)
	IngestPayload(payload map[string]interface{}) (*entities.Transcript, error)
	Score(ctx context.Context, t *entities.Transcript, opts ScoreOptions) (*Result, error)
	ProcessFile(ctx context.Context, filePath string, opts ScoreOptions) (*Result, error)
	Load(ctx context.Context, records []*entities.ScoredRecord) (int, error)
	ScoreAll(ctx context.Context, transcripts []*entities.Transcript, opts ScoreOptions) ([]*Result, []error)
	CompareModels(ctx context.Context, transcripts []*entities.Transcript, models []string) ([]ModelComparison, error)

	SubmitFile(ctx context.Context, bucket, filePath string, opts ScoreOptions) (*entities.ScoringJob, error)
	SubmitBatch(ctx context.Context, prefix string, maxFiles int, opts ScoreOptions) ([]*entities.ScoringJob, error)
	SubmitTranscript(ctx context.Context, t *entities.Transcript, opts ScoreOptions) (*entities.ScoringJob, error)
	GetJob(ctx context.Context, id string) (*entities.ScoringJob, error)
	StartWorkerPool(ctx context.Context, workerCount int) error
	StopWorkerPool() error
}

// Deps are the collaborators of the pipeline. Blobs, Cache, Records,
// Mappings and Recorder may be nil; the matching step is then skipped.
type Deps struct {
	Registry *importer.Registry
	Scorer   Scorer
	Blobs    repositories.BlobStore
	Cache    repositories.ScoreCache
	Records  repositories.RecordRepository
	Mappings repositories.ClientMappingRepository
	Jobs     repositories.JobRepository
	Recorder Recorder
	Logger   *zap.Logger
}

// Config holds pipeline tuning
type Config struct {
	// Concurrency bounds transcripts scored at once by ScoreAll
	Concurrency int
	CacheTTL    time.Duration
	QueueSize   int
	JobTimeout  time.Duration
	// ResultsPrefix is where scored records are archived in the blob store
	ResultsPrefix string
}

type pipelineService struct {
	registry *importer.Registry
	scorer   Scorer
	blobs    repositories.BlobStore
	cache    repositories.ScoreCache
	records  repositories.RecordRepository
	mappings repositories.ClientMappingRepository
	jobs     repositories.JobRepository
	recorder Recorder
	logger   *zap.Logger
	cfg      Config

	queue               chan queuedJob
	workerStopChan      chan struct{}
	workerWg            sync.WaitGroup
	isWorkerPoolRunning bool
	workerMutex         sync.Mutex
}

// NewService constructs the pipeline service
func NewService(deps Deps, cfg Config) Service {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 100
	}
	if cfg.ResultsPrefix == "" {
		cfg.ResultsPrefix = "results"
	}
	registry := deps.Registry
	if registry == nil {
		registry = importer.NewRegistry(importer.WithLogger(deps.Logger))
	}

	return &pipelineService{
		registry:       registry,
		scorer:         deps.Scorer,
		blobs:          deps.Blobs,
		cache:          deps.Cache,
		records:        deps.Records,
		mappings:       deps.Mappings,
		jobs:           deps.Jobs,
		recorder:       deps.Recorder,
		logger:         deps.Logger,
		cfg:            cfg,
		queue:          make(chan queuedJob, cfg.QueueSize),
		workerStopChan: make(chan struct{}),
	}
}

// Ingest imports one raw document
func (s *pipelineService) Ingest(name string, raw []byte) (*entities.Transcript, error) {
	t, err := s.registry.Parse(name, raw)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Failed to import transcript",
				zap.String("path", name),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return t, nil
}

// IngestPayload imports an automation payload that arrived already decoded
func (s *pipelineService) IngestPayload(payload map[string]interface{}) (*entities.Transcript, error) {
	t, err := s.registry.Zapier().ParsePayload(payload)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Failed to import automation payload", zap.Error(err))
		}
		return nil, err
	}
	return t, nil
}

// Score runs the opportunity track, and the sales track when requested,
// reusing a cached result for the same (meeting, model) when one exists.
// A cancelled context returns an error and writes nothing.
func (s *pipelineService) Score(ctx context.Context, t *entities.Transcript, opts ScoreOptions) (*Result, error) {
	if s.scorer == nil {
		return nil, fmt.Errorf("scorer is not configured")
	}
	if err := t.Validate(); err != nil {
		s.observe(StatusFailed)
		return nil, fmt.Errorf("%w: %w", ucerrors.ErrInvalidInput, err)
	}
	model := opts.Model
	if model == "" {
		model = s.scorer.DefaultModel()
	}

	if res := s.fromCache(ctx, t, model, opts.IncludeSales); res != nil {
		s.observe(StatusCached)
		return res, nil
	}

	opp, err := s.scorer.Score(ctx, t, model)
	if err != nil {
		s.observe(StatusFailed)
		return nil, fmt.Errorf("failed to score %s: %w", t.MeetingID, err)
	}

	var sales *entities.SalesResult
	if opts.IncludeSales {
		sales, err = s.scorer.ScoreSales(ctx, t, model, opp.ClientInfo.ClientName())
		if err != nil {
			s.observe(StatusFailed)
			return nil, fmt.Errorf("failed to score sales for %s: %w", t.MeetingID, err)
		}
	}

	if err := ctx.Err(); err != nil {
		s.observe(StatusFailed)
		return nil, err
	}

	res := &Result{
		Opportunity: opp,
		Sales:       sales,
		Record:      Assemble(t, opp, sales, s.loadMappings(ctx)),
	}
	s.storeCache(ctx, t.MeetingID, model, cachedScore{Opportunity: opp, Sales: sales})
	s.archive(ctx, res.Record)
	s.observe(StatusProcessed)

	if s.logger != nil {
		s.logger.Info("✅ Transcript scored",
			zap.String("meeting_id", t.MeetingID),
			zap.String("model", model),
			zap.Int("total_qualified_sections", opp.TotalQualifiedSections),
			zap.Bool("qualified", opp.Qualified),
			zap.Bool("sales", sales != nil),
		)
	}
	return res, nil
}

// ProcessFile fetches a transcript from the blob store, scores it and loads
// the record into the warehouse when one is configured.
func (s *pipelineService) ProcessFile(ctx context.Context, filePath string, opts ScoreOptions) (*Result, error) {
	if s.blobs == nil {
		return nil, ucerrors.ErrStorageDisabled
	}
	raw, err := s.blobs.Fetch(ctx, filePath)
	if err != nil {
		s.observe(StatusFailed)
		return nil, fmt.Errorf("failed to fetch %s: %w", filePath, err)
	}
	t, err := s.Ingest(filePath, raw)
	if err != nil {
		s.observe(StatusFailed)
		return nil, err
	}
	res, err := s.Score(ctx, t, opts)
	if err != nil {
		return nil, err
	}
	if err := s.upsert(ctx, res.Record); err != nil {
		return nil, err
	}
	return res, nil
}

// Load upserts records into the warehouse
func (s *pipelineService) Load(ctx context.Context, records []*entities.ScoredRecord) (int, error) {
	if s.records == nil {
		return 0, ucerrors.ErrWarehouseDisabled
	}
	return s.records.UpsertBatch(ctx, records)
}

func (s *pipelineService) upsert(ctx context.Context, record *entities.ScoredRecord) error {
	if s.records == nil {
		return nil
	}
	written, err := s.records.Upsert(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", record.MeetingID, err)
	}
	if !written && s.logger != nil {
		s.logger.Info("⏭️ Stored record is newer, skipped",
			zap.String("meeting_id", record.MeetingID),
		)
	}
	return nil
}

func (s *pipelineService) fromCache(ctx context.Context, t *entities.Transcript, model string, includeSales bool) *Result {
	if s.cache == nil {
		return nil
	}
	payload, ok, err := s.cache.Get(ctx, t.MeetingID, model)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Score cache read failed",
				zap.String("meeting_id", t.MeetingID),
				zap.Error(err),
			)
		}
		return nil
	}
	if !ok {
		return nil
	}

	var cached cachedScore
	if err := json.Unmarshal(payload, &cached); err != nil || cached.Opportunity == nil {
		return nil
	}

	sales := cached.Sales
	if !includeSales {
		sales = nil
	} else if sales == nil {
		// cached without the sales track; run it now, the entry stays as is
		sales, err = s.scorer.ScoreSales(ctx, t, model, cached.Opportunity.ClientInfo.ClientName())
		if err != nil {
			return nil
		}
	}

	return &Result{
		Opportunity: cached.Opportunity,
		Sales:       sales,
		Record:      Assemble(t, cached.Opportunity, sales, s.loadMappings(ctx)),
		Cached:      true,
	}
}

func (s *pipelineService) storeCache(ctx context.Context, meetingID, model string, v cachedScore) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if _, err := s.cache.PutIfAbsent(ctx, meetingID, model, payload, s.cfg.CacheTTL); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Score cache write failed",
			zap.String("meeting_id", meetingID),
			zap.Error(err),
		)
	}
}

// ArchivePath returns results/{YYYY-MM-DD}/{meeting_id}-{model}.json
func ArchivePath(prefix string, record *entities.ScoredRecord) string {
	name := fmt.Sprintf("%s-%s.json", record.MeetingID, record.LLMModel)
	return path.Join(prefix, record.ScoredAt.UTC().Format("2006-01-02"), name)
}

func (s *pipelineService) archive(ctx context.Context, record *entities.ScoredRecord) {
	if s.blobs == nil {
		return
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return
	}
	key := ArchivePath(s.cfg.ResultsPrefix, record)
	if err := s.blobs.Put(ctx, key, data, "application/json"); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Failed to archive scored record",
			zap.String("meeting_id", record.MeetingID),
			zap.String("path", key),
			zap.Error(err),
		)
	}
}

func (s *pipelineService) loadMappings(ctx context.Context) map[string]string {
	if s.mappings == nil {
		return nil
	}
	m, err := s.mappings.Load(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("⚠️ Failed to load client mappings", zap.Error(err))
		}
		return nil
	}
	return m
}

func (s *pipelineService) observe(status string) {
	if s.recorder != nil {
		s.recorder.ObserveTranscript(status)
	}
}
