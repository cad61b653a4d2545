package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
	"github.com/johnquangdev/meeting-intel/pkg/jobcontext"
)

// queuedJob is one unit of background work. transcript is set for webhook
// submissions, which arrive already imported.
type queuedJob struct {
	job        *entities.ScoringJob
	transcript *entities.Transcript
	opts       ScoreOptions
}

// SubmitFile queues one blob path for background scoring
func (s *pipelineService) SubmitFile(ctx context.Context, bucket, filePath string, opts ScoreOptions) (*entities.ScoringJob, error) {
	if s.blobs == nil {
		return nil, ucerrors.ErrStorageDisabled
	}
	job := entities.NewScoringJob(entities.ScoringJobTypeFile, filePath, s.modelFor(opts))
	job.Bucket = bucket
	job.IncludeSales = opts.IncludeSales
	return s.enqueue(ctx, queuedJob{job: job, opts: opts})
}

// SubmitBatch lists transcripts under prefix and queues up to maxFiles of them
func (s *pipelineService) SubmitBatch(ctx context.Context, prefix string, maxFiles int, opts ScoreOptions) ([]*entities.ScoringJob, error) {
	if s.blobs == nil {
		return nil, ucerrors.ErrStorageDisabled
	}
	paths, err := s.blobs.List(ctx, prefix, maxFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	jobs := make([]*entities.ScoringJob, 0, len(paths))
	for _, p := range paths {
		job := entities.NewScoringJob(entities.ScoringJobTypeBatch, p, s.modelFor(opts))
		job.IncludeSales = opts.IncludeSales
		queued, err := s.enqueue(ctx, queuedJob{job: job, opts: opts})
		if err != nil {
			return jobs, err
		}
		jobs = append(jobs, queued)
	}

	if s.logger != nil {
		s.logger.Info("📦 Batch queued",
			zap.String("prefix", prefix),
			zap.Int("files", len(jobs)),
		)
	}
	return jobs, nil
}

// SubmitTranscript queues an already imported transcript
func (s *pipelineService) SubmitTranscript(ctx context.Context, t *entities.Transcript, opts ScoreOptions) (*entities.ScoringJob, error) {
	job := entities.NewScoringJob(entities.ScoringJobTypeWebhook, "", s.modelFor(opts))
	job.MeetingID = t.MeetingID
	job.IncludeSales = opts.IncludeSales
	return s.enqueue(ctx, queuedJob{job: job, transcript: t, opts: opts})
}

// GetJob returns a snapshot of a job
func (s *pipelineService) GetJob(ctx context.Context, id string) (*entities.ScoringJob, error) {
	return s.jobs.Get(ctx, id)
}

func (s *pipelineService) modelFor(opts ScoreOptions) string {
	if opts.Model != "" || s.scorer == nil {
		return opts.Model
	}
	return s.scorer.DefaultModel()
}

// enqueue records the job and hands it to the worker pool. The returned job
// is a copy; workers own the queued one.
func (s *pipelineService) enqueue(ctx context.Context, item queuedJob) (*entities.ScoringJob, error) {
	if err := s.jobs.Create(ctx, item.job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	snapshot := *item.job

	select {
	case s.queue <- item:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if s.logger != nil {
		s.logger.Info("📥 Job queued",
			zap.String("job_id", snapshot.ID.String()),
			zap.String("job_type", string(snapshot.JobType)),
			zap.String("file_path", snapshot.FilePath),
		)
	}
	return &snapshot, nil
}

// StartWorkerPool starts background workers draining the job queue
func (s *pipelineService) StartWorkerPool(ctx context.Context, workerCount int) error {
	s.workerMutex.Lock()
	defer s.workerMutex.Unlock()

	if s.isWorkerPoolRunning {
		return fmt.Errorf("worker pool already running")
	}
	if workerCount < 1 {
		workerCount = 1
	}

	s.isWorkerPoolRunning = true
	s.workerStopChan = make(chan struct{})

	if s.logger != nil {
		s.logger.Info("🚀 Starting pipeline worker pool",
			zap.Int("worker_count", workerCount),
		)
	}

	for i := 0; i < workerCount; i++ {
		s.workerWg.Add(1)
		go s.worker(ctx, i)
	}
	return nil
}

// StopWorkerPool gracefully stops all worker goroutines. Jobs still queued
// stay pending.
func (s *pipelineService) StopWorkerPool() error {
	s.workerMutex.Lock()
	defer s.workerMutex.Unlock()

	if !s.isWorkerPoolRunning {
		return fmt.Errorf("worker pool not running")
	}

	if s.logger != nil {
		s.logger.Info("🛑 Stopping pipeline worker pool...")
	}

	close(s.workerStopChan)
	s.workerWg.Wait()
	s.isWorkerPoolRunning = false

	if s.logger != nil {
		s.logger.Info("✅ Pipeline worker pool stopped")
	}
	return nil
}

func (s *pipelineService) worker(parentCtx context.Context, workerID int) {
	defer s.workerWg.Done()

	if s.logger != nil {
		s.logger.Info("👷 Worker started", zap.Int("worker_id", workerID))
	}

	for {
		select {
		case <-s.workerStopChan:
			if s.logger != nil {
				s.logger.Info("👷 Worker stopping", zap.Int("worker_id", workerID))
			}
			return
		case <-parentCtx.Done():
			return
		case item := <-s.queue:
			s.runJob(parentCtx, workerID, item)
		}
	}
}

func (s *pipelineService) runJob(parentCtx context.Context, workerID int, item queuedJob) {
	job := item.job
	job.MarkAsProcessing()
	s.saveJob(parentCtx, job)

	if s.logger != nil {
		s.logger.Info("👷 Worker claimed job",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("file_path", job.FilePath),
		)
	}

	jobCtx, cancel := jobcontext.JobBegin(parentCtx, job.ID, string(job.JobType), workerID, s.cfg.JobTimeout)
	var res *Result
	err := jobcontext.JobEnd(jobCtx, func(ctx context.Context) error {
		if meta := jobcontext.GetJobMetadata(ctx); meta.RetryAttempt > 0 && s.logger != nil {
			s.logger.Warn("🔁 Retrying job",
				zap.String("job_id", meta.JobID.String()),
				zap.Int("worker_id", meta.WorkerID),
				zap.Int("attempt", meta.RetryAttempt+1),
				zap.Int("max_retries", meta.MaxRetries),
				zap.Duration("elapsed", time.Since(meta.StartTime)),
			)
		}
		var err error
		res, err = s.execute(ctx, item)
		return err
	})
	cancel()

	if err != nil {
		if s.logger != nil {
			s.logger.Error("❌ Job failed",
				zap.String("job_id", job.ID.String()),
				zap.String("file_path", job.FilePath),
				zap.Error(err),
			)
		}
		job.MarkAsFailed(err.Error())
	} else {
		if s.logger != nil {
			s.logger.Info("✅ Job completed successfully",
				zap.String("job_id", job.ID.String()),
				zap.String("meeting_id", res.Record.MeetingID),
			)
		}
		job.MarkAsCompleted(res.Record.MeetingID, res.Opportunity.TotalQualifiedSections, res.Opportunity.Qualified, res.Cached)
	}
	s.saveJob(parentCtx, job)
}

func (s *pipelineService) execute(ctx context.Context, item queuedJob) (*Result, error) {
	if item.transcript == nil {
		return s.ProcessFile(ctx, item.job.FilePath, item.opts)
	}
	res, err := s.Score(ctx, item.transcript, item.opts)
	if err != nil {
		return nil, err
	}
	if err := s.upsert(ctx, res.Record); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *pipelineService) saveJob(ctx context.Context, job *entities.ScoringJob) {
	if err := s.jobs.Update(ctx, job); err != nil && s.logger != nil {
		s.logger.Error("❌ Failed to update job",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}
