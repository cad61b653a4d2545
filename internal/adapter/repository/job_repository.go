package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
)

// memoryJobRepository keeps jobs for the lifetime of the process. Callers
// always get copies, so a job can be read while a worker updates it.
type memoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]entities.ScoringJob
}

// NewMemoryJobRepository creates an empty in-process job store
func NewMemoryJobRepository() repositories.JobRepository {
	return &memoryJobRepository{jobs: make(map[string]entities.ScoringJob)}
}

// Create stores a new job
func (r *memoryJobRepository) Create(ctx context.Context, job *entities.ScoringJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := job.ID.String()
	if _, ok := r.jobs[id]; ok {
		return ucerrors.ErrJobExists
	}
	r.jobs[id] = *job
	return nil
}

// Get retrieves a job by ID
func (r *memoryJobRepository) Get(ctx context.Context, id string) (*entities.ScoringJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ucerrors.ErrJobNotFound
	}
	return &job, nil
}

// Update replaces a stored job
func (r *memoryJobRepository) Update(ctx context.Context, job *entities.ScoringJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := job.ID.String()
	if _, ok := r.jobs[id]; !ok {
		return ucerrors.ErrJobNotFound
	}
	r.jobs[id] = *job
	return nil
}

// List returns the newest jobs first
func (r *memoryJobRepository) List(ctx context.Context, limit int) ([]*entities.ScoringJob, error) {
	r.mu.RLock()
	out := make([]*entities.ScoringJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, &job)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
