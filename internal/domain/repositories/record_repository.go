package repositories

import (
	"context"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// RecordRepository is the warehouse loader: idempotent upsert keyed by meeting id
type RecordRepository interface {
	// Upsert writes the record unless a stored row for the same meeting has a
	// newer scored_at. It reports whether the row was written.
	Upsert(ctx context.Context, record *entities.ScoredRecord) (bool, error)
	UpsertBatch(ctx context.Context, records []*entities.ScoredRecord) (int, error)

	GetByMeetingID(ctx context.Context, meetingID string) (*entities.ScoredRecord, error)
	Recent(ctx context.Context, limit int) ([]*entities.ScoredRecord, error)
	Info(ctx context.Context) (*entities.WarehouseInfo, error)

	// Dedupe keeps only the latest scored_at row per meeting id
	Dedupe(ctx context.Context) (int64, error)

	SalesSummary(ctx context.Context, days int) ([]entities.SalespersonSummary, error)
}

// ClientMappingRepository stores client-name canonicalisation rules
type ClientMappingRepository interface {
	List(ctx context.Context) ([]*entities.ClientMapping, error)
	Save(ctx context.Context, mapping *entities.ClientMapping) error
	Delete(ctx context.Context, variant string) error
	// Load returns normalised variant -> canonical name
	Load(ctx context.Context) (map[string]string, error)
}

// JobRepository tracks pipeline jobs for the lifetime of the process
type JobRepository interface {
	Create(ctx context.Context, job *entities.ScoringJob) error
	Get(ctx context.Context, id string) (*entities.ScoringJob, error)
	Update(ctx context.Context, job *entities.ScoringJob) error
	List(ctx context.Context, limit int) ([]*entities.ScoringJob, error)
}
