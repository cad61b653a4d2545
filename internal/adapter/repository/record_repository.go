package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
)

// recordRepository implements the RecordRepository interface
type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a new warehouse repository
func NewRecordRepository(db *gorm.DB) repositories.RecordRepository {
	return &recordRepository{db: db}
}

// upsertClause replaces every column unless the stored row was scored later
var upsertClause = clause.OnConflict{
	Columns:   []clause.Column{{Name: "meeting_id"}},
	UpdateAll: true,
	Where: clause.Where{Exprs: []clause.Expression{
		clause.Expr{SQL: "meeting_intel.scored_at <= excluded.scored_at"},
	}},
}

// Upsert writes one record keyed by meeting id
func (r *recordRepository) Upsert(ctx context.Context, record *entities.ScoredRecord) (bool, error) {
	return upsert(r.db.WithContext(ctx), record)
}

func upsert(db *gorm.DB, record *entities.ScoredRecord) (bool, error) {
	if record == nil {
		return false, errors.New("record cannot be nil")
	}
	result := db.Clauses(upsertClause).Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpsertBatch upserts records in one transaction and returns how many were written
func (r *recordRepository) UpsertBatch(ctx context.Context, records []*entities.ScoredRecord) (int, error) {
	written := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			ok, err := upsert(tx, record)
			if err != nil {
				return fmt.Errorf("failed to upsert %s: %w", record.MeetingID, err)
			}
			if ok {
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// GetByMeetingID retrieves the stored record for a meeting
func (r *recordRepository) GetByMeetingID(ctx context.Context, meetingID string) (*entities.ScoredRecord, error) {
	var record entities.ScoredRecord
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ucerrors.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Recent retrieves the most recently scored records
func (r *recordRepository) Recent(ctx context.Context, limit int) ([]*entities.ScoredRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var records []*entities.ScoredRecord
	if err := r.db.WithContext(ctx).
		Order("scored_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Info summarises the warehouse table
func (r *recordRepository) Info(ctx context.Context) (*entities.WarehouseInfo, error) {
	db := r.db.WithContext(ctx)
	info := &entities.WarehouseInfo{Table: entities.ScoredRecord{}.TableName()}

	if err := db.Model(&entities.ScoredRecord{}).Count(&info.Rows).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&entities.ScoredRecord{}).
		Where("qualified = ?", true).
		Count(&info.QualifiedRows).Error; err != nil {
		return nil, err
	}

	var latest sql.NullTime
	if err := db.Model(&entities.ScoredRecord{}).
		Select("MAX(scored_at)").
		Row().Scan(&latest); err != nil {
		return nil, err
	}
	if latest.Valid {
		info.LatestScoredAt = &latest.Time
	}
	return info, nil
}

// Dedupe deletes every row except the latest scored_at per meeting id
func (r *recordRepository) Dedupe(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Exec(`
		DELETE FROM meeting_intel a
		USING meeting_intel b
		WHERE a.meeting_id = b.meeting_id
		  AND (a.scored_at < b.scored_at OR (a.scored_at = b.scored_at AND a.id < b.id))`)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SalesSummary aggregates sales scores per salesperson over the last days
func (r *recordRepository) SalesSummary(ctx context.Context, days int) ([]entities.SalespersonSummary, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var rows []entities.SalespersonSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			salesperson_name,
			COALESCE(salesperson_email, '') AS salesperson_email,
			COUNT(*) AS total_meetings,
			AVG(sales_total_score)::float8 AS avg_total_score,
			AVG(sales_total_qualified)::float8 AS avg_qualified,
			AVG(CASE WHEN sales_qualified THEN 1 ELSE 0 END)::float8 AS qualification_rate,
			MAX(sales_total_score) AS best_score,
			MIN(sales_total_score) AS worst_score
		FROM meeting_intel
		WHERE salesperson_name IS NOT NULL
		  AND sales_total_score IS NOT NULL
		  AND date >= ?
		GROUP BY salesperson_name, salesperson_email
		ORDER BY avg_total_score DESC`, since).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
