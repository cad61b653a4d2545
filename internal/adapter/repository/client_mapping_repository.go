package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
	"github.com/johnquangdev/meeting-intel/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/meeting-intel/internal/usecase/errors"
)

type clientMappingRepository struct {
	db *gorm.DB
}

// NewClientMappingRepository creates a new client mapping repository
func NewClientMappingRepository(db *gorm.DB) repositories.ClientMappingRepository {
	return &clientMappingRepository{db: db}
}

// List returns every mapping ordered by canonical name
func (r *clientMappingRepository) List(ctx context.Context) ([]*entities.ClientMapping, error) {
	var mappings []*entities.ClientMapping
	if err := r.db.WithContext(ctx).
		Order("canonical_name ASC, variant_name ASC").
		Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

// Save inserts a mapping or replaces the canonical name of an existing variant
func (r *clientMappingRepository) Save(ctx context.Context, mapping *entities.ClientMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	mapping.VariantName = entities.NormalizeVariant(mapping.VariantName)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"canonical_name", "notes", "updated_at"}),
		}).
		Create(mapping).Error
}

// Delete removes the mapping for a variant
func (r *clientMappingRepository) Delete(ctx context.Context, variant string) error {
	result := r.db.WithContext(ctx).
		Where("variant_name = ?", entities.NormalizeVariant(variant)).
		Delete(&entities.ClientMapping{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ucerrors.ErrMappingNotFound
	}
	return nil
}

// Load returns normalised variant -> canonical name
func (r *clientMappingRepository) Load(ctx context.Context) (map[string]string, error) {
	mappings, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(mappings))
	for _, m := range mappings {
		out[entities.NormalizeVariant(m.VariantName)] = m.CanonicalName
	}
	return out, nil
}
