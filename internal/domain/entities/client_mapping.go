package entities

import (
	"strings"
	"time"
)

// ClientMapping maps a client-name variant onto its canonical spelling
type ClientMapping struct {
	VariantName   string    `json:"variant_name" gorm:"type:varchar(255);primaryKey"`
	CanonicalName string    `json:"canonical_name" gorm:"type:varchar(255);not null"`
	Notes         string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ClientMapping) TableName() string {
	return "client_mappings"
}

// NormalizeVariant is the lookup form of a client name
func NormalizeVariant(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks both names are present
func (m *ClientMapping) Validate() error {
	if strings.TrimSpace(m.VariantName) == "" {
		return ErrEmptyVariant
	}
	if strings.TrimSpace(m.CanonicalName) == "" {
		return ErrEmptyCanonical
	}
	return nil
}
