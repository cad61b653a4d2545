package importer

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

//go:embed mapping.yaml
var defaultMappingYAML []byte

// FieldMapping is the synonym table for automation payloads
type FieldMapping struct {
	Fields   map[string][]string `koanf:"field_mappings"`
	Defaults map[string]string   `koanf:"default_values"`
}

// Candidates returns the payload keys tried for a logical field
func (m *FieldMapping) Candidates(field string) []string {
	if m == nil {
		return nil
	}
	return m.Fields[field]
}

// Default returns the configured default for a logical field
func (m *FieldMapping) Default(field, fallback string) string {
	if m != nil {
		if v, ok := m.Defaults[field]; ok && v != "" {
			return v
		}
	}
	return fallback
}

// DefaultFieldMapping returns the embedded synonym table
func DefaultFieldMapping() *FieldMapping {
	m, err := LoadFieldMapping("")
	if err != nil {
		// The embedded table is compiled in; failing to read it is a build defect
		panic(err)
	}
	return m
}

// LoadFieldMapping loads the embedded table and merges an optional override
// file on top. Keys present in the override replace the embedded lists.
func LoadFieldMapping(overridePath string) (*FieldMapping, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultMappingYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load embedded field mapping: %w", err)
	}

	if overridePath != "" {
		content, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read field mapping %s: %w", overridePath, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load field mapping %s: %w", overridePath, err)
		}
	}

	var m FieldMapping
	if err := k.Unmarshal("", &m); err != nil {
		return nil, fmt.Errorf("failed to decode field mapping: %w", err)
	}
	return &m, nil
}
