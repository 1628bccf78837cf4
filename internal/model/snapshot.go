package model

import "time"

// RegistryVersion is the snapshot format written by this build.
const RegistryVersion = "1.0.0"

// RegistrySnapshot is the persisted form of the provider registry.
type RegistrySnapshot struct {
	LastUpdated time.Time       `json:"lastUpdated"`
	Schema      *SnapshotSchema `json:"schema,omitempty"`
	Version     string          `json:"version"`
	Rules       []ProviderRule  `json:"rules"`
}

// SnapshotSchema describes the file for people editing it by hand. It is
// informational and ignored on load.
type SnapshotSchema struct {
	Description     string     `json:"description"`
	PatternFormat   string     `json:"pattern_format"`
	RequiredFields  []string   `json:"required_fields"`
	ConfidenceRange [2]float64 `json:"confidence_range"`
}

// DefaultSnapshotSchema returns the descriptive block written into every snapshot.
func DefaultSnapshotSchema() *SnapshotSchema {
	return &SnapshotSchema{
		Description:     "Provider mapping configuration file",
		PatternFormat:   "regex",
		RequiredFields:  []string{"pattern", "provider", "confidence", "last_used"},
		ConfidenceRange: [2]float64{0, 1},
	}
}

// NewSnapshot returns an empty snapshot at the current format version.
func NewSnapshot() *RegistrySnapshot {
	return &RegistrySnapshot{
		Version: RegistryVersion,
		Schema:  DefaultSnapshotSchema(),
		Rules:   []ProviderRule{},
	}
}
