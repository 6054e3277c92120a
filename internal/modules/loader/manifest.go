package loader

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry records the provenance of one pulled series. The core
// pipeline consumes this read-only; it is informational, never validated
// against the CSVs.
type ManifestEntry struct {
	Name       string  `json:"name"`
	Source     string  `json:"source"`
	Identifier string  `json:"identifier"`
	Frequency  string  `json:"frequency"`
	Filename   string  `json:"filename"`
	DateStart  *string `json:"date_start"`
	DateEnd    *string `json:"date_end"`
	NumObs     int     `json:"n_obs"`
	NumMissing int     `json:"n_nans"`
	PulledAt   string  `json:"pulled_at"`
}

// Manifest summarizes one pull session across all series.
type Manifest struct {
	PullTimestamp string                   `json:"pull_timestamp"`
	StartDate     string                   `json:"start_date"`
	EndDate       string                   `json:"end_date"`
	NumSeries     int                      `json:"n_series"`
	Series        map[string]ManifestEntry `json:"series"` // keyed by filename
}

// ReadManifest decodes a metadata manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// WriteManifest writes a metadata manifest file with stable indentation.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}
