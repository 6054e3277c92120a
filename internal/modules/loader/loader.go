// Package loader reads persisted raw series CSVs into typed, date-indexed
// series, and decodes the pull metadata manifest written by the collector.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/lluc-palou/wealth-preservation/internal/config"
	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
)

// Loader reads raw series files from a single directory.
type Loader struct {
	dir string
	log zerolog.Logger
}

// New creates a loader rooted at dir.
func New(dir string, log zerolog.Logger) *Loader {
	return &Loader{
		dir: dir,
		log: log.With().Str("component", "loader").Logger(),
	}
}

// Load reads one configured series CSV. The file must have a "date" column
// and the value column named by the series identifier. Empty value cells
// become NaN (missing observation). Rows come back sorted ascending by date.
//
// A missing file or a missing value column fails with ErrDataAccess.
func (l *Loader) Load(spec config.SeriesSpec) (*timeseries.Series, error) {
	path := filepath.Join(l.dir, spec.Filename)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("series %q: open %s: %w", spec.Key, path, timeseries.ErrDataAccess)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("series %q: read header of %s: %w", spec.Key, path, timeseries.ErrDataAccess)
	}

	dateIdx, valueIdx := -1, -1
	for i, col := range header {
		switch col {
		case "date":
			dateIdx = i
		case spec.Identifier:
			valueIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("series %q: no date column in %s: %w", spec.Key, path, timeseries.ErrDataAccess)
	}
	if valueIdx < 0 {
		return nil, fmt.Errorf("series %q: no %q column in %s: %w", spec.Key, spec.Identifier, path, timeseries.ErrDataAccess)
	}

	var points []timeseries.Point
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("series %q: read %s line %d: %w", spec.Key, spec.Filename, line, err)
		}

		date, err := time.Parse("2006-01-02", record[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("series %q: %s line %d: bad date %q: %w", spec.Key, spec.Filename, line, record[dateIdx], err)
		}

		value := math.NaN()
		if raw := record[valueIdx]; raw != "" {
			value, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("series %q: %s line %d: bad value %q: %w", spec.Key, spec.Filename, line, raw, err)
			}
		}

		points = append(points, timeseries.Point{Date: date.UTC(), Value: value})
	}

	s := timeseries.NewSeries(spec.Key, spec.Name, spec.Source, spec.Identifier, timeseries.Frequency(spec.Frequency), points)

	l.log.Debug().
		Str("series", spec.Key).
		Int("observations", s.Len()).
		Int("missing", s.MissingCount()).
		Msg("Loaded raw series")

	return s, nil
}

// LoadAll loads every configured series, in configuration order.
func (l *Loader) LoadAll(specs []config.SeriesSpec) ([]*timeseries.Series, error) {
	series := make([]*timeseries.Series, 0, len(specs))
	for _, spec := range specs {
		s, err := l.Load(spec)
		if err != nil {
			return nil, err
		}
		series = append(series, s)
	}

	l.log.Info().Int("count", len(series)).Msg("Loaded raw series")
	return series, nil
}
