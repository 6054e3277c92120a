// Package collect implements the raw acquisition stage: it pulls the
// configured macro series from FRED and the market price series from the
// chart API, saves each as an individual CSV in the raw data directory, and
// records pull metadata in metadata.json for reproducibility.
//
// A failed pull for one series is logged and skipped, and the manifest records
// only successful pulls, so a transient provider outage does not abort the
// whole session. The processing stage performs its own completeness checks.
package collect

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lluc-palou/wealth-preservation/internal/config"
	"github.com/lluc-palou/wealth-preservation/internal/modules/loader"
	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
)

// Collector pulls every configured raw series and persists CSVs plus manifest.
type Collector struct {
	cfg     *config.Config
	plan    *config.Pipeline
	fred    *FredClient
	market  *MarketClient
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New creates a collector. Pulls are paced at two per second, which keeps the
// session well inside FRED's courtesy rate limit.
func New(cfg *config.Config, plan *config.Pipeline, log zerolog.Logger) *Collector {
	return &Collector{
		cfg:     cfg,
		plan:    plan,
		fred:    NewFredClient(cfg.FredAPIKey, log),
		market:  NewMarketClient(log),
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		log:     log.With().Str("component", "collector").Logger(),
	}
}

// Run pulls all configured series and writes the per-series CSVs and the
// metadata manifest into the raw data directory.
func (c *Collector) Run(ctx context.Context) error {
	if c.cfg.FredAPIKey == "" {
		return fmt.Errorf("FRED_API_KEY is not set; get a free key at https://fred.stlouisfed.org/docs/api/api_key.html")
	}

	start, end, err := c.plan.CollectWindow()
	if err != nil {
		return err
	}

	rawDir := filepath.Join(c.cfg.DataDir, c.plan.RawDir)
	if err := os.MkdirAll(rawDir, 0755); err != nil {
		return fmt.Errorf("failed to create raw data directory: %w", err)
	}

	pulledAt := time.Now().UTC().Format(time.RFC3339)
	c.log.Info().
		Time("from", start).
		Time("to", end).
		Str("dir", rawDir).
		Msg("Starting raw data collection")

	entries := make(map[string]loader.ManifestEntry)
	for _, spec := range c.plan.Series {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("collection cancelled: %w", err)
		}

		points, err := c.fetch(ctx, spec, start, end)
		if err != nil {
			c.log.Error().
				Err(err).
				Str("series", spec.Key).
				Str("identifier", spec.Identifier).
				Msg("Pull failed, skipping series")
			continue
		}

		series := timeseries.NewSeries(spec.Key, spec.Name, spec.Source, spec.Identifier,
			timeseries.Frequency(spec.Frequency), points)

		path := filepath.Join(rawDir, spec.Filename)
		if err := writeSeriesCSV(path, spec.Identifier, series); err != nil {
			return err
		}

		c.log.Info().
			Str("series", spec.Key).
			Str("source", spec.Source).
			Time("from", series.Start()).
			Time("to", series.End()).
			Int("observations", series.Len()).
			Int("missing", series.MissingCount()).
			Msg("Pulled series")

		entries[spec.Filename] = manifestEntry(spec, series, pulledAt)
	}

	manifest := &loader.Manifest{
		PullTimestamp: pulledAt,
		StartDate:     start.Format("2006-01-02"),
		EndDate:       end.Format("2006-01-02"),
		NumSeries:     len(entries),
		Series:        entries,
	}
	if err := loader.WriteManifest(filepath.Join(rawDir, "metadata.json"), manifest); err != nil {
		return err
	}

	c.log.Info().Int("series", len(entries)).Msg("Collection complete")
	return nil
}

func (c *Collector) fetch(ctx context.Context, spec config.SeriesSpec, start, end time.Time) ([]timeseries.Point, error) {
	switch spec.Source {
	case "fred":
		return c.fred.GetObservations(ctx, spec.Identifier, start, end)
	case "market":
		return c.market.GetDailyCloses(ctx, spec.Identifier, start, end)
	default:
		return nil, fmt.Errorf("series %q has unknown source %q", spec.Key, spec.Source)
	}
}

// writeSeriesCSV persists one series as date + named value column. Missing
// observations become empty cells, which the loader maps back to NaN.
func writeSeriesCSV(path, valueColumn string, series *timeseries.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", valueColumn}); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", path, err)
	}

	for _, p := range series.Points() {
		value := ""
		if !math.IsNaN(p.Value) {
			value = strconv.FormatFloat(p.Value, 'g', -1, 64)
		}
		if err := w.Write([]string{p.Date.Format("2006-01-02"), value}); err != nil {
			return fmt.Errorf("failed to write row of %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func manifestEntry(spec config.SeriesSpec, series *timeseries.Series, pulledAt string) loader.ManifestEntry {
	entry := loader.ManifestEntry{
		Name:       spec.Name,
		Source:     spec.Source,
		Identifier: spec.Identifier,
		Frequency:  spec.Frequency,
		Filename:   spec.Filename,
		NumObs:     series.Len(),
		NumMissing: series.MissingCount(),
		PulledAt:   pulledAt,
	}

	if series.Len() > 0 {
		start := series.Start().Format("2006-01-02")
		end := series.End().Format("2006-01-02")
		entry.DateStart = &start
		entry.DateEnd = &end
	}

	return entry
}
