// Package pipeline sequences the processing stages: load raw series, align
// them to the monthly calendar, derive analysis features, and persist the
// final table. A failure at any stage aborts the run; there is no partial
// output and no checkpointed resumption, every run is a full recomputation.
package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/lluc-palou/wealth-preservation/internal/config"
	"github.com/lluc-palou/wealth-preservation/internal/modules/align"
	"github.com/lluc-palou/wealth-preservation/internal/modules/features"
	"github.com/lluc-palou/wealth-preservation/internal/modules/loader"
)

// Pipeline runs the full processing sequence over one configured study.
type Pipeline struct {
	cfg  *config.Config
	plan *config.Pipeline
	log  zerolog.Logger
}

// New creates a pipeline for the given configuration.
func New(cfg *config.Config, plan *config.Pipeline, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:  cfg,
		plan: plan,
		log:  log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes load -> align -> features -> persist in strict sequence.
func (p *Pipeline) Run() error {
	p.log.Info().Msg("Starting data processing pipeline")

	clip, err := p.plan.ClipDate()
	if err != nil {
		return err
	}

	rawDir := filepath.Join(p.cfg.DataDir, p.plan.RawDir)
	series, err := loader.New(rawDir, p.log).LoadAll(p.plan.Series)
	if err != nil {
		return fmt.Errorf("load stage: %w", err)
	}

	aligned, err := align.New(clip, p.log).Align(series)
	if err != nil {
		return fmt.Errorf("align stage: %w", err)
	}

	analysis, err := features.New(p.plan.Features, p.log).Build(aligned)
	if err != nil {
		return fmt.Errorf("feature stage: %w", err)
	}

	outPath := filepath.Join(p.cfg.DataDir, p.plan.ProcessedDir, p.plan.OutputFile)
	if err := WriteFrame(outPath, analysis); err != nil {
		return fmt.Errorf("persist stage: %w", err)
	}

	p.log.Info().
		Str("path", outPath).
		Int("rows", analysis.NumRows()).
		Int("columns", analysis.NumCols()).
		Msg("Analysis table saved")

	return nil
}
