// Package main is the entry point for the wealth-preservation data pipeline.
// It exposes three commands: collect (pull raw series from the data
// providers), process (align and feature-engineer the persisted raw series),
// and run (both, optionally on a recurring cron schedule).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lluc-palou/wealth-preservation/internal/config"
	"github.com/lluc-palou/wealth-preservation/internal/modules/collect"
	"github.com/lluc-palou/wealth-preservation/internal/pipeline"
	"github.com/lluc-palou/wealth-preservation/internal/scheduler"
	"github.com/lluc-palou/wealth-preservation/pkg/logger"
)

const version = "1.0.0"

type app struct {
	cfg  *config.Config
	plan *config.Pipeline
	log  zerolog.Logger
}

// setup loads environment configuration, the pipeline YAML and the logger.
// The --config flag overrides the PIPELINE_CONFIG environment variable.
func setup(configFlag string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if configFlag != "" {
		cfg.PipelinePath = configFlag
	}

	plan, err := config.LoadPipeline(cfg.PipelinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.Pretty,
	})
	logger.SetGlobalLogger(log)

	return &app{cfg: cfg, plan: plan, log: log}, nil
}

// fullRun is the scheduler job for recurring recomputations: a complete
// collect followed by a complete process, every time.
type fullRun struct {
	app *app
}

func (j *fullRun) Name() string { return "full-recompute" }

func (j *fullRun) Run() error {
	if err := collect.New(j.app.cfg, j.app.plan, j.app.log).Run(context.Background()); err != nil {
		return err
	}
	return pipeline.New(j.app.cfg, j.app.plan, j.app.log).Run()
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "pipeline",
		Short:   "Fiat debasement and wealth preservation data pipeline",
		Version: version,
		Long: `Batch pipeline for the fiat debasement study: collects macro and market
time series, aligns them onto a single monthly calendar and derives the
analysis-ready feature table.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to pipeline YAML config (default: built-in study configuration)")

	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Pull raw series from FRED and the market data API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(configPath)
			if err != nil {
				return err
			}
			return collect.New(a.cfg, a.plan, a.log).Run(cmd.Context())
		},
	}

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Align persisted raw series and build the analysis table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(configPath)
			if err != nil {
				return err
			}
			return pipeline.New(a.cfg, a.plan, a.log).Run()
		},
	}

	var schedule string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Collect and process in one go, optionally on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(configPath)
			if err != nil {
				return err
			}

			job := &fullRun{app: a}
			if schedule == "" {
				return job.Run()
			}

			sched := scheduler.New(a.log)
			if err := sched.AddJob(schedule, job); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}
			sched.Start()
			defer sched.Stop()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			a.log.Info().Msg("Shutting down")
			return nil
		},
	}
	runCmd.Flags().StringVar(&schedule, "schedule", "", `Cron schedule with seconds field (e.g. "0 0 6 * * *"); empty runs once`)

	rootCmd.AddCommand(collectCmd, processCmd, runCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
