// Package features derives the analysis columns from the aligned monthly
// table: debasement indicators, asset log returns, the real-cash-return
// baseline, excess-return spreads, full-sample z-scores and the composite
// debasement score.
//
// The stages run in a fixed dependency order and each consumes only columns
// already present. Every stage is a pure Frame -> Frame step: the input frame
// is cloned, never mutated, so the derivation composes as a function chain.
package features

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/lluc-palou/wealth-preservation/internal/config"
	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
	"github.com/lluc-palou/wealth-preservation/pkg/formulas"
)

// yoyMonths is the lookback of the year-over-year change on the monthly axis.
const yoyMonths = 12

// Engine derives all analysis features from an aligned monthly frame.
type Engine struct {
	cfg config.FeatureConfig
	log zerolog.Logger
}

// New creates a feature engine with the configured column wiring.
func New(cfg config.FeatureConfig, log zerolog.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: log.With().Str("component", "features").Logger(),
	}
}

// Build runs every feature stage in order and drops the rows invalidated by
// the lookback windows (12 months for YoY, 1 month for returns).
func (e *Engine) Build(frame *timeseries.Frame) (*timeseries.Frame, error) {
	stages := []struct {
		name string
		fn   func(*timeseries.Frame) (*timeseries.Frame, error)
	}{
		{"debasement_indicators", e.debasementIndicators},
		{"asset_returns", e.assetReturns},
		{"cash_real_return", e.cashRealReturn},
		{"spreads", e.spreads},
		{"standardize", e.standardize},
		{"composite", e.composite},
	}

	out := frame
	var err error
	for _, stage := range stages {
		out, err = stage.fn(out)
		if err != nil {
			return nil, fmt.Errorf("feature stage %s: %w", stage.name, err)
		}
	}

	out, dropped := out.DropMissingRows()

	e.log.Info().
		Int("rows", out.NumRows()).
		Int("columns", out.NumCols()).
		Time("from", out.Start()).
		Time("to", out.End()).
		Int("rows_dropped", dropped).
		Strs("column_list", out.Columns()).
		Msg("Feature engineering complete")

	return out, nil
}

// debasementIndicators derives the four debasement signals from the money
// supply, price index and output levels, then drops those raw level columns.
func (e *Engine) debasementIndicators(frame *timeseries.Frame) (*timeseries.Frame, error) {
	money, err := column(frame, e.cfg.MoneySupplyColumn)
	if err != nil {
		return nil, err
	}
	prices, err := column(frame, e.cfg.PriceIndexColumn)
	if err != nil {
		return nil, err
	}
	output, err := column(frame, e.cfg.OutputColumn)
	if err != nil {
		return nil, err
	}

	moneyYoY := formulas.PercentChange(money, yoyMonths)
	priceYoY := formulas.PercentChange(prices, yoyMonths)

	// Real money growth: monetary expansion in excess of realized inflation.
	realGrowth := make([]float64, len(moneyYoY))
	for i := range realGrowth {
		realGrowth[i] = moneyYoY[i] - priceYoY[i]
	}

	// Money-to-output: how much money exists relative to the size of the economy.
	ratio := make([]float64, len(money))
	for i := range ratio {
		ratio[i] = money[i] / output[i]
	}

	out := frame.Clone()
	set(out, e.cfg.MoneyYoYColumn, moneyYoY)
	set(out, e.cfg.PriceYoYColumn, priceYoY)
	set(out, e.cfg.RealGrowthColumn, realGrowth)
	set(out, e.cfg.MoneyToOutputColumn, ratio)
	out.DropColumns(e.cfg.MoneySupplyColumn, e.cfg.PriceIndexColumn, e.cfg.OutputColumn)
	return out, nil
}

// assetReturns derives the monthly log return for each configured asset and
// drops the raw price columns.
func (e *Engine) assetReturns(frame *timeseries.Frame) (*timeseries.Frame, error) {
	out := frame.Clone()
	for _, asset := range e.cfg.Assets {
		prices, err := column(frame, asset.PriceColumn)
		if err != nil {
			return nil, err
		}
		set(out, asset.ReturnColumn, formulas.LogReturns(prices))
		out.DropColumns(asset.PriceColumn)
	}
	return out, nil
}

// cashRealReturn approximates the monthly real return of holding cash as
// (nominal rate - YoY inflation) / 12, converted from percent to a fraction.
// Both inputs are annualized percentages. This deliberately does not compound
// and is kept verbatim: the spread features depend on this exact definition.
func (e *Engine) cashRealReturn(frame *timeseries.Frame) (*timeseries.Frame, error) {
	rate, err := column(frame, e.cfg.NominalRateColumn)
	if err != nil {
		return nil, err
	}
	priceYoY, err := column(frame, e.cfg.PriceYoYColumn)
	if err != nil {
		return nil, err
	}

	cash := make([]float64, len(rate))
	for i := range cash {
		cash[i] = (rate[i] - priceYoY[i]) / 12 / 100
	}

	out := frame.Clone()
	set(out, e.cfg.CashReturnColumn, cash)
	return out, nil
}

// spreads derives each asset's excess monthly return over real cash.
func (e *Engine) spreads(frame *timeseries.Frame) (*timeseries.Frame, error) {
	cash, err := column(frame, e.cfg.CashReturnColumn)
	if err != nil {
		return nil, err
	}

	out := frame.Clone()
	for _, asset := range e.cfg.Assets {
		ret, err := column(frame, asset.ReturnColumn)
		if err != nil {
			return nil, err
		}

		spread := make([]float64, len(ret))
		for i := range spread {
			spread[i] = ret[i] - cash[i]
		}
		set(out, asset.SpreadColumn, spread)
	}
	return out, nil
}

// standardize adds a z-score column for each configured indicator, computed
// over the entire available sample (not a rolling window). Originals are
// retained alongside.
//
// The sample statistics come from the rows where every indicator is observed.
// Those are the rows the final missing-row drop keeps, so each z column has
// sample mean 0 and sample standard deviation 1 over the persisted table.
func (e *Engine) standardize(frame *timeseries.Frame) (*timeseries.Frame, error) {
	indicators := make([][]float64, len(e.cfg.IndicatorColumns))
	for i, name := range e.cfg.IndicatorColumns {
		values, err := column(frame, name)
		if err != nil {
			return nil, err
		}
		indicators[i] = values
	}

	complete := make([]bool, frame.NumRows())
	for row := range complete {
		complete[row] = true
		for _, values := range indicators {
			if math.IsNaN(values[row]) {
				complete[row] = false
				break
			}
		}
	}

	out := frame.Clone()
	for i, name := range e.cfg.IndicatorColumns {
		values := indicators[i]

		sample := make([]float64, 0, len(values))
		for row, ok := range complete {
			if ok {
				sample = append(sample, values[row])
			}
		}
		mean := formulas.Mean(sample)
		std := formulas.StdDev(sample)

		z := make([]float64, len(values))
		for row, v := range values {
			z[row] = (v - mean) / std
		}
		set(out, e.cfg.ZScorePrefix+name, z)
	}
	return out, nil
}

// composite adds the unweighted arithmetic mean of the standardized indicator
// columns, one scalar per row summarizing overall debasement pressure.
func (e *Engine) composite(frame *timeseries.Frame) (*timeseries.Frame, error) {
	zColumns := make([][]float64, len(e.cfg.IndicatorColumns))
	for i, name := range e.cfg.IndicatorColumns {
		values, err := column(frame, e.cfg.ZScorePrefix+name)
		if err != nil {
			return nil, err
		}
		zColumns[i] = values
	}

	score := make([]float64, frame.NumRows())
	for row := range score {
		sum := 0.0
		for _, z := range zColumns {
			sum += z[row]
		}
		score[row] = sum / float64(len(zColumns))
	}

	out := frame.Clone()
	set(out, e.cfg.CompositeColumn, score)
	return out, nil
}

// column fetches a required input column, failing with ErrSchema when absent:
// a missing precondition column means an earlier stage did not run.
func column(frame *timeseries.Frame, name string) ([]float64, error) {
	values, ok := frame.Column(name)
	if !ok {
		return nil, fmt.Errorf("required column %q is missing: %w", name, timeseries.ErrSchema)
	}
	return values, nil
}

// set writes a derived column. Derived lengths always match the frame's row
// count, so a length mismatch is a programming bug, not a data condition.
func set(frame *timeseries.Frame, name string, values []float64) {
	if err := frame.SetColumn(name, values); err != nil {
		panic(err)
	}
}
