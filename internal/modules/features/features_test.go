package features

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lluc-palou/wealth-preservation/internal/config"
	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
	"github.com/lluc-palou/wealth-preservation/pkg/formulas"
)

func testConfig() config.FeatureConfig {
	return config.FeatureConfig{
		MoneySupplyColumn:   "m2",
		MoneyYoYColumn:      "m2_yoy_pct",
		PriceIndexColumn:    "cpi",
		PriceYoYColumn:      "cpi_yoy_pct",
		RealGrowthColumn:    "real_m2_growth",
		OutputColumn:        "gdp_monthly",
		MoneyToOutputColumn: "m2_to_gdp",
		NominalRateColumn:   "fed_funds_rate",
		CashReturnColumn:    "cash_real_return_monthly",
		Assets: []config.AssetSpec{
			{PriceColumn: "btc_price", ReturnColumn: "btc_return_monthly", SpreadColumn: "btc_vs_cash_real_spread"},
			{PriceColumn: "gold_price", ReturnColumn: "gold_return_monthly", SpreadColumn: "gold_vs_cash_real_spread"},
		},
		IndicatorColumns: []string{"m2_yoy_pct", "cpi_yoy_pct", "real_m2_growth", "m2_to_gdp"},
		ZScorePrefix:     "z_",
		CompositeColumn:  "zscore_composite_debasement_score",
	}
}

// alignedFrame builds a synthetic, NaN-free monthly frame of n rows with
// non-constant indicator dynamics, the way the aligner would hand it over.
func alignedFrame(n int) *timeseries.Frame {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = timeseries.MonthEnd(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0))
	}

	m2 := make([]float64, n)
	cpi := make([]float64, n)
	gdp := make([]float64, n)
	rate := make([]float64, n)
	btc := make([]float64, n)
	gold := make([]float64, n)
	for i := range dates {
		fi := float64(i)
		m2[i] = 1000 + 10*fi + fi*fi // accelerating money growth
		cpi[i] = 100 + fi
		gdp[i] = 5000 + 20*fi
		rate[i] = 1 + 0.05*fi
		btc[i] = 100 * math.Pow(1.1, fi)
		gold[i] = 50 * math.Pow(1.02, fi)
	}

	frame := timeseries.NewFrame(dates)
	for name, values := range map[string][]float64{
		"m2": m2, "cpi": cpi, "gdp_monthly": gdp,
		"fed_funds_rate": rate, "btc_price": btc, "gold_price": gold,
	} {
		if err := frame.SetColumn(name, values); err != nil {
			panic(err)
		}
	}
	return frame
}

func newEngine() *Engine {
	return New(testConfig(), zerolog.Nop())
}

func TestBuild_DropsLookbackRowsAndRawColumns(t *testing.T) {
	out, err := newEngine().Build(alignedFrame(30))
	require.NoError(t, err)

	// 12 leading rows invalidated by the YoY lookback
	assert.Equal(t, 18, out.NumRows())

	for _, raw := range []string{"m2", "cpi", "gdp_monthly", "btc_price", "gold_price"} {
		assert.False(t, out.HasColumn(raw), "raw column %s must be dropped", raw)
	}
	for _, derived := range []string{
		"m2_yoy_pct", "cpi_yoy_pct", "real_m2_growth", "m2_to_gdp",
		"btc_return_monthly", "gold_return_monthly",
		"cash_real_return_monthly",
		"btc_vs_cash_real_spread", "gold_vs_cash_real_spread",
		"z_m2_yoy_pct", "z_cpi_yoy_pct", "z_real_m2_growth", "z_m2_to_gdp",
		"zscore_composite_debasement_score",
	} {
		assert.True(t, out.HasColumn(derived), "derived column %s must exist", derived)
	}

	// No missing values in the persisted table
	for _, name := range out.Columns() {
		values, _ := out.Column(name)
		for i, v := range values {
			assert.False(t, math.IsNaN(v), "column %s row %d is NaN", name, i)
		}
	}
}

func TestBuild_LogReturnValue(t *testing.T) {
	out, err := newEngine().Build(alignedFrame(30))
	require.NoError(t, err)

	// Prices grow 10% per month, so every monthly log return is ln(1.1)
	returns, ok := out.Column("btc_return_monthly")
	require.True(t, ok)
	for _, r := range returns {
		assert.InDelta(t, math.Log(1.1), r, 1e-12)
	}
}

func TestBuild_CashRealReturnFormula(t *testing.T) {
	out, err := newEngine().Build(alignedFrame(30))
	require.NoError(t, err)

	rate, _ := out.Column("fed_funds_rate")
	cpiYoY, _ := out.Column("cpi_yoy_pct")
	cash, _ := out.Column("cash_real_return_monthly")

	for i := range cash {
		assert.InDelta(t, (rate[i]-cpiYoY[i])/12/100, cash[i], 1e-12)
	}
}

func TestBuild_SpreadsAreExcessOverCash(t *testing.T) {
	out, err := newEngine().Build(alignedFrame(30))
	require.NoError(t, err)

	cash, _ := out.Column("cash_real_return_monthly")
	ret, _ := out.Column("gold_return_monthly")
	spread, _ := out.Column("gold_vs_cash_real_spread")

	for i := range spread {
		assert.InDelta(t, ret[i]-cash[i], spread[i], 1e-12)
	}
}

func TestBuild_ZScoresHaveMeanZeroStdOne(t *testing.T) {
	out, err := newEngine().Build(alignedFrame(30))
	require.NoError(t, err)

	for _, name := range []string{"z_m2_yoy_pct", "z_cpi_yoy_pct", "z_real_m2_growth", "z_m2_to_gdp"} {
		values, ok := out.Column(name)
		require.True(t, ok)
		assert.InDelta(t, 0.0, formulas.Mean(values), 1e-9, "%s mean", name)
		assert.InDelta(t, 1.0, formulas.StdDev(values), 1e-9, "%s std", name)
	}
}

func TestBuild_CompositeIsMeanOfZScores(t *testing.T) {
	out, err := newEngine().Build(alignedFrame(30))
	require.NoError(t, err)

	cfg := testConfig()
	composite, _ := out.Column(cfg.CompositeColumn)
	zColumns := make([][]float64, len(cfg.IndicatorColumns))
	for i, name := range cfg.IndicatorColumns {
		zColumns[i], _ = out.Column(cfg.ZScorePrefix + name)
	}

	for row := range composite {
		sum := 0.0
		for _, z := range zColumns {
			sum += z[row]
		}
		assert.InDelta(t, sum/4, composite[row], 1e-12)
	}
}

func TestComposite_KnownValues(t *testing.T) {
	cfg := testConfig()
	dates := []time.Time{time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)}

	frame := timeseries.NewFrame(dates)
	zValues := []float64{1.0, -1.0, 0.5, 0.5}
	for i, name := range cfg.IndicatorColumns {
		require.NoError(t, frame.SetColumn(cfg.ZScorePrefix+name, []float64{zValues[i]}))
	}

	out, err := New(cfg, zerolog.Nop()).composite(frame)
	require.NoError(t, err)

	composite, ok := out.Column(cfg.CompositeColumn)
	require.True(t, ok)
	assert.InDelta(t, 0.25, composite[0], 1e-12)
}

func TestStages_MissingColumnsFailWithSchemaError(t *testing.T) {
	e := newEngine()
	empty := timeseries.NewFrame([]time.Time{time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)})

	for name, stage := range map[string]func(*timeseries.Frame) (*timeseries.Frame, error){
		"debasement_indicators": e.debasementIndicators,
		"asset_returns":         e.assetReturns,
		"cash_real_return":      e.cashRealReturn,
		"spreads":               e.spreads,
		"standardize":           e.standardize,
		"composite":             e.composite,
	} {
		_, err := stage(empty)
		assert.ErrorIs(t, err, timeseries.ErrSchema, "stage %s on empty frame", name)
	}
}

func TestBuild_MissingInputFailsLoudly(t *testing.T) {
	frame := timeseries.NewFrame([]time.Time{time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)})
	_, err := newEngine().Build(frame)
	assert.ErrorIs(t, err, timeseries.ErrSchema)
}
