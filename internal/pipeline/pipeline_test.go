package pipeline

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lluc-palou/wealth-preservation/internal/config"
	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
)

func testPlan() *config.Pipeline {
	return &config.Pipeline{
		StartDate:    "2019-06-01",
		CollectStart: "2019-01-01",
		RawDir:       "raw_data",
		ProcessedDir: "processed_data",
		OutputFile:   "analysis.csv",
		Series: []config.SeriesSpec{
			{Key: "m2", Name: "Money", Source: "fred", Identifier: "M2SL", Frequency: "monthly", Filename: "m2.csv"},
			{Key: "cpi", Name: "Prices", Source: "fred", Identifier: "CPIAUCSL", Frequency: "monthly", Filename: "cpi.csv"},
			{Key: "gdp_monthly", Name: "Output", Source: "fred", Identifier: "GDP", Frequency: "quarterly", Filename: "gdp.csv"},
			{Key: "fed_funds_rate", Name: "Rate", Source: "fred", Identifier: "DFF", Frequency: "daily", Filename: "dff.csv"},
			{Key: "btc_price", Name: "Bitcoin", Source: "market", Identifier: "BTC-USD", Frequency: "daily", Filename: "btc.csv"},
		},
		Features: config.FeatureConfig{
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
			},
			IndicatorColumns: []string{"m2_yoy_pct", "cpi_yoy_pct", "real_m2_growth", "m2_to_gdp"},
			ZScorePrefix:     "z_",
			CompositeColumn:  "zscore_composite_debasement_score",
		},
	}
}

// writeFixtures creates 36 months (2019-01 .. 2021-12) of synthetic raw CSVs:
// monthly money and price levels, quarterly output, and two sparse daily
// series where only the last observation of each month should matter.
func writeFixtures(t *testing.T, rawDir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(rawDir, 0755))

	write := func(name, header string, rows []string) {
		content := header + "\n" + strings.Join(rows, "\n") + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(rawDir, name), []byte(content), 0644))
	}

	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	var m2Rows, cpiRows, rateRows, btcRows []string
	for i := 0; i < 36; i++ {
		month := base.AddDate(0, i, 0)
		fi := float64(i)

		m2Rows = append(m2Rows, fmt.Sprintf("%s,%g", month.Format("2006-01-02"), 1000+10*fi+fi*fi))
		cpiRows = append(cpiRows, fmt.Sprintf("%s,%g", month.Format("2006-01-02"), 100+fi))

		// Mid-month decoy plus a later observation: the resampler must pick the later one
		rateRows = append(rateRows, fmt.Sprintf("%s,%g", month.AddDate(0, 0, 9).Format("2006-01-02"), 99.0))
		rateRows = append(rateRows, fmt.Sprintf("%s,%g", month.AddDate(0, 0, 14).Format("2006-01-02"), 1+0.05*fi))

		btcRows = append(btcRows, fmt.Sprintf("%s,%g", month.AddDate(0, 0, 9).Format("2006-01-02"), 1.0))
		btcRows = append(btcRows, fmt.Sprintf("%s,%g", month.AddDate(0, 0, 27).Format("2006-01-02"), 100*math.Pow(1.05, fi)))
	}

	var gdpRows []string
	for q := 0; q < 12; q++ {
		quarter := base.AddDate(0, 3*q, 0)
		gdpRows = append(gdpRows, fmt.Sprintf("%s,%g", quarter.Format("2006-01-02"), 5000+20*float64(q)))
	}

	write("m2.csv", "date,M2SL", m2Rows)
	write("cpi.csv", "date,CPIAUCSL", cpiRows)
	write("gdp.csv", "date,GDP", gdpRows)
	write("dff.csv", "date,DFF", rateRows)
	write("btc.csv", "date,BTC-USD", btcRows)
}

func readOutput(t *testing.T, path string) ([]string, [][]string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[0], records[1:]
}

func TestPipeline_EndToEnd(t *testing.T) {
	dataDir := t.TempDir()
	plan := testPlan()
	writeFixtures(t, filepath.Join(dataDir, plan.RawDir))

	cfg := &config.Config{DataDir: dataDir, LogLevel: "info"}
	require.NoError(t, New(cfg, plan, zerolog.Nop()).Run())

	outPath := filepath.Join(dataDir, plan.ProcessedDir, plan.OutputFile)
	header, rows := readOutput(t, outPath)

	// Quarterly output spans Jan 2019 .. Oct 2021 after interpolation, the
	// monthly/daily series span Jan 2019 .. Dec 2021, so the join gives 34
	// months; clipping to 2019-06-01 leaves 29, and the 12-month YoY
	// lookback drops 12 more.
	assert.Len(t, rows, 17)

	assert.Equal(t, "date", header[0])
	expected := []string{
		"fed_funds_rate",
		"m2_yoy_pct", "cpi_yoy_pct", "real_m2_growth", "m2_to_gdp",
		"btc_return_monthly",
		"cash_real_return_monthly",
		"btc_vs_cash_real_spread",
		"z_m2_yoy_pct", "z_cpi_yoy_pct", "z_real_m2_growth", "z_m2_to_gdp",
		"zscore_composite_debasement_score",
	}
	assert.ElementsMatch(t, expected, header[1:])

	// Raw level and price columns never reach the output
	for _, raw := range []string{"m2", "cpi", "gdp_monthly", "btc_price"} {
		assert.NotContains(t, header, raw)
	}

	// Month-end dates, ascending, no missing values anywhere
	prev := ""
	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row[0])
		require.NoError(t, err)
		assert.Equal(t, timeseries.MonthEnd(date), date.UTC(), "date %s is not a month end", row[0])
		assert.Greater(t, row[0], prev)
		prev = row[0]

		for i, cell := range row {
			assert.NotEmpty(t, cell, "row %s column %s is empty", row[0], header[i])
		}
	}

	// First surviving month: Jun 2019 + 12 months of lookback
	assert.Equal(t, "2020-06-30", rows[0][0])
	assert.Equal(t, "2021-10-31", rows[len(rows)-1][0])
}

func TestPipeline_Idempotent(t *testing.T) {
	dataDir := t.TempDir()
	plan := testPlan()
	writeFixtures(t, filepath.Join(dataDir, plan.RawDir))

	cfg := &config.Config{DataDir: dataDir, LogLevel: "info"}
	p := New(cfg, plan, zerolog.Nop())
	outPath := filepath.Join(dataDir, plan.ProcessedDir, plan.OutputFile)

	require.NoError(t, p.Run())
	first, err := os.ReadFile(outPath)
	require.NoError(t, err)

	require.NoError(t, p.Run())
	second, err := os.ReadFile(outPath)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-running on unchanged inputs must be byte-identical")
}

func TestPipeline_MissingSeriesAborts(t *testing.T) {
	dataDir := t.TempDir()
	plan := testPlan()
	writeFixtures(t, filepath.Join(dataDir, plan.RawDir))
	require.NoError(t, os.Remove(filepath.Join(dataDir, plan.RawDir, "btc.csv")))

	cfg := &config.Config{DataDir: dataDir, LogLevel: "info"}
	err := New(cfg, plan, zerolog.Nop()).Run()
	require.ErrorIs(t, err, timeseries.ErrDataAccess)

	// No partial output
	_, statErr := os.Stat(filepath.Join(dataDir, plan.ProcessedDir, plan.OutputFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteFrame_CreatesDirectoryAndHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")

	frame := timeseries.NewFrame([]time.Time{
		time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, frame.SetColumn("a", []float64{1.5, 2.5}))

	require.NoError(t, WriteFrame(path, frame))

	header, rows := readOutput(t, path)
	assert.Equal(t, []string{"date", "a"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2020-01-31", "1.5"}, rows[0])
	assert.Equal(t, []string{"2020-02-29", "2.5"}, rows[1])
}
