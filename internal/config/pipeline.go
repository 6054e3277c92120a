package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
)

// SeriesSpec describes one configured raw series: where its CSV lives, which
// value column to read, and which column it contributes to the aligned table.
type SeriesSpec struct {
	Key        string `yaml:"key"`        // column name in the aligned monthly table
	Name       string `yaml:"name"`       // human-readable name
	Source     string `yaml:"source"`     // "fred" or "market"
	Identifier string `yaml:"identifier"` // provider series code or ticker; also the CSV value column
	Frequency  string `yaml:"frequency"`  // daily | monthly | quarterly
	Filename   string `yaml:"filename"`   // CSV filename within the raw data directory
}

// AssetSpec wires one asset price column to its derived return and spread columns.
type AssetSpec struct {
	PriceColumn  string `yaml:"price_column"`
	ReturnColumn string `yaml:"return_column"`
	SpreadColumn string `yaml:"spread_column"`
}

// FeatureConfig enumerates every column name the feature engine reads or
// writes, so the standardization and composite steps share the indicator list
// explicitly instead of coupling through implicit naming.
type FeatureConfig struct {
	MoneySupplyColumn   string `yaml:"money_supply_column"`
	MoneyYoYColumn      string `yaml:"money_yoy_column"`
	PriceIndexColumn    string `yaml:"price_index_column"`
	PriceYoYColumn      string `yaml:"price_yoy_column"`
	RealGrowthColumn    string `yaml:"real_growth_column"`
	OutputColumn        string `yaml:"output_column"`
	MoneyToOutputColumn string `yaml:"money_to_output_column"`
	NominalRateColumn   string `yaml:"nominal_rate_column"`
	CashReturnColumn    string `yaml:"cash_return_column"`

	Assets []AssetSpec `yaml:"assets"`

	IndicatorColumns []string `yaml:"indicator_columns"`
	ZScorePrefix     string   `yaml:"zscore_prefix"`
	CompositeColumn  string   `yaml:"composite_column"`
}

// Pipeline is the full study configuration: the series universe, the
// frequency-alignment window, and the feature wiring.
type Pipeline struct {
	// StartDate clips the aligned table: months before it are discarded.
	// Chosen as the date from which the least mature series (BTC) has
	// meaningful history.
	StartDate string `yaml:"start_date"`

	// CollectStart / CollectEnd bound the raw collection window.
	// CollectEnd defaults to today when empty.
	CollectStart string `yaml:"collect_start"`
	CollectEnd   string `yaml:"collect_end"`

	RawDir       string `yaml:"raw_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	OutputFile   string `yaml:"output_file"`

	Series   []SeriesSpec  `yaml:"series"`
	Features FeatureConfig `yaml:"features"`
}

// DefaultPipeline returns the built-in configuration for the debasement study:
// five FRED macro series, three market price series, and the column wiring the
// analysis table uses.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		StartDate:    "2014-01-01",
		CollectStart: "2010-01-01",
		RawDir:       "raw_data",
		ProcessedDir: "processed_data",
		OutputFile:   "analysis.csv",
		Series: []SeriesSpec{
			{Key: "m2", Name: "M2 Money Supply", Source: "fred", Identifier: "M2SL", Frequency: "monthly", Filename: "m2_monthly.csv"},
			{Key: "cpi", Name: "CPI All Urban Consumers", Source: "fred", Identifier: "CPIAUCSL", Frequency: "monthly", Filename: "cpi_monthly.csv"},
			{Key: "gdp_monthly", Name: "Gross Domestic Product", Source: "fred", Identifier: "GDP", Frequency: "quarterly", Filename: "gdp_quarterly.csv"},
			{Key: "fed_funds_rate", Name: "Federal Funds Effective Rate", Source: "fred", Identifier: "DFF", Frequency: "daily", Filename: "fed_funds_daily.csv"},
			{Key: "tips_real_yield_10y", Name: "10-Year TIPS Real Yield", Source: "fred", Identifier: "DFII10", Frequency: "daily", Filename: "tips_10y_daily.csv"},
			{Key: "btc_price", Name: "Bitcoin USD Price", Source: "market", Identifier: "BTC-USD", Frequency: "daily", Filename: "btc_usd_daily.csv"},
			{Key: "sp500_price", Name: "S&P 500 Index", Source: "market", Identifier: "^GSPC", Frequency: "daily", Filename: "sp500_daily.csv"},
			{Key: "gold_price", Name: "Gold Futures Price", Source: "market", Identifier: "GC=F", Frequency: "daily", Filename: "gold_daily.csv"},
		},
		Features: FeatureConfig{
			MoneySupplyColumn:   "m2",
			MoneyYoYColumn:      "m2_yoy_pct",
			PriceIndexColumn:    "cpi",
			PriceYoYColumn:      "cpi_yoy_pct",
			RealGrowthColumn:    "real_m2_growth",
			OutputColumn:        "gdp_monthly",
			MoneyToOutputColumn: "m2_to_gdp",
			NominalRateColumn:   "fed_funds_rate",
			CashReturnColumn:    "cash_real_return_monthly",
			Assets: []AssetSpec{
				{PriceColumn: "btc_price", ReturnColumn: "btc_return_monthly", SpreadColumn: "btc_vs_cash_real_spread"},
				{PriceColumn: "sp500_price", ReturnColumn: "sp500_return_monthly", SpreadColumn: "sp500_vs_cash_real_spread"},
				{PriceColumn: "gold_price", ReturnColumn: "gold_return_monthly", SpreadColumn: "gold_vs_cash_real_spread"},
			},
			IndicatorColumns: []string{"m2_yoy_pct", "cpi_yoy_pct", "real_m2_growth", "m2_to_gdp"},
			ZScorePrefix:     "z_",
			CompositeColumn:  "zscore_composite_debasement_score",
		},
	}
}

// LoadPipeline reads a pipeline YAML file, or returns the built-in defaults
// when path is empty. The result is always validated.
func LoadPipeline(path string) (*Pipeline, error) {
	p := DefaultPipeline()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read pipeline config %s: %w", path, err)
		}
		p = &Pipeline{}
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the configuration is internally consistent.
func (p *Pipeline) Validate() error {
	if _, err := p.ClipDate(); err != nil {
		return err
	}
	if p.RawDir == "" || p.ProcessedDir == "" || p.OutputFile == "" {
		return fmt.Errorf("raw_dir, processed_dir and output_file must all be set")
	}
	if len(p.Series) == 0 {
		return fmt.Errorf("no series configured")
	}

	keys := make(map[string]bool, len(p.Series))
	for _, s := range p.Series {
		if s.Key == "" || s.Identifier == "" || s.Filename == "" {
			return fmt.Errorf("series %q: key, identifier and filename must all be set", s.Name)
		}
		if !timeseries.Frequency(s.Frequency).Valid() {
			return fmt.Errorf("series %q: unknown frequency %q", s.Key, s.Frequency)
		}
		if keys[s.Key] {
			return fmt.Errorf("duplicate series key %q", s.Key)
		}
		keys[s.Key] = true
	}

	f := p.Features
	required := map[string]string{
		"money_supply_column":    f.MoneySupplyColumn,
		"money_yoy_column":       f.MoneyYoYColumn,
		"price_index_column":     f.PriceIndexColumn,
		"price_yoy_column":       f.PriceYoYColumn,
		"real_growth_column":     f.RealGrowthColumn,
		"output_column":          f.OutputColumn,
		"money_to_output_column": f.MoneyToOutputColumn,
		"nominal_rate_column":    f.NominalRateColumn,
		"cash_return_column":     f.CashReturnColumn,
		"composite_column":       f.CompositeColumn,
		"zscore_prefix":          f.ZScorePrefix,
	}
	for name, val := range required {
		if val == "" {
			return fmt.Errorf("features: %s must be set", name)
		}
	}
	if len(f.IndicatorColumns) == 0 {
		return fmt.Errorf("features: indicator_columns must not be empty")
	}
	if len(f.Assets) == 0 {
		return fmt.Errorf("features: at least one asset must be configured")
	}
	for _, a := range f.Assets {
		if a.PriceColumn == "" || a.ReturnColumn == "" || a.SpreadColumn == "" {
			return fmt.Errorf("features: asset %+v: all columns must be set", a)
		}
	}

	return nil
}

// ClipDate parses the configured start date.
func (p *Pipeline) ClipDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_date %q: %w", p.StartDate, err)
	}
	return t, nil
}

// CollectWindow parses the collection window; the end defaults to now.
func (p *Pipeline) CollectWindow() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", p.CollectStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid collect_start %q: %w", p.CollectStart, err)
	}

	end := time.Now().UTC()
	if p.CollectEnd != "" {
		end, err = time.Parse("2006-01-02", p.CollectEnd)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid collect_end %q: %w", p.CollectEnd, err)
		}
	}

	return start, end, nil
}
