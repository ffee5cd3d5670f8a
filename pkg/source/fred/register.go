package fred

import (
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

// treasurySpecs maps FRED constant-maturity series to curve points
var treasurySpecs = []SeriesSpec{
	{ID: "DGS1MO", Dimension: "DGS1MO"},
	{ID: "DGS3MO", Dimension: "DGS3MO"},
	{ID: "DGS6MO", Dimension: "DGS6MO"},
	{ID: "DGS1", Dimension: "DGS1"},
	{ID: "DGS2", Dimension: "DGS2"},
	{ID: "DGS5", Dimension: "DGS5"},
	{ID: "DGS7", Dimension: "DGS7"},
	{ID: "DGS10", Dimension: "DGS10"},
	{ID: "DGS20", Dimension: "DGS20"},
	{ID: "DGS30", Dimension: "DGS30"},
}

// tipsSpecs maps FRED inflation-indexed series to curve maturities
var tipsSpecs = []SeriesSpec{
	{ID: "DFII5", Dimension: "5Y"},
	{ID: "DFII7", Dimension: "7Y"},
	{ID: "DFII10", Dimension: "10Y"},
	{ID: "DFII20", Dimension: "20Y"},
	{ID: "DFII30", Dimension: "30Y"},
}

func factory(s *series.Series, specs ...SeriesSpec) registry.Factory {
	return func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
		cfg := config.NewConfig(s.Key, "fred")
		cfg.Reliability.CallsPerMinute = 60
		if err := config.Apply(cfg); err != nil {
			return nil, err
		}
		adapter, err := New(cfg, log, specs...)
		if err != nil {
			return nil, err
		}
		return collector.New(s, adapter, st, cfg, log), nil
	}
}

func init() {
	fedFunds := &series.Series{
		Key:                 "fed-funds",
		Table:               "federal_funds_rate",
		DateColumn:          "date",
		Frequency:           series.FrequencyMonthly,
		ValueColumns:        []string{"effective_rate"},
		DefaultLookbackDays: 10 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "fed-funds",
		Provider:    "fred",
		Description: "Effective federal funds rate (FEDFUNDS, monthly)",
		Factory:     factory(fedFunds, SeriesSpec{ID: "FEDFUNDS"}),
	})

	sp500 := &series.Series{
		Key:                 "sp500",
		Table:               "sp500_index",
		DateColumn:          "date",
		Frequency:           series.FrequencyDaily,
		ValueColumns:        []string{"open_price", "high_price", "low_price", "close_price"},
		DefaultLookbackDays: 10 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "sp500",
		Provider:    "fred",
		Description: "S&P 500 index close (SP500, daily)",
		Factory:     factory(sp500, SeriesSpec{ID: "SP500"}),
	})

	vix := &series.Series{
		Key:                 "vix",
		Table:               "vix_index",
		DateColumn:          "date",
		Frequency:           series.FrequencyDaily,
		ValueColumns:        []string{"open_price", "high_price", "low_price", "close_price"},
		DefaultLookbackDays: 10 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "vix",
		Provider:    "fred",
		Description: "CBOE volatility index close (VIXCLS, daily)",
		Factory:     factory(vix, SeriesSpec{ID: "VIXCLS"}),
	})

	treasury := &series.Series{
		Key:                 "fred-treasury-yields",
		Table:               "fred_treasury_yields",
		DateColumn:          "date",
		DimensionColumn:     "series_id",
		Dimensions:          dimensions(treasurySpecs),
		Frequency:           series.FrequencyDaily,
		ValueColumns:        []string{"yield_rate"},
		DefaultLookbackDays: 5 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "fred-treasury-yields",
		Provider:    "fred",
		Description: "Constant-maturity Treasury yield curve (DGS*, daily)",
		Factory:     factory(treasury, treasurySpecs...),
	})

	tips := &series.Series{
		Key:                 "us-tips",
		Table:               "us_tips_yields",
		DateColumn:          "date",
		DimensionColumn:     "maturity",
		Dimensions:          dimensions(tipsSpecs),
		Frequency:           series.FrequencyDaily,
		ValueColumns:        []string{"yield_rate"},
		DefaultLookbackDays: 25 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "us-tips",
		Provider:    "fred",
		Description: "TIPS real yield curve (DFII*, daily)",
		Factory:     factory(tips, tipsSpecs...),
	})

	forwardInflation := &series.Series{
		Key:                 "t5yifr",
		Table:               "us_forward_inflation_expectations",
		DateColumn:          "date",
		DimensionColumn:     "series_id",
		Dimensions:          []string{"T5YIFR"},
		Frequency:           series.FrequencyDaily,
		ValueColumns:        []string{"expectation_rate"},
		DefaultLookbackDays: 20 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "t5yifr",
		Provider:    "fred",
		Description: "5-year, 5-year forward inflation expectation rate (T5YIFR, daily)",
		Factory:     factory(forwardInflation, SeriesSpec{ID: "T5YIFR", Dimension: "T5YIFR"}),
	})
}

func dimensions(specs []SeriesSpec) []string {
	dims := make([]string, len(specs))
	for i, spec := range specs {
		dims[i] = spec.Dimension
	}
	return dims
}
