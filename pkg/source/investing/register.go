package investing

import (
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

// GBP interest rate swap instruments by maturity
var swapInstruments = []Instrument{
	{TickerID: "1156493", Dimension: "2Y"},
	{TickerID: "1156495", Dimension: "5Y"},
	{TickerID: "1156497", Dimension: "10Y"},
	{TickerID: "1156505", Dimension: "30Y"},
}

// UK gilt ETF instruments by ticker
var etfInstruments = []Instrument{
	{TickerID: "38403", Dimension: "IGLT"},
	{TickerID: "38411", Dimension: "INXG"},
	{TickerID: "45747", Dimension: "VGOV"},
	{TickerID: "45552", Dimension: "GLTY"},
}

func factory(s *series.Series, instruments []Instrument) registry.Factory {
	return func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
		cfg := config.NewConfig(s.Key, "investing")
		cfg.Reliability.CallsPerMinute = 10
		if err := config.Apply(cfg); err != nil {
			return nil, err
		}
		adapter, err := New(cfg, log, instruments...)
		if err != nil {
			return nil, err
		}
		return collector.New(s, adapter, st, cfg, log), nil
	}
}

func dimensions(instruments []Instrument) []string {
	dims := make([]string, len(instruments))
	for i, inst := range instruments {
		dims[i] = inst.Dimension
	}
	return dims
}

func init() {
	swaps := &series.Series{
		Key:             "uk-swap-rates",
		Table:           "uk_swap_rates",
		DateColumn:      "date",
		DimensionColumn: "maturity",
		Dimensions:      dimensions(swapInstruments),
		Frequency:       series.FrequencyDaily,
		ValueColumns:    []string{"open_rate", "high_rate", "low_rate", "close_rate"},
		// GBP swap quotes on investing.com start in May 2018
		HistoryStart: time.Date(2018, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
	registry.Register(registry.Entry{
		Name:        "uk-swap-rates",
		Provider:    "investing",
		Description: "GBP interest rate swap curve (2Y/5Y/10Y/30Y, daily)",
		Factory:     factory(swaps, swapInstruments),
	})

	etfs := &series.Series{
		Key:             "etf-prices",
		Table:           "etf_prices",
		DateColumn:      "date",
		DimensionColumn: "etf_ticker",
		Dimensions:      dimensions(etfInstruments),
		Frequency:       series.FrequencyDaily,
		ValueColumns:    []string{"open_price", "high_price", "low_price", "close_price"},
		// most UK gilt ETFs launched around 2009
		HistoryStart: time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	registry.Register(registry.Entry{
		Name:        "etf-prices",
		Provider:    "investing",
		Description: "UK gilt ETF OHLC prices (IGLT/INXG/VGOV/GLTY, daily)",
		Factory:     factory(etfs, etfInstruments),
	})
}
