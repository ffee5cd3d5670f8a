package bls

import (
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

func factory(s *series.Series, seriesID string) registry.Factory {
	return func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
		cfg := config.NewConfig(s.Key, "bls")
		cfg.Reliability.CallsPerMinute = 20
		if err := config.Apply(cfg); err != nil {
			return nil, err
		}
		adapter, err := New(cfg, log, seriesID)
		if err != nil {
			return nil, err
		}
		return collector.New(s, adapter, st, cfg, log), nil
	}
}

func init() {
	cpi := &series.Series{
		Key:          "cpi",
		Table:        "consumer_price_index",
		DateColumn:   "date",
		Frequency:    series.FrequencyMonthly,
		ValueColumns: []string{"value"},
		Derived: []series.DerivedField{
			{Column: "year_over_year_change", SourceColumn: "value", PeriodMonths: 12},
			{Column: "month_over_month_change", SourceColumn: "value", PeriodMonths: 1},
		},
		DefaultLookbackDays: 10 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "cpi",
		Provider:    "bls",
		Description: "US CPI-U all items index (CUUR0000SA0, monthly) with YoY/MoM change",
		Factory:     factory(cpi, "CUUR0000SA0"),
	})

	unemployment := &series.Series{
		Key:                 "unemployment",
		Table:               "unemployment_rate",
		DateColumn:          "date",
		Frequency:           series.FrequencyMonthly,
		ValueColumns:        []string{"rate"},
		DefaultLookbackDays: 10 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "unemployment",
		Provider:    "bls",
		Description: "US unemployment rate (LNS14000000, monthly)",
		Factory:     factory(unemployment, "LNS14000000"),
	})
}
