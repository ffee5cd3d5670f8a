package ons

import (
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

func init() {
	inflation := &series.Series{
		Key:          "uk-inflation",
		Table:        "uk_inflation",
		DateColumn:   "date",
		Frequency:    series.FrequencyMonthly,
		ValueColumns: []string{"cpi_index", "cpih_index", "rpi_index"},
		Derived: []series.DerivedField{
			{Column: "cpi_yoy_change", SourceColumn: "cpi_index", PeriodMonths: 12},
			{Column: "cpi_mom_change", SourceColumn: "cpi_index", PeriodMonths: 1},
			{Column: "rpi_yoy_change", SourceColumn: "rpi_index", PeriodMonths: 12},
		},
		DefaultLookbackDays: 40 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "uk-inflation",
		Provider:    "ons",
		Description: "UK CPI/CPIH/RPI all-items indices (ONS MM23, monthly) with derived change",
		Factory: func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
			cfg := config.NewConfig("uk-inflation", "ons")
			cfg.Reliability.CallsPerMinute = 2
			if err := config.Apply(cfg); err != nil {
				return nil, err
			}
			adapter := New(cfg, log)
			return collector.New(inflation, adapter, st, cfg, log), nil
		},
	})
}
