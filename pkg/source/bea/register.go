package bea

import (
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

func init() {
	gdp := &series.Series{
		Key:                 "gdp",
		Table:               "gross_domestic_product",
		DateColumn:          "quarter",
		Frequency:           series.FrequencyQuarterly,
		ValueColumns:        []string{"gdp_billions"},
		DefaultLookbackDays: 10 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "gdp",
		Provider:    "bea",
		Description: "US real GDP (NIPA T10101, quarterly)",
		Factory: func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
			cfg := config.NewConfig("gdp", "bea")
			if err := config.Apply(cfg); err != nil {
				return nil, err
			}
			adapter, err := New(cfg, log)
			if err != nil {
				return nil, err
			}
			return collector.New(gdp, adapter, st, cfg, log), nil
		},
	})
}
