package fiscaldata

import (
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

func init() {
	yields := &series.Series{
		Key:                 "treasury-yields",
		Table:               "treasury_yields",
		DateColumn:          "date",
		DimensionColumn:     "maturity",
		Dimensions:          Maturities(),
		Frequency:           series.FrequencyDaily,
		ValueColumns:        []string{"yield_rate"},
		DefaultLookbackDays: 5 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "treasury-yields",
		Provider:    "fiscaldata",
		Description: "US Treasury par yield curve (daily, per maturity)",
		Factory: func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
			cfg := config.NewConfig("treasury-yields", "fiscaldata")
			if err := config.Apply(cfg); err != nil {
				return nil, err
			}
			adapter := New(cfg, log)
			return collector.New(yields, adapter, st, cfg, log), nil
		},
	})
}
