package alphavantage

import (
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

func init() {
	gbpUsd := &series.Series{
		Key:                 "gbp-usd",
		Table:               "gbp_usd_exchange_rate",
		DateColumn:          "date",
		Frequency:           series.FrequencyDaily,
		ValueColumns:        []string{"exchange_rate"},
		DefaultLookbackDays: 2 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "gbp-usd",
		Provider:    "alphavantage",
		Description: "GBP/USD daily closing exchange rate",
		Factory: func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
			cfg := config.NewConfig("gbp-usd", "alphavantage")
			cfg.Reliability.CallsPerMinute = 5
			if err := config.Apply(cfg); err != nil {
				return nil, err
			}
			adapter, err := New(cfg, log, "GBP", "USD")
			if err != nil {
				return nil, err
			}
			return collector.New(gbpUsd, adapter, st, cfg, log), nil
		},
	})
}
