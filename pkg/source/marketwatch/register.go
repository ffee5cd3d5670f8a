package marketwatch

import (
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

func init() {
	ftse := &series.Series{
		Key:                 "ftse-100",
		Table:               "ftse_100_index",
		DateColumn:          "date",
		Frequency:           series.FrequencyDaily,
		ValueColumns:        []string{"open_price", "high_price", "low_price", "close_price", "volume"},
		DefaultLookbackDays: 5 * 365,
	}
	registry.Register(registry.Entry{
		Name:        "ftse-100",
		Provider:    "marketwatch",
		Description: "FTSE 100 index OHLCV (daily, fetched in one-year chunks)",
		Factory: func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
			cfg := config.NewConfig("ftse-100", "marketwatch")
			cfg.Reliability.CallsPerMinute = 10
			if err := config.Apply(cfg); err != nil {
				return nil, err
			}
			adapter, err := New(cfg, log, "ukx", "uk")
			if err != nil {
				return nil, err
			}
			return collector.New(ftse, adapter, st, cfg, log), nil
		},
	})
}
