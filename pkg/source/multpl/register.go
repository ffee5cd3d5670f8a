package multpl

import (
	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/config"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/series"
	"github.com/quantfold/harvest/pkg/store"
)

func init() {
	ratios := &series.Series{
		Key:          "pe-ratios",
		Table:        "pe_ratios",
		DateColumn:   "date",
		Frequency:    series.FrequencyDaily,
		ValueColumns: []string{"sp500_pe", "sp500_shiller_pe"},
		// the site only serves the current value, so the initial
		// window is just as shallow as an incremental one
		DefaultLookbackDays: 1,
	}
	registry.Register(registry.Entry{
		Name:        "pe-ratios",
		Provider:    "multpl",
		Description: "Current S&P 500 P/E and Shiller P/E (scraped daily)",
		Factory: func(st *store.Store, log *zap.Logger) (*collector.Collector, error) {
			cfg := config.NewConfig("pe-ratios", "multpl")
			cfg.Reliability.CallsPerMinute = 5
			if err := config.Apply(cfg); err != nil {
				return nil, err
			}
			adapter := New(cfg, log)
			return collector.New(ratios, adapter, st, cfg, log), nil
		},
	})
}
