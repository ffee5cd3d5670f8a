// Package runner orchestrates multi-collector runs: collectors for
// different providers run in parallel, collectors sharing a provider
// run sequentially so one provider's rate budget is never split across
// goroutines.
package runner

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/registry"
	"github.com/quantfold/harvest/pkg/store"
)

// Runner executes registered collectors against one shared sink
type Runner struct {
	store  *store.Store
	logger *zap.Logger
}

// New creates a runner
func New(st *store.Store, log *zap.Logger) *Runner {
	return &Runner{store: st, logger: log}
}

// RunOne builds and runs a single named collector
func (r *Runner) RunOne(ctx context.Context, name string) (*collector.CollectionResult, error) {
	entry, err := registry.Get(name)
	if err != nil {
		return nil, err
	}
	c, err := entry.Factory(r.store, r.logger)
	if err != nil {
		return nil, err
	}
	return c.Collect(ctx), nil
}

// RecomputeOne rebuilds derived fields for a single named collector
func (r *Runner) RecomputeOne(ctx context.Context, name string) (*collector.CollectionResult, error) {
	entry, err := registry.Get(name)
	if err != nil {
		return nil, err
	}
	c, err := entry.Factory(r.store, r.logger)
	if err != nil {
		return nil, err
	}
	return c.Recompute(ctx), nil
}

// RunAll runs every registered collector and returns results ordered
// by collector name. A collector whose factory fails (a missing API
// key, usually) yields a failed result rather than aborting the rest.
func (r *Runner) RunAll(ctx context.Context) []*collector.CollectionResult {
	byProvider := make(map[string][]registry.Entry)
	for _, entry := range registry.List() {
		byProvider[entry.Provider] = append(byProvider[entry.Provider], entry)
	}

	var (
		mu      sync.Mutex
		results []*collector.CollectionResult
		wg      sync.WaitGroup
	)

	for provider, entries := range byProvider {
		wg.Add(1)
		go func(provider string, entries []registry.Entry) {
			defer wg.Done()

			for _, entry := range entries {
				res := r.runEntry(ctx, entry)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}(provider, entries)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Series < results[j].Series })
	return results
}

func (r *Runner) runEntry(ctx context.Context, entry registry.Entry) *collector.CollectionResult {
	c, err := entry.Factory(r.store, r.logger)
	if err != nil {
		r.logger.Error("collector construction failed",
			zap.String("collector", entry.Name),
			zap.Error(err))
		return &collector.CollectionResult{
			Series: entry.Name,
			Status: collector.StatusFailed,
			Err:    err,
		}
	}
	return c.Collect(ctx)
}
