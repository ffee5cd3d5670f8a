// Package registry maps collector names to factories. Provider
// packages register their collectors from init, and the CLI pulls them
// out by name; importing a provider package for side effects is all it
// takes to make its collectors available.
package registry

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/quantfold/harvest/pkg/collector"
	"github.com/quantfold/harvest/pkg/errors"
	"github.com/quantfold/harvest/pkg/store"
)

// Factory builds a ready collector bound to the given sink
type Factory func(st *store.Store, log *zap.Logger) (*collector.Collector, error)

// Entry describes one registered collector
type Entry struct {
	// Name is the collector name used on the command line
	Name string
	// Provider is the upstream source the collector pulls from
	Provider string
	// Description is a one-line summary for listings
	Description string
	// Factory builds the collector
	Factory Factory
}

var (
	mu      sync.RWMutex
	entries = make(map[string]Entry)
)

// Register adds a collector entry. Duplicate names panic: they are
// programmer errors wired at init time, not runtime conditions.
func Register(e Entry) {
	mu.Lock()
	defer mu.Unlock()

	if e.Name == "" || e.Factory == nil {
		panic("registry: entry needs a name and a factory")
	}
	if _, exists := entries[e.Name]; exists {
		panic("registry: duplicate collector name: " + e.Name)
	}
	entries[e.Name] = e
}

// Get returns the entry for a collector name
func Get(name string) (Entry, error) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := entries[name]
	if !ok {
		return Entry{}, errors.Newf(errors.ErrorTypeValidation,
			"unknown collector %q, run 'harvest list' to see available collectors", name)
	}
	return e, nil
}

// List returns all entries sorted by name
func List() []Entry {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
