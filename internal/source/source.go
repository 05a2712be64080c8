// Package source defines the raw-row collaborators that feed the
// normalizer: market data APIs and scraped screener tables.
package source

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/momentum/internal/normalize"
)

// Source yields raw rows for a set of tickers. A source that scans a
// whole market may ignore tickers.
type Source interface {
	Name() string
	// Columns declares which row keys hold each field.
	Columns() normalize.ColumnMapping
	FetchRows(ctx context.Context, tickers []string) ([]normalize.Row, error)
}

// Registry manages sources by name
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates an empty source registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
	}
}

// Register adds a source, replacing any with the same name
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get retrieves a source by name
func (r *Registry) Get(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

// Names returns registered source names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
