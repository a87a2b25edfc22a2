// Package plugin holds the import transforms that turn raw text into chart
// batches, addressable by name.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/mla/mla/chart-go/internal/chart"
)

var (
	ErrUnknownImporter   = errors.New("unknown importer")
	ErrDuplicateImporter = errors.New("importer already registered")
)

// Importer turns raw text into a batch. A transform that understood the
// input but rejects it reports that in Batch.ErrorMessage; a returned error
// means the input could not be read at all.
type Importer interface {
	Import(ctx context.Context, raw []byte) (chart.Batch, error)
}

// ImporterFunc adapts a function to Importer.
type ImporterFunc func(ctx context.Context, raw []byte) (chart.Batch, error)

func (f ImporterFunc) Import(ctx context.Context, raw []byte) (chart.Batch, error) {
	return f(ctx, raw)
}

type Registry struct {
	mu        sync.RWMutex
	importers map[string]Importer
}

func NewRegistry() *Registry {
	return &Registry{importers: make(map[string]Importer)}
}

// NewDefaultRegistry returns a registry with the built-in json and csv
// importers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("json", JSONImporter{})
	r.MustRegister("csv", CSVImporter{})
	return r
}

func (r *Registry) Register(name string, im Importer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.importers[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateImporter, name)
	}
	r.importers[name] = im
	return nil
}

func (r *Registry) MustRegister(name string, im Importer) {
	if err := r.Register(name, im); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	im, ok := r.importers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownImporter, name)
	}
	return im, nil
}

// Names lists the registered importers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.importers))
	for name := range r.importers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
