package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/counts"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/internalerr"
	"github.com/gordicaleksa/Open-NLLB/pkg/bitext/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu   sync.RWMutex
	runs map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]store.Run)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// PutRun inserts or replaces a run, keyed by ID.
func (s *Store) PutRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, nil
}

// ListRuns returns matching runs ordered by ID.
func (s *Store) ListRuns(ctx context.Context, f store.RunFilter) ([]store.Run, error) {
	s.mu.RLock()
	var out []store.Run
	for _, r := range s.runs {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Totals implements store.Store.
func (s *Store) Totals(ctx context.Context, f store.RunFilter) (counts.Counts, error) {
	runs, err := s.ListRuns(ctx, f)
	if err != nil {
		return counts.Counts{}, err
	}
	all := make([]counts.Counts, len(runs))
	for i, r := range runs {
		all[i] = r.Counts
	}
	return counts.Sum(all...), nil
}
