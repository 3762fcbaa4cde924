// Package memory provides an in-process document store that evaluates
// predicates with predicate.Match.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hugr-lab/optimade-go/predicate"
	"github.com/hugr-lab/optimade-go/store"
)

// checkEvery is the number of documents scanned between context checks.
const checkEvery = 1024

// Store is a slice-backed document store.
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	docs   []store.Document
	closed bool
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Loader = (*Store)(nil)
)

// New creates a store holding docs.
func New(docs ...store.Document) *Store {
	s := &Store{}
	s.docs = append(s.docs, docs...)
	return s
}

// Insert appends documents.
func (s *Store) Insert(ctx context.Context, docs []store.Document) error {
	if err := store.FromContext(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrUnavailable
	}
	s.docs = append(s.docs, docs...)
	return nil
}

// Close makes every subsequent call fail with store.ErrUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, q *store.Query) ([]store.Document, error) {
	if q == nil {
		q = &store.Query{}
	}
	if q.Skip < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("memory: negative skip or limit")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, store.ErrUnavailable
	}

	matches, err := s.filter(ctx, q.Predicate)
	if err != nil {
		return nil, err
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			return less(matches[i], matches[j], q.Sort)
		})
	}

	if q.Skip >= len(matches) {
		return []store.Document{}, nil
	}
	matches = matches[q.Skip:]
	if q.Limit > 0 && q.Limit < len(matches) {
		matches = matches[:q.Limit]
	}

	out := make([]store.Document, len(matches))
	for i, d := range matches {
		out[i] = project(d, q.Projection)
	}
	return out, nil
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context, p predicate.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, store.ErrUnavailable
	}

	matches, err := s.filter(ctx, p)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Len implements store.Store.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := store.FromContext(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, store.ErrUnavailable
	}
	return len(s.docs), nil
}

// filter returns the matching documents in insertion order.
// Must be called with s.mu held.
func (s *Store) filter(ctx context.Context, p predicate.Predicate) ([]store.Document, error) {
	var out []store.Document
	for i, d := range s.docs {
		if i%checkEvery == 0 {
			if err := store.FromContext(ctx); err != nil {
				return nil, err
			}
		}
		if predicate.Match(p, d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// less orders documents by the sort keys. Missing values sort last in both
// directions; values that cannot be ordered compare equal.
func less(a, b store.Document, keys []store.SortField) bool {
	for _, k := range keys {
		av, aok := predicate.Lookup(a, k.Field)
		bv, bok := predicate.Lookup(b, k.Field)
		switch {
		case !aok && !bok:
			continue
		case !aok:
			return false
		case !bok:
			return true
		}

		c, ok := predicate.Order(av, bv)
		if !ok || c == 0 {
			continue
		}
		if k.Descending {
			return c > 0
		}
		return c < 0
	}
	return false
}

// project copies the requested top-level fields of d.
func project(d store.Document, fields []string) store.Document {
	if len(fields) == 0 {
		out := make(store.Document, len(d))
		for k, v := range d {
			out[k] = v
		}
		return out
	}

	out := make(store.Document, len(fields))
	for _, f := range fields {
		if v, ok := d[f]; ok {
			out[f] = v
		}
	}
	return out
}
