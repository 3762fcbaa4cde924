// Package store defines the document store contract consumed by the collection planner.
//
// A store holds the documents of one entry endpoint under their storage names
// (see catalog.Field.StorageName) and evaluates predicates built by package predicate.
// Two implementations are provided: store/memory evaluates predicates in process,
// store/duckdb lowers them to SQL.
package store

import (
	"context"
	"errors"

	"github.com/hugr-lab/optimade-go/predicate"
)

// Sentinel errors reported by stores. Callers check them with errors.Is.
var (
	// ErrTimeout indicates the operation did not complete before the context deadline.
	ErrTimeout = errors.New("store operation timed out")

	// ErrUnavailable indicates the backend cannot serve requests (closed, unreachable).
	ErrUnavailable = errors.New("store unavailable")
)

// Document is a stored entry keyed by storage names.
type Document map[string]any

// SortField is one key of a sort order.
type SortField struct {
	Field      string
	Descending bool
}

// Query describes a bounded fetch.
type Query struct {
	// Predicate selects documents. Nil matches all.
	Predicate predicate.Predicate

	// Projection lists the top-level storage fields to return. Empty returns all fields.
	Projection []string

	// Sort orders the matches before windowing. Missing values sort last.
	Sort []SortField

	// Skip drops the first Skip matches.
	Skip int

	// Limit caps the number of returned documents. Zero means no limit.
	Limit int
}

// Store is the read interface of a document collection.
// Implementations must be safe for concurrent use and must honour ctx cancellation.
type Store interface {
	// Find returns the matching documents in sort order, windowed by Skip and Limit.
	Find(ctx context.Context, q *Query) ([]Document, error)

	// Count returns the number of documents matching p, ignoring any window.
	Count(ctx context.Context, p predicate.Predicate) (int, error)

	// Len returns the total number of documents in the collection.
	Len(ctx context.Context) (int, error)
}

// Loader is implemented by stores that accept documents.
type Loader interface {
	Insert(ctx context.Context, docs []Document) error
}

// FromContext maps a context error to the store sentinels.
// Returns nil if ctx is still live.
func FromContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrTimeout, err)
	default:
		return err
	}
}
