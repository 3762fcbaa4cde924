package collection

import (
	"errors"
	"fmt"

	"github.com/hugr-lab/optimade-go/store"
)

// PaginationLimitError is returned when page_limit exceeds the configured maximum.
type PaginationLimitError struct {
	Requested int
	Max       int
}

func (e *PaginationLimitError) Error() string {
	return fmt.Sprintf("page_limit %d exceeds the maximum of %d", e.Requested, e.Max)
}

// ResponseFormatError is returned for any response_format other than "json".
type ResponseFormatError struct {
	Format string
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("response_format %q is not supported, only \"json\" is", e.Format)
}

// MultipleEntriesError reports that a single-entry lookup matched more than one document.
// It indicates duplicate identifiers in the store, not a client mistake.
type MultipleEntriesError struct {
	ID    string
	Count int
}

func (e *MultipleEntriesError) Error() string {
	return fmt.Sprintf("instead of a single entry, %d entries were found for id %q", e.Count, e.ID)
}

// ParameterError reports a malformed query parameter.
type ParameterError struct {
	Name   string
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Name, e.Reason)
}

// StoreError wraps a failure of the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Timeout reports whether the store did not answer before the query deadline.
func (e *StoreError) Timeout() bool { return errors.Is(e.Err, store.ErrTimeout) }

// Unavailable reports whether the store could not serve the request at all.
func (e *StoreError) Unavailable() bool { return errors.Is(e.Err, store.ErrUnavailable) }
