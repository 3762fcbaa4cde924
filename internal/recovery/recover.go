// Package recovery provides panic recovery for HTTP handlers and store calls.
// Ensures a faulty store or handler doesn't crash the server.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// ErrPanic is wrapped by errors produced from a recovered panic.
var ErrPanic = errors.New("panic recovered")

// RecoverToError wraps a function call with panic recovery.
// If the function panics, converts the panic to an error wrapping ErrPanic.
//
// Example:
//
//	err := recovery.RecoverToError(logger, "Insert", func() error {
//	    return loader.Insert(ctx, docs)
//	})
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			err = fmt.Errorf("%s: %w: %v", operation, ErrPanic, r)
		}
	}()

	return fn()
}

// RecoverToValue wraps a function that returns a value and error.
// If the function panics, returns zero value and an error wrapping ErrPanic.
//
// Example:
//
//	docs, err := recovery.RecoverToValue(logger, "Find", func() ([]store.Document, error) {
//	    return st.Find(ctx, q)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			var zero T
			result = zero
			err = fmt.Errorf("%s: %w: %v", operation, ErrPanic, r)
		}
	}()

	return fn()
}

// Middleware recovers panics in downstream handlers and answers 500.
// http.ErrAbortHandler is re-panicked so net/http can abort the connection.
func Middleware(logger *slog.Logger, onPanic http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logPanic(logger, r.Method+" "+r.URL.Path, rec)
					if onPanic != nil {
						onPanic.ServeHTTP(w, r)
						return
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func logPanic(logger *slog.Logger, operation string, r any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}
