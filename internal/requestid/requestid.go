// Package requestid propagates request identifiers through HTTP handlers.
// An incoming X-Request-ID header is kept; otherwise a random UUID is assigned.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying the request ID.
const Header = "X-Request-ID"

// maxLength bounds client-supplied IDs.
const maxLength = 128

type idKey struct{}

// With returns a new context with the request ID stored.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// FromContext retrieves the request ID if present.
// Returns ("", false) if no request ID is set.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey{}).(string)
	return id, ok
}

// New returns a fresh request ID.
func New() string {
	return uuid.NewString()
}

// Middleware stores the request ID in the request context and echoes it in the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" || len(id) > maxLength {
			id = New()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(With(r.Context(), id)))
	})
}
