package auth

import (
	"net/http"
)

// ErrorHandler writes the response of a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware creates an HTTP middleware for authentication.
// Validates bearer tokens and propagates identity via context.
// If no authenticator is provided, requests pass through without auth.
// A nil onError answers 401 with a WWW-Authenticate challenge.
func Middleware(authenticator Authenticator, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		if authenticator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := TokenFromAuthorizationHeader(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="optimade"`)
				onError(w, r, err)
				return
			}

			ctx, err := ValidateToken(r.Context(), token, authenticator)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="optimade", error="invalid_token"`)
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
