package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// TestNoAuth tests the NoAuth authenticator.
func TestNoAuth(t *testing.T) {
	auth := NoAuth()

	identity, err := auth.Authenticate(context.Background(), "")
	if err != nil {
		t.Errorf("NoAuth should never return error, got: %v", err)
	}
	if identity != "anonymous" {
		t.Errorf("Expected identity 'anonymous', got '%s'", identity)
	}
}

// TestBearerAuth tests validation through a user function.
func TestBearerAuth(t *testing.T) {
	auth := BearerAuth(func(token string) (string, error) {
		if token == "valid-token" {
			return "user123", nil
		}
		return "", errors.New("invalid token")
	})

	identity, err := auth.Authenticate(context.Background(), "valid-token")
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if identity != "user123" {
		t.Errorf("Expected identity 'user123', got '%s'", identity)
	}

	if _, err := auth.Authenticate(context.Background(), "invalid-token"); err == nil {
		t.Error("Expected error for invalid token, got nil")
	}
}

// TestStaticTokens tests the configured token table.
func TestStaticTokens(t *testing.T) {
	auth := StaticTokens(map[string]string{"t1": "alice", "t2": "bob"})

	for token, want := range map[string]string{"t1": "alice", "t2": "bob"} {
		identity, err := auth.Authenticate(context.Background(), token)
		if err != nil {
			t.Fatalf("Authenticate(%s) failed: %v", token, err)
		}
		if identity != want {
			t.Errorf("Expected identity %s, got %s", want, identity)
		}
	}

	if _, err := auth.Authenticate(context.Background(), "t3"); err == nil {
		t.Error("Expected error for unknown token")
	}
}

func TestTokenFromAuthorizationHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer abc ", "abc", nil},
		{"", "", ErrTokenIsEmpty},
		{"Bearer ", "", ErrTokenIsEmpty},
		{"Basic dXNlcjpwYXNz", "", ErrInvalidAuthHeader},
		{"Bear", "", ErrInvalidAuthHeader},
	}
	for _, tt := range tests {
		got, err := TokenFromAuthorizationHeader(tt.header)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("header %q: expected error %v, got %v", tt.header, tt.wantErr, err)
		}
		if got != tt.want {
			t.Errorf("header %q: expected token %q, got %q", tt.header, tt.want, got)
		}
	}
}

// TestMiddleware tests request authentication end to end.
func TestMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
	})
	h := Middleware(StaticTokens(map[string]string{"secret": "alice"}), nil)(next)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer secret", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Token secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/structures", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.status == http.StatusOK && seen != "alice" {
				t.Errorf("Expected identity alice, got %q", seen)
			}
			if tt.status != http.StatusOK && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("Expected WWW-Authenticate challenge")
			}
		})
	}
}

// TestMiddlewareCustomError tests the error callback and the unauthenticated sentinel.
func TestMiddlewareCustomError(t *testing.T) {
	var got error
	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}
	h := Middleware(StaticTokens(map[string]string{"secret": "alice"}), onError)(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected custom status, got %d", rec.Code)
	}
	if !errors.Is(got, ErrUnauthenticated) {
		t.Errorf("Expected ErrUnauthenticated, got %v", got)
	}
}

// TestMiddlewareDisabled tests pass-through without an authenticator.
func TestMiddlewareDisabled(t *testing.T) {
	called := false
	h := Middleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("Expected request to pass through")
	}
}

// TestIdentityContext tests identity propagation helpers.
func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != "" {
		t.Error("Expected empty identity on fresh context")
	}

	ctx, err := ValidateToken(ctx, "x", NoAuth())
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if IdentityFromContext(ctx) != "anonymous" {
		t.Errorf("Expected anonymous, got %q", IdentityFromContext(ctx))
	}

	if _, err := ValidateToken(context.Background(), "", NoAuth()); !errors.Is(err, ErrTokenIsEmpty) {
		t.Errorf("Expected ErrTokenIsEmpty, got %v", err)
	}
}

// TestConcurrentAuthentication tests goroutine-safety of StaticTokens.
func TestConcurrentAuthentication(t *testing.T) {
	auth := StaticTokens(map[string]string{"secret": "alice"})
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := auth.Authenticate(context.Background(), "secret"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Unexpected error: %v", err)
	}
}
