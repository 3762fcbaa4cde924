package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserver(t *testing.T) {
	m := New(nil)
	m.StoreOperation("structures", "find", 5*time.Millisecond, nil)
	m.StoreOperation("structures", "count", time.Millisecond, errors.New("boom"))
	m.FilterError("syntax")
	m.FilterError("syntax")

	if got := testutil.ToFloat64(m.StoreErrors.WithLabelValues("structures", "count")); got != 1 {
		t.Errorf("expected 1 store error, got %v", got)
	}
	if got := testutil.ToFloat64(m.FilterErrors.WithLabelValues("syntax")); got != 2 {
		t.Errorf("expected 2 syntax errors, got %v", got)
	}
	if got := testutil.CollectAndCount(m.StoreDuration); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}
}

func TestMiddleware(t *testing.T) {
	m := New(nil)
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/structures/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/structures/"+id, nil))
	}

	if got := testutil.ToFloat64(m.RequestTotal.WithLabelValues("GET", "/structures/{id}", "404")); got != 2 {
		t.Errorf("expected 2 requests on the route template, got %v", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "optimade_http_requests_total") {
		t.Error("expected exposition to contain optimade_http_requests_total")
	}
}
