// Package api serves entry collections over HTTP as OPTIMADE JSON responses.
//
// Routes are registered at the root and under the /optimade and versioned
// /optimade/vX[.Y[.Z]] prefixes:
//
//	GET /info
//	GET /info/{entry}
//	GET /{entry}
//	GET /{entry}/{id}
//	GET /metrics
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/hugr-lab/optimade-go/auth"
	"github.com/hugr-lab/optimade-go/collection"
	"github.com/hugr-lab/optimade-go/internal/metrics"
	"github.com/hugr-lab/optimade-go/internal/recovery"
	"github.com/hugr-lab/optimade-go/internal/requestid"
)

// DefaultAPIVersion is the OPTIMADE API version reported by default.
const DefaultAPIVersion = "0.10.0"

// Options configures a Server.
type Options struct {
	// Collections are the served entry endpoints. REQUIRED: at least one.
	Collections []*collection.EntryCollection

	// APIVersion is reported in meta and selects the versioned URL prefixes.
	// OPTIONAL: defaults to DefaultAPIVersion.
	APIVersion string

	// BaseURL prefixes links in responses. OPTIONAL: derived from the request host.
	BaseURL string

	// Provider is reported in meta.
	Provider Provider

	// Authenticator enables bearer-token authentication. OPTIONAL: nil disables auth.
	Authenticator auth.Authenticator

	// Metrics records request metrics and serves /metrics. OPTIONAL.
	Metrics *metrics.Metrics

	// Logger for request logging. OPTIONAL: defaults to slog.Default().
	Logger *slog.Logger

	// Now returns the response time stamp. OPTIONAL: defaults to time.Now.
	Now func() time.Time

	// Index serves the API as an index meta-database. OPTIONAL: nil serves
	// a regular database. An index serves only the links endpoint.
	Index *Index
}

// Index describes an index meta-database.
type Index struct {
	// DefaultChild is the links entry id of the database clients are
	// pointed at by default. REQUIRED.
	DefaultChild string
}

// IndexEndpoint is the only entry endpoint of an index meta-database.
const IndexEndpoint = "links"

// Server is the HTTP handler of the API.
type Server struct {
	router      *mux.Router
	collections map[string]*collection.EntryCollection
	names       []string
	apiVersion  string
	baseURL     string
	provider    Provider
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
	index       *Index
}

// New creates the handler and registers its routes.
func New(opts Options) (*Server, error) {
	if len(opts.Collections) == 0 {
		return nil, errors.New("api: at least one collection is required")
	}

	s := &Server{
		collections: make(map[string]*collection.EntryCollection, len(opts.Collections)),
		apiVersion:  opts.APIVersion,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		provider:    opts.Provider,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         opts.Now,
		index:       opts.Index,
	}
	if s.index != nil && s.index.DefaultChild == "" {
		return nil, errors.New("api: index requires a default child database")
	}
	for _, c := range opts.Collections {
		if s.index != nil && c.Endpoint() != IndexEndpoint {
			return nil, errors.New("api: index serves only " + IndexEndpoint + ", got " + c.Endpoint())
		}
		if _, dup := s.collections[c.Endpoint()]; dup {
			return nil, errors.New("api: duplicate collection " + c.Endpoint())
		}
		if c.Endpoint() == "info" || c.Endpoint() == "metrics" {
			return nil, errors.New("api: reserved endpoint name " + c.Endpoint())
		}
		s.collections[c.Endpoint()] = c
		s.names = append(s.names, c.Endpoint())
	}
	sort.Strings(s.names)

	if s.apiVersion == "" {
		s.apiVersion = DefaultAPIVersion
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.router = s.routes(opts.Authenticator)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes(authenticator auth.Authenticator) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = requestid.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, req, &NotFoundError{Path: req.URL.Path})
	}))

	r.Use(requestid.Middleware)
	r.Use(recovery.Middleware(s.logger, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, req, errors.New("panic while serving request"))
	})))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.Use(s.logRequests)

	authMW := auth.Middleware(authenticator, func(w http.ResponseWriter, req *http.Request, err error) {
		s.writeError(w, req, err)
	})

	// more specific prefixes first: "/optimade/{entry}/{id}" would also match "/optimade/v0/structures"
	for _, prefix := range s.prefixes() {
		var sub *mux.Router
		if prefix == "" {
			sub = r.NewRoute().Subrouter()
		} else {
			sub = r.PathPrefix(prefix).Subrouter()
		}
		sub.Use(authMW)
		sub.HandleFunc("/info", s.handleBaseInfo).Methods(http.MethodGet)
		sub.HandleFunc("/info/{entry}", s.handleEntryInfo).Methods(http.MethodGet)
		sub.HandleFunc("/{entry}", s.handleListing).Methods(http.MethodGet)
		sub.HandleFunc("/{entry}/{id}", s.handleSingleEntry).Methods(http.MethodGet)
	}
	return r
}

// prefixes returns the URL prefixes, most specific first:
// /optimade/v0.10.0, /optimade/v0.10, /optimade/v0, /optimade and the root.
func (s *Server) prefixes() []string {
	parts := strings.Split(s.apiVersion, ".")
	out := make([]string, 0, len(parts)+2)
	for i := len(parts); i > 0; i-- {
		out = append(out, "/optimade/v"+strings.Join(parts[:i], "."))
	}
	return append(out, "/optimade", "")
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "path", r.URL.Path, "error", err)
	}
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		id, _ := requestid.FromContext(r.Context())
		s.logger.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", id,
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
