package optimade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hugr-lab/optimade-go/api"
	"github.com/hugr-lab/optimade-go/auth"
	"github.com/hugr-lab/optimade-go/catalog"
	"github.com/hugr-lab/optimade-go/collection"
	"github.com/hugr-lab/optimade-go/internal/dataset"
	"github.com/hugr-lab/optimade-go/internal/metrics"
	"github.com/hugr-lab/optimade-go/store"
	"github.com/hugr-lab/optimade-go/store/duckdb"
	"github.com/hugr-lab/optimade-go/store/memory"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server is an OPTIMADE HTTP server over the built-in entry types.
type Server struct {
	config      *ServerConfig
	catalogue   catalog.Catalogue
	collections map[string]*collection.EntryCollection
	handler     *api.Server
	metrics     *metrics.Metrics
	closers     []io.Closer
	logger      *slog.Logger
}

// NewServer builds the catalogue, opens one store per entry type, loads the
// configured datasets and registers the HTTP routes.
//
// The returned server owns its stores; call Close when done.
//
//	cfg, err := optimade.LoadConfig("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv, err := optimade.NewServer(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	http.ListenAndServe(cfg.Listen, srv.Handler())
func NewServer(ctx context.Context, config *ServerConfig) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = config.NewLogger(os.Stderr)
	}

	cat, err := config.Catalogue()
	if err != nil {
		return nil, err
	}
	for endpoint := range config.Dataset {
		if _, ok := cat.EntryType(endpoint); !ok {
			return nil, fmt.Errorf("%w: dataset for unknown entry type %s", ErrInvalidConfig, endpoint)
		}
		if config.Index && endpoint != api.IndexEndpoint {
			logger.Warn("Index meta-database ignores dataset", "entry_type", endpoint, "path", config.Dataset[endpoint])
		}
	}

	s := &Server{
		config:      config,
		catalogue:   cat,
		collections: make(map[string]*collection.EntryCollection),
		metrics:     metrics.New(nil),
		logger:      logger,
	}
	if err := s.open(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	var authenticator auth.Authenticator
	if len(config.Auth.Tokens) > 0 {
		tokens := make(map[string]string, len(config.Auth.Tokens))
		for _, t := range config.Auth.Tokens {
			tokens[t.Token] = t.Identity
		}
		authenticator = auth.StaticTokens(tokens)
	}

	cols := make([]*collection.EntryCollection, 0, len(s.collections))
	for _, e := range s.entryTypes() {
		cols = append(cols, s.collections[e.Name()])
	}
	var index *api.Index
	if config.Index {
		index = &api.Index{DefaultChild: config.DefaultDB}
	}
	s.handler, err = api.New(api.Options{
		Collections: cols,
		APIVersion:  config.APIVersion,
		BaseURL:     config.BaseURL,
		Provider: api.Provider{
			Prefix:       config.Provider.Prefix,
			Name:         config.Provider.Name,
			Description:  config.Provider.Description,
			Homepage:     config.Provider.Homepage,
			IndexBaseURL: config.Provider.IndexBaseURL,
		},
		Authenticator: authenticator,
		Metrics:       s.metrics,
		Logger:        logger,
		Index:         index,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Info("OPTIMADE server initialized",
		"backend", config.Backend,
		"entry_types", len(cols),
		"has_auth", authenticator != nil,
		"is_index", config.Index,
		"api_version", config.APIVersion,
	)
	return s, nil
}

// open creates the stores and collections of every entry type.
func (s *Server) open(ctx context.Context) error {
	var db *sql.DB
	if s.config.Backend == BackendDuckDB {
		var err error
		if db, err = duckdb.Open(s.config.DuckDB.Path); err != nil {
			return err
		}
		s.closers = append(s.closers, db)
	}

	for _, e := range s.entryTypes() {
		st, err := s.newStore(ctx, db, e)
		if err != nil {
			return err
		}
		if err := s.seed(ctx, st, e); err != nil {
			return err
		}

		c, err := collection.NewEntryCollection(collection.Options{
			Endpoint:       e.Name(),
			Store:          st,
			EntryType:      e,
			PageLimit:      s.config.PageLimit,
			PageLimitMax:   s.config.PageLimitMax,
			GrammarVersion: s.config.GrammarVersion,
			QueryTimeout:   s.config.QueryTimeout,
			Logger:         s.logger,
			Observer:       s.metrics,
		})
		if err != nil {
			return err
		}
		s.collections[e.Name()] = c
	}
	return nil
}

// entryTypes returns the served entry types: all of them, or only links for
// an index meta-database.
func (s *Server) entryTypes() []*catalog.EntryType {
	if !s.config.Index {
		return s.catalogue.EntryTypes()
	}
	e, _ := s.catalogue.EntryType(api.IndexEndpoint)
	return []*catalog.EntryType{e}
}

type closableStore interface {
	store.Store
	store.Loader
	io.Closer
}

func (s *Server) newStore(ctx context.Context, db *sql.DB, e *catalog.EntryType) (closableStore, error) {
	if db == nil {
		st := memory.New()
		s.closers = append(s.closers, st)
		return st, nil
	}

	st, err := duckdb.New(ctx, duckdb.Options{
		DB:     db,
		Table:  s.config.DefaultDB + "_" + e.Name(),
		Schema: e.StorageSchema(),
		Logger: s.logger,
	})
	if err != nil {
		return nil, err
	}
	// stores close before the shared database
	s.closers = append([]io.Closer{st}, s.closers...)
	return st, nil
}

// seed loads the configured dataset of e into an empty store.
func (s *Server) seed(ctx context.Context, st closableStore, e *catalog.EntryType) error {
	path := s.config.Dataset[e.Name()]
	if path == "" {
		return nil
	}

	n, err := st.Len(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("Entry table already populated, skipping dataset",
			"entry_type", e.Name(), "documents", n, "path", path)
		return nil
	}

	docs, err := dataset.Load(path)
	if err != nil {
		return fmt.Errorf("load %s dataset: %w", e.Name(), err)
	}
	if err := dataset.Prepare(docs, e.Name(), e.AliasFor("id"), e.AliasFor("type")); err != nil {
		return fmt.Errorf("load %s dataset %s: %w", e.Name(), path, err)
	}
	var times []string
	for _, f := range e.StorageSchema().Fields() {
		if catalog.TypeName(f.Type) == "timestamp" {
			times = append(times, f.Name)
		}
	}
	if err := dataset.ParseTimes(docs, times...); err != nil {
		return fmt.Errorf("load %s dataset %s: %w", e.Name(), path, err)
	}
	if err := st.Insert(ctx, docs); err != nil {
		return fmt.Errorf("load %s dataset: %w", e.Name(), err)
	}

	s.logger.Info("Dataset loaded", "entry_type", e.Name(), "documents", len(docs), "path", path)
	return nil
}

// Handler returns the HTTP handler serving the API and /metrics.
func (s *Server) Handler() http.Handler { return s.handler }

// Catalogue returns the field catalogue of the served entry types.
func (s *Server) Catalogue() catalog.Catalogue { return s.catalogue }

// Collection returns the collection of an entry endpoint.
func (s *Server) Collection(name string) (*collection.EntryCollection, bool) {
	c, ok := s.collections[name]
	return c, ok
}

// Serve accepts connections on lis until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	hs := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Listening", "address", lis.Addr().String())
		if err := hs.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases the stores and the database.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
