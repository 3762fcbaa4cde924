// Package duckdb provides a document store backed by a DuckDB table.
//
// The table is created from the storage schema of an entry type; nested
// properties become STRUCT and LIST columns. Predicates are lowered with
// predicate.DuckDBEncoder and documents are ingested through json_transform,
// so loaders never build Arrow records by hand.
package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/optimade-go/catalog"
	"github.com/hugr-lab/optimade-go/predicate"
	"github.com/hugr-lab/optimade-go/store"
)

// Open opens a DuckDB database. An empty path opens an in-memory database.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open %q: %w", path, err)
	}
	return db, nil
}

// Options configures a Store.
type Options struct {
	// DB is the database handle. REQUIRED.
	DB *sql.DB

	// Table is the table name, usually the entry endpoint name. REQUIRED.
	Table string

	// Schema is the storage schema (catalog.EntryType.StorageSchema). REQUIRED.
	Schema *arrow.Schema

	// OwnsDB makes Close close DB as well.
	OwnsDB bool

	// Logger receives executed statements at Debug level. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store is a DuckDB table holding the documents of one entry endpoint.
// All methods are safe for concurrent use.
type Store struct {
	db        *sql.DB
	table     string
	schema    *arrow.Schema
	columns   []string
	structure string
	enc       *predicate.DuckDBEncoder
	ownsDB    bool
	logger    *slog.Logger
	closed    atomic.Bool
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Loader = (*Store)(nil)
)

// New creates the table if needed and returns a store over it.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.DB == nil {
		return nil, errors.New("duckdb: DB is required")
	}
	if opts.Table == "" {
		return nil, errors.New("duckdb: Table is required")
	}
	if opts.Schema == nil || opts.Schema.NumFields() == 0 {
		return nil, errors.New("duckdb: Schema with at least one field is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ddl, err := createTableSQL(opts.Table, opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("duckdb: %w", err)
	}
	structure, err := jsonStructure(opts.Schema)
	if err != nil {
		return nil, fmt.Errorf("duckdb: %w", err)
	}

	logger.Debug("Creating table", "table", opts.Table, "sql", ddl)
	if _, err := opts.DB.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("duckdb: create table %s: %w", opts.Table, err)
	}

	columns := make([]string, 0, opts.Schema.NumFields())
	for _, f := range opts.Schema.Fields() {
		columns = append(columns, f.Name)
	}

	return &Store{
		db:        opts.DB,
		table:     opts.Table,
		schema:    opts.Schema,
		columns:   columns,
		structure: structure,
		enc:       predicate.NewDuckDBEncoder(&predicate.EncoderOptions{Schema: opts.Schema}),
		ownsDB:    opts.OwnsDB,
		logger:    logger,
	}, nil
}

// Close marks the store unavailable and closes the database if owned.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// Insert loads documents inside one transaction.
// Fields not in the schema are ignored; missing fields are stored as NULL.
func (s *Store) Insert(ctx context.Context, docs []store.Document) (err error) {
	if s.closed.Load() {
		return store.ErrUnavailable
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.wrap(ctx, "insert", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := "INSERT INTO " + predicate.QuoteIdentifier(s.table) +
		" BY NAME SELECT unnest(json_transform(?::JSON, " + quoteString(s.structure) + "))"
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return s.wrap(ctx, "insert", err)
	}
	defer stmt.Close()

	for i, d := range docs {
		row := make(map[string]any, len(s.columns))
		for _, c := range s.columns {
			if v, ok := d[c]; ok && v != nil {
				row[c] = v
			}
		}
		b, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("duckdb: encode document %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, string(b)); err != nil {
			return s.wrap(ctx, "insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.wrap(ctx, "insert", err)
	}
	return nil
}

// Find implements store.Store.
func (s *Store) Find(ctx context.Context, q *store.Query) ([]store.Document, error) {
	if s.closed.Load() {
		return nil, store.ErrUnavailable
	}
	if q == nil {
		q = &store.Query{}
	}
	if q.Skip < 0 || q.Limit < 0 {
		return nil, errors.New("duckdb: negative skip or limit")
	}

	query, err := s.selectSQL(q)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Executing find", "table", s.table, "sql", query)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, s.wrap(ctx, "find", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, s.wrap(ctx, "find", err)
	}

	docs := []store.Document{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, s.wrap(ctx, "find", err)
		}
		d := make(store.Document, len(cols))
		for i, c := range cols {
			if values[i] != nil {
				d[c] = values[i]
			}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap(ctx, "find", err)
	}
	return docs, nil
}

// Count implements store.Store.
func (s *Store) Count(ctx context.Context, p predicate.Predicate) (int, error) {
	if s.closed.Load() {
		return 0, store.ErrUnavailable
	}
	where, err := s.enc.Encode(p)
	if err != nil {
		return 0, fmt.Errorf("duckdb: %w", err)
	}
	query := "SELECT count(*) FROM " + predicate.QuoteIdentifier(s.table) + " WHERE " + where
	s.logger.Debug("Executing count", "table", s.table, "sql", query)
	return s.scalarInt(ctx, "count", query)
}

// Len implements store.Store.
func (s *Store) Len(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, store.ErrUnavailable
	}
	return s.scalarInt(ctx, "len", "SELECT count(*) FROM "+predicate.QuoteIdentifier(s.table))
}

func (s *Store) scalarInt(ctx context.Context, op, query string) (int, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, s.wrap(ctx, op, err)
	}
	return int(n), nil
}

func (s *Store) selectSQL(q *store.Query) (string, error) {
	where, err := s.enc.Encode(q.Predicate)
	if err != nil {
		return "", fmt.Errorf("duckdb: %w", err)
	}

	cols := s.columns
	if len(q.Projection) > 0 {
		projected := catalog.ProjectSchema(s.schema, q.Projection)
		if projected.NumFields() == 0 {
			return "", fmt.Errorf("duckdb: projection %v selects no column of %s", q.Projection, s.table)
		}
		cols = make([]string, 0, projected.NumFields())
		for _, f := range projected.Fields() {
			cols = append(cols, f.Name)
		}
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = predicate.QuoteIdentifier(c)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(quoted, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(predicate.QuoteIdentifier(s.table))
	sb.WriteString(" WHERE ")
	sb.WriteString(where)

	// rowid keeps insertion order among equal keys
	sb.WriteString(" ORDER BY ")
	for _, k := range q.Sort {
		sb.WriteString(predicate.QuoteIdentifier(k.Field))
		if k.Descending {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
		sb.WriteString(" NULLS LAST, ")
	}
	sb.WriteString("rowid")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.Limit))
	}
	if q.Skip > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(q.Skip))
	}
	return sb.String(), nil
}

// wrap maps driver errors to store sentinels where possible.
func (s *Store) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := store.FromContext(ctx); ctxErr != nil {
		return fmt.Errorf("duckdb: %s %s: %w", op, s.table, ctxErr)
	}
	if errors.Is(err, sql.ErrConnDone) || s.closed.Load() {
		return fmt.Errorf("duckdb: %s %s: %w: %v", op, s.table, store.ErrUnavailable, err)
	}
	return fmt.Errorf("duckdb: %s %s: %w", op, s.table, err)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
