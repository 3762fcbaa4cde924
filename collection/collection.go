// Package collection plans and executes entry listing and single-entry queries.
//
// An EntryCollection parses the filter with the configured grammar, transforms
// it against the entry type's field catalogue, resolves the returned field set,
// and runs the bounded fetch and the full count concurrently against a store.
// Errors are precise enough for the HTTP layer to pick a status code: see
// filter.SyntaxError, predicate.TranslationError, predicate.UnresolvedPropertyError,
// and the error types declared in this package.
package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hugr-lab/optimade-go/catalog"
	"github.com/hugr-lab/optimade-go/filter"
	"github.com/hugr-lab/optimade-go/internal/recovery"
	"github.com/hugr-lab/optimade-go/predicate"
	"github.com/hugr-lab/optimade-go/store"
)

// Defaults applied by NewEntryCollection.
const (
	DefaultPageLimit    = 20
	DefaultPageLimitMax = 500
	DefaultQueryTimeout = 10 * time.Second
)

// Observer receives planner events. Implemented by internal/metrics.
type Observer interface {
	// StoreOperation is called after every store call with its duration.
	StoreOperation(endpoint, op string, elapsed time.Duration, err error)

	// FilterError is called when a filter fails to parse or transform.
	FilterError(kind string)
}

// Options configures an EntryCollection.
type Options struct {
	// Endpoint is the entry endpoint name, e.g. "structures". REQUIRED.
	Endpoint string

	// Store holds the documents of the endpoint. REQUIRED.
	Store store.Store

	// EntryType is the field catalogue of the endpoint. REQUIRED.
	EntryType *catalog.EntryType

	// Mapper maps storage documents to resources. OPTIONAL: defaults to a mapper over EntryType.
	Mapper *ResourceMapper

	// PageLimit is the default page size. OPTIONAL: defaults to DefaultPageLimit.
	PageLimit int

	// PageLimitMax is the largest page size a client may request.
	// OPTIONAL: defaults to DefaultPageLimitMax.
	PageLimitMax int

	// GrammarVersion is the filter grammar used when a request names none.
	// OPTIONAL: defaults to filter.DefaultVersion.
	GrammarVersion string

	// QueryTimeout bounds the store calls of one request. OPTIONAL: defaults to DefaultQueryTimeout.
	QueryTimeout time.Duration

	// Logger for planner diagnostics. OPTIONAL: defaults to slog.Default().
	Logger *slog.Logger

	// Observer receives timing and error events. OPTIONAL.
	Observer Observer
}

// EntryCollection answers queries against one entry endpoint.
// It is immutable after construction and safe for concurrent use.
type EntryCollection struct {
	endpoint     string
	store        store.Store
	entry        *catalog.EntryType
	mapper       *ResourceMapper
	transformer  *predicate.Transformer
	pageLimit    int
	pageLimitMax int
	grammar      string
	timeout      time.Duration
	logger       *slog.Logger
	observer     Observer
}

// NewEntryCollection validates opts and creates a collection.
func NewEntryCollection(opts Options) (*EntryCollection, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("collection: Endpoint is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("collection %s: Store is required", opts.Endpoint)
	}
	if opts.EntryType == nil {
		return nil, fmt.Errorf("collection %s: EntryType is required", opts.Endpoint)
	}

	c := &EntryCollection{
		endpoint:     opts.Endpoint,
		store:        opts.Store,
		entry:        opts.EntryType,
		mapper:       opts.Mapper,
		transformer:  predicate.NewTransformer(opts.EntryType),
		pageLimit:    opts.PageLimit,
		pageLimitMax: opts.PageLimitMax,
		grammar:      opts.GrammarVersion,
		timeout:      opts.QueryTimeout,
		logger:       opts.Logger,
		observer:     opts.Observer,
	}
	if c.mapper == nil {
		c.mapper = NewResourceMapper(opts.EntryType)
	}
	if c.pageLimit == 0 {
		c.pageLimit = DefaultPageLimit
	}
	if c.pageLimitMax == 0 {
		c.pageLimitMax = DefaultPageLimitMax
	}
	if c.pageLimit < 0 || c.pageLimit > c.pageLimitMax {
		return nil, fmt.Errorf("collection %s: page limit %d must be in [1, %d]", c.endpoint, c.pageLimit, c.pageLimitMax)
	}
	if c.grammar == "" {
		c.grammar = filter.DefaultVersion
	}
	if _, err := filter.LookupGrammar(c.grammar, filter.DefaultVariant); err != nil {
		return nil, fmt.Errorf("collection %s: %w", c.endpoint, err)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultQueryTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Endpoint returns the entry endpoint name.
func (c *EntryCollection) Endpoint() string { return c.endpoint }

// EntryType returns the field catalogue of the endpoint.
func (c *EntryCollection) EntryType() *catalog.EntryType { return c.entry }

// PageLimit returns the default page size.
func (c *EntryCollection) PageLimit() int { return c.pageLimit }

// Find answers an entry listing request.
func (c *EntryCollection) Find(ctx context.Context, params ListingParams) (*Result, error) {
	if err := checkFormat(params.ResponseFormat); err != nil {
		return nil, err
	}
	limit, err := c.limit(params.PageLimit)
	if err != nil {
		return nil, err
	}
	if params.PageOffset < 0 {
		return nil, &ParameterError{Name: "page_offset", Reason: "must not be negative"}
	}

	pred, err := c.Predicate(params.Filter, params.GrammarVersion)
	if err != nil {
		return nil, err
	}
	sortFields, err := c.sortFields(params.Sort)
	if err != nil {
		return nil, err
	}
	fields, omitted := c.fieldSet(params.ResponseFields)

	q := &store.Query{
		Predicate:  pred,
		Projection: c.projection(fields),
		Sort:       sortFields,
		Skip:       params.PageOffset,
		Limit:      limit,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		docs          []store.Document
		matched, size int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		docs, err = runStore(c, gctx, "find", func() ([]store.Document, error) { return c.store.Find(gctx, q) })
		return err
	})
	g.Go(func() (err error) {
		matched, err = runStore(c, gctx, "count", func() (int, error) { return c.store.Count(gctx, pred) })
		return err
	})
	g.Go(func() (err error) {
		size, err = runStore(c, gctx, "len", func() (int, error) { return c.store.Len(gctx) })
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]EntryResource, len(docs))
	for i, d := range docs {
		entries[i] = c.mapper.MapBack(d, fields)
	}

	return &Result{
		Entries:           entries,
		DataReturned:      matched,
		DataAvailable:     size,
		MoreDataAvailable: params.PageOffset+len(entries) < matched,
		Fields:            fields,
		OmittedFields:     omitted,
		Limit:             limit,
		Offset:            params.PageOffset,
	}, nil
}

// FindOne answers a single-entry request. A missing entry yields a result with a nil Entry.
func (c *EntryCollection) FindOne(ctx context.Context, id string, params SingleEntryParams) (*SingleResult, error) {
	if err := checkFormat(params.ResponseFormat); err != nil {
		return nil, err
	}
	fields, omitted := c.fieldSet(params.ResponseFields)

	pred := &predicate.Compare{Field: c.mapper.AliasFor("id"), Op: predicate.Eq, Value: id}
	q := &store.Query{
		Predicate:  pred,
		Projection: c.projection(fields),
		Limit:      2,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		docs []store.Document
		size int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		docs, err = runStore(c, gctx, "find", func() ([]store.Document, error) { return c.store.Find(gctx, q) })
		return err
	})
	g.Go(func() (err error) {
		size, err = runStore(c, gctx, "len", func() (int, error) { return c.store.Len(gctx) })
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch len(docs) {
	case 0:
		return &SingleResult{DataAvailable: size, Fields: fields, OmittedFields: omitted}, nil
	case 1:
		entry := c.mapper.MapBack(docs[0], fields)
		return &SingleResult{
			Entry:         &entry,
			DataReturned:  1,
			DataAvailable: size,
			Fields:        fields,
			OmittedFields: omitted,
		}, nil
	}

	n, err := runStore(c, ctx, "count", func() (int, error) { return c.store.Count(ctx, pred) })
	if err != nil {
		n = len(docs)
	}
	c.logger.Error("Duplicate entry identifier", "endpoint", c.endpoint, "id", id, "count", n)
	return nil, &MultipleEntriesError{ID: id, Count: n}
}

// Predicate parses and transforms a filter with the given grammar version
// (empty selects the collection default). An empty filter yields predicate.True.
func (c *EntryCollection) Predicate(src, version string) (predicate.Predicate, error) {
	if version == "" {
		version = c.grammar
	}
	parser, err := filter.NewParser(version, filter.DefaultVariant)
	if err != nil {
		c.filterError("grammar")
		return nil, err
	}
	root, err := parser.Parse(src)
	if err != nil {
		c.filterError("syntax")
		return nil, err
	}
	pred, err := c.transformer.Transform(root)
	if err != nil {
		var unresolved *predicate.UnresolvedPropertyError
		if errors.As(err, &unresolved) {
			c.filterError("unresolved")
		} else {
			c.filterError("translation")
		}
		return nil, err
	}
	return pred, nil
}

func (c *EntryCollection) limit(requested int) (int, error) {
	switch {
	case requested < 0:
		return 0, &ParameterError{Name: "page_limit", Reason: "must not be negative"}
	case requested == 0:
		return c.pageLimit, nil
	case requested > c.pageLimitMax:
		return 0, &PaginationLimitError{Requested: requested, Max: c.pageLimitMax}
	}
	return requested, nil
}

// sortFields resolves the sort parameter and appends id as the final key,
// so every sort order is total.
func (c *EntryCollection) sortFields(s string) ([]store.SortField, error) {
	keys, err := ParseSort(s)
	if err != nil {
		return nil, err
	}

	idField := c.mapper.AliasFor("id")
	out := make([]store.SortField, 0, len(keys)+1)
	hasID := false
	for _, k := range keys {
		f, ok := c.entry.Field(k.Field)
		if !ok {
			return nil, &predicate.UnresolvedPropertyError{Path: k.Field, Reason: "unknown sort property"}
		}
		if !f.Sortable {
			return nil, &ParameterError{Name: "sort", Reason: fmt.Sprintf("property %s is not sortable", k.Field)}
		}
		storage := f.StorageName()
		if storage == idField {
			hasID = true
		}
		out = append(out, store.SortField{Field: storage, Descending: k.Descending})
	}
	if !hasID {
		out = append(out, store.SortField{Field: idField})
	}
	return out, nil
}

// fieldSet returns the logical properties to return and the sorted list of
// properties left out because of response_fields.
func (c *EntryCollection) fieldSet(responseFields string) (fields, omitted []string) {
	all := c.entry.AllFields()
	requested := ParseFields(responseFields)
	if len(requested) == 0 {
		return all, nil
	}

	want := map[string]bool{"id": true, "type": true}
	for _, f := range requested {
		want[f] = true
	}
	for _, f := range all {
		if want[f] {
			fields = append(fields, f)
		} else {
			omitted = append(omitted, f)
		}
	}
	sort.Strings(omitted)
	return fields, omitted
}

// projection returns the distinct storage names of fields.
func (c *EntryCollection) projection(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		storage := c.mapper.AliasFor(f)
		if !seen[storage] {
			seen[storage] = true
			out = append(out, storage)
		}
	}
	return out
}

func (c *EntryCollection) filterError(kind string) {
	if c.observer != nil {
		c.observer.FilterError(kind)
	}
}

// runStore calls fn with panic recovery, reports its duration and wraps failures in StoreError.
func runStore[T any](c *EntryCollection, ctx context.Context, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := recovery.RecoverToValue(c.logger, c.endpoint+"."+op, fn)
	elapsed := time.Since(start)

	if c.observer != nil {
		c.observer.StoreOperation(c.endpoint, op, elapsed, err)
	}
	c.logger.Debug("Store operation", "endpoint", c.endpoint, "op", op, "elapsed", elapsed, "error", err)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, store.ErrTimeout) {
			err = errors.Join(store.ErrTimeout, err)
		} else if ctxErr := store.FromContext(ctx); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(ctxErr, err)
		}
		var zero T
		return zero, &StoreError{Op: op, Err: err}
	}
	return v, nil
}
