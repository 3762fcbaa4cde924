package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/optimade-go/catalog"
	"github.com/hugr-lab/optimade-go/filter"
	"github.com/hugr-lab/optimade-go/internal/recovery"
	"github.com/hugr-lab/optimade-go/predicate"
	"github.com/hugr-lab/optimade-go/store"
	"github.com/hugr-lab/optimade-go/store/memory"
)

func testEntryType(t *testing.T) *catalog.EntryType {
	t.Helper()
	e, err := catalog.NewEntryType("structures", "", []catalog.Field{
		{Name: "id", Alias: "task_id", Type: arrow.BinaryTypes.String, Sortable: true},
		{Name: "type", Type: arrow.BinaryTypes.String},
		{Name: "a", Type: arrow.PrimitiveTypes.Int64, Sortable: true},
		{Name: "b", Type: arrow.BinaryTypes.String, Sortable: true},
		{Name: "elements", Type: arrow.ListOf(arrow.BinaryTypes.String)},
		{Name: "nsites", Type: arrow.PrimitiveTypes.Int64},
		{Name: "_exmpl_band_gap", Type: arrow.PrimitiveTypes.Float64, Provider: true, Sortable: true},
	})
	require.NoError(t, err)
	return e
}

func testDocs() []store.Document {
	return []store.Document{
		{"task_id": "e1", "type": "structures", "a": 4, "b": "x", "elements": []any{"Al", "O", "Si"}},
		{"task_id": "e2", "type": "structures", "a": 2, "b": "x", "elements": []any{"Al"}},
		{"task_id": "e3", "type": "structures", "a": 5, "b": "y", "_exmpl_band_gap": 1.5},
		{"task_id": "e4", "type": "structures", "a": 0, "b": "z"},
		{"task_id": "e5", "type": "structures", "a": 11, "b": "x", "nsites": 3},
		{"task_id": "e6", "type": "structures", "a": 7},
		{"task_id": "e7", "type": "structures", "b": "y"},
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	ops     []string
	filters []string
}

func (o *recordingObserver) StoreOperation(endpoint, op string, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, endpoint+"."+op)
}

func (o *recordingObserver) FilterError(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.filters = append(o.filters, kind)
}

func newCollection(t *testing.T, st store.Store, mutate ...func(*Options)) *EntryCollection {
	t.Helper()
	opts := Options{
		Endpoint:     "structures",
		Store:        st,
		EntryType:    testEntryType(t),
		PageLimit:    3,
		PageLimitMax: 5,
	}
	for _, m := range mutate {
		m(&opts)
	}
	c, err := NewEntryCollection(opts)
	require.NoError(t, err)
	return c
}

func entryIDs(r *Result) []string {
	out := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.ID
	}
	return out
}

func TestNewEntryCollectionValidation(t *testing.T) {
	et := testEntryType(t)
	st := memory.New()

	_, err := NewEntryCollection(Options{Store: st, EntryType: et})
	assert.Error(t, err)
	_, err = NewEntryCollection(Options{Endpoint: "structures", EntryType: et})
	assert.Error(t, err)
	_, err = NewEntryCollection(Options{Endpoint: "structures", Store: st})
	assert.Error(t, err)
	_, err = NewEntryCollection(Options{Endpoint: "structures", Store: st, EntryType: et, PageLimit: 10, PageLimitMax: 5})
	assert.Error(t, err)
	_, err = NewEntryCollection(Options{Endpoint: "structures", Store: st, EntryType: et, GrammarVersion: "9.9.9"})
	assert.ErrorIs(t, err, filter.ErrUnknownGrammar)

	c, err := NewEntryCollection(Options{Endpoint: "structures", Store: st, EntryType: et})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageLimit, c.PageLimit())
	assert.Equal(t, "structures", c.Endpoint())
}

func TestFindFilter(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...), func(o *Options) { o.PageLimit = 5 })
	ctx := context.Background()

	tests := []struct {
		filter string
		want   []string
	}{
		{`a > 3 AND b = "x"`, []string{"e1", "e5"}},
		{`elements HAS ALL ["Al","O"]`, []string{"e1"}},
		{`NOT (a < 1 OR a > 10)`, []string{"e1", "e2", "e3", "e6", "e7"}},
		{`id = "e4"`, []string{"e4"}},
		{`_exmpl_band_gap > 1`, []string{"e3"}},
		{`_other_prop = 1`, []string{}},
		{`nsites IS UNKNOWN AND a IS KNOWN AND a > 6`, []string{"e6"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			r, err := c.Find(ctx, ListingParams{Filter: tt.filter})
			require.NoError(t, err)
			assert.Equal(t, tt.want, entryIDs(r))
			assert.Equal(t, len(tt.want), r.DataReturned)
			assert.Equal(t, 7, r.DataAvailable)
			assert.False(t, r.MoreDataAvailable)
		})
	}
}

func TestFindPaginationConsistency(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...))
	ctx := context.Background()

	for _, sortParam := range []string{"", "a", "-a", "b,-a", "-id"} {
		t.Run("sort="+sortParam, func(t *testing.T) {
			full, err := c.Find(ctx, ListingParams{Sort: sortParam, PageLimit: 5})
			require.NoError(t, err)
			all := entryIDs(full)
			rest, err := c.Find(ctx, ListingParams{Sort: sortParam, PageLimit: 5, PageOffset: 5})
			require.NoError(t, err)
			all = append(all, entryIDs(rest)...)
			require.Len(t, all, 7)

			var windows []string
			for offset := 0; offset < 7; offset += 3 {
				r, err := c.Find(ctx, ListingParams{Sort: sortParam, PageLimit: 3, PageOffset: offset})
				require.NoError(t, err)
				assert.Equal(t, 7, r.DataReturned)
				assert.Equal(t, offset+3 < 7, r.MoreDataAvailable, "offset %d", offset)
				windows = append(windows, entryIDs(r)...)
			}
			assert.Equal(t, all, windows)
		})
	}
}

func TestFindMoreDataAvailable(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...))
	ctx := context.Background()

	tests := []struct {
		offset, limit int
		returned      int
		more          bool
	}{
		{0, 5, 5, true},
		{2, 5, 5, false},
		{4, 3, 3, false},
		{6, 3, 1, false},
		{7, 3, 0, false},
		{20, 3, 0, false},
	}
	for _, tt := range tests {
		r, err := c.Find(ctx, ListingParams{PageLimit: tt.limit, PageOffset: tt.offset})
		require.NoError(t, err)
		assert.Len(t, r.Entries, tt.returned, "offset %d limit %d", tt.offset, tt.limit)
		assert.Equal(t, 7, r.DataReturned)
		assert.Equal(t, tt.more, r.MoreDataAvailable, "offset %d limit %d", tt.offset, tt.limit)
		assert.Equal(t, tt.offset+len(r.Entries) < r.DataReturned, r.MoreDataAvailable)
	}
}

func TestFindSortOrder(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...))

	r, err := c.Find(context.Background(), ListingParams{Sort: "-a", PageLimit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"e5", "e6", "e3", "e1", "e2"}, entryIDs(r))

	r, err = c.Find(context.Background(), ListingParams{Sort: "b,-a", PageLimit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"e5", "e1", "e2", "e3", "e7"}, entryIDs(r))
}

func TestFindPageLimit(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...))
	ctx := context.Background()

	r, err := c.Find(ctx, ListingParams{PageLimit: 0})
	require.NoError(t, err)
	assert.Len(t, r.Entries, 3)
	assert.Equal(t, 3, r.Limit)
	assert.True(t, r.MoreDataAvailable)

	r, err = c.Find(ctx, ListingParams{PageLimit: 5})
	require.NoError(t, err)
	assert.Len(t, r.Entries, 5)

	_, err = c.Find(ctx, ListingParams{PageLimit: 6})
	var limitErr *PaginationLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 6, limitErr.Requested)
	assert.Equal(t, 5, limitErr.Max)

	var paramErr *ParameterError
	_, err = c.Find(ctx, ListingParams{PageLimit: -1})
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "page_limit", paramErr.Name)

	_, err = c.Find(ctx, ListingParams{PageOffset: -1})
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "page_offset", paramErr.Name)

	r, err = c.Find(ctx, ListingParams{PageOffset: 100})
	require.NoError(t, err)
	assert.Empty(t, r.Entries)
	assert.Equal(t, 7, r.DataReturned)
	assert.False(t, r.MoreDataAvailable)
}

func TestFindResponseFormat(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...))

	_, err := c.Find(context.Background(), ListingParams{ResponseFormat: "json"})
	require.NoError(t, err)

	_, err = c.Find(context.Background(), ListingParams{ResponseFormat: "xml"})
	var formatErr *ResponseFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "xml", formatErr.Format)

	_, err = c.FindOne(context.Background(), "e1", SingleEntryParams{ResponseFormat: "yaml"})
	require.ErrorAs(t, err, &formatErr)
}

func TestFindResponseFields(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...))

	r, err := c.Find(context.Background(), ListingParams{Filter: `id = "e1"`})
	require.NoError(t, err)
	assert.Nil(t, r.OmittedFields)
	assert.Equal(t, []string{"_exmpl_band_gap", "a", "b", "elements", "id", "nsites", "type"}, r.Fields)
	require.Len(t, r.Entries, 1)
	assert.Equal(t, "structures", r.Entries[0].Type)
	assert.Len(t, r.Entries[0].Attributes, 5)
	assert.Nil(t, r.Entries[0].Attributes["nsites"])

	r, err = c.Find(context.Background(), ListingParams{Filter: `id = "e1"`, ResponseFields: "a, elements,a,unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "elements", "id", "type"}, r.Fields)
	assert.Equal(t, []string{"_exmpl_band_gap", "b", "nsites"}, r.OmittedFields)
	require.Len(t, r.Entries, 1)
	assert.Equal(t, "e1", r.Entries[0].ID)
	assert.Equal(t, map[string]any{"a": 4, "elements": []any{"Al", "O", "Si"}}, r.Entries[0].Attributes)
}

func TestFindSortErrors(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...))
	ctx := context.Background()

	var unresolved *predicate.UnresolvedPropertyError
	_, err := c.Find(ctx, ListingParams{Sort: "unknown"})
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "unknown", unresolved.Path)

	var paramErr *ParameterError
	_, err = c.Find(ctx, ListingParams{Sort: "elements"})
	require.ErrorAs(t, err, &paramErr)

	_, err = c.Find(ctx, ListingParams{Sort: "a,-"})
	require.ErrorAs(t, err, &paramErr)
	assert.Equal(t, "sort", paramErr.Name)
}

func TestFindFilterErrors(t *testing.T) {
	obs := &recordingObserver{}
	c := newCollection(t, memory.New(testDocs()...), func(o *Options) { o.Observer = obs })
	ctx := context.Background()

	_, err := c.Find(ctx, ListingParams{Filter: "a >> 3"})
	var syntaxErr *filter.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 3, syntaxErr.Offset)

	_, err = c.Find(ctx, ListingParams{Filter: "a = b"})
	var translationErr *predicate.TranslationError
	require.ErrorAs(t, err, &translationErr)

	_, err = c.Find(ctx, ListingParams{Filter: "a.b = 1"})
	var unresolved *predicate.UnresolvedPropertyError
	require.ErrorAs(t, err, &unresolved)

	_, err = c.Find(ctx, ListingParams{Filter: "a = 1", GrammarVersion: "0.1.0"})
	require.ErrorIs(t, err, filter.ErrUnknownGrammar)

	_, err = c.Find(ctx, ListingParams{Filter: "elements LENGTH 3", GrammarVersion: "0.9.7"})
	require.ErrorAs(t, err, &syntaxErr)

	assert.Equal(t, []string{"syntax", "translation", "unresolved", "grammar", "syntax"}, obs.filters)
}

func TestFindIdempotent(t *testing.T) {
	c := newCollection(t, memory.New(testDocs()...))
	params := ListingParams{Filter: `a > 1 OR b = "y"`, Sort: "-b", PageLimit: 2, PageOffset: 1, ResponseFields: "a,b"}

	first, err := c.Find(context.Background(), params)
	require.NoError(t, err)
	second, err := c.Find(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFindOne(t *testing.T) {
	docs := append(testDocs(), store.Document{"task_id": "e1", "type": "structures", "a": 1})
	obs := &recordingObserver{}
	c := newCollection(t, memory.New(docs...), func(o *Options) { o.Observer = obs })
	ctx := context.Background()

	r, err := c.FindOne(ctx, "e3", SingleEntryParams{ResponseFields: "a"})
	require.NoError(t, err)
	require.NotNil(t, r.Entry)
	assert.Equal(t, "e3", r.Entry.ID)
	assert.Equal(t, map[string]any{"a": 5}, r.Entry.Attributes)
	assert.Equal(t, 1, r.DataReturned)
	assert.Equal(t, 8, r.DataAvailable)
	assert.Equal(t, []string{"_exmpl_band_gap", "b", "elements", "nsites"}, r.OmittedFields)

	r, err = c.FindOne(ctx, "missing", SingleEntryParams{})
	require.NoError(t, err)
	assert.Nil(t, r.Entry)
	assert.Equal(t, 0, r.DataReturned)

	_, err = c.FindOne(ctx, "e1", SingleEntryParams{})
	var multi *MultipleEntriesError
	require.ErrorAs(t, err, &multi)
	assert.Equal(t, "e1", multi.ID)
	assert.Equal(t, 2, multi.Count)

	assert.Contains(t, obs.ops, "structures.find")
	assert.Contains(t, obs.ops, "structures.len")
}

type blockingStore struct {
	*memory.Store
}

func (s blockingStore) Find(ctx context.Context, q *store.Query) ([]store.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type panickingStore struct {
	*memory.Store
}

func (s panickingStore) Count(ctx context.Context, p predicate.Predicate) (int, error) {
	panic("count exploded")
}

func TestFindStoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("timeout", func(t *testing.T) {
		c := newCollection(t, blockingStore{memory.New(testDocs()...)}, func(o *Options) {
			o.QueryTimeout = 20 * time.Millisecond
		})
		_, err := c.Find(ctx, ListingParams{})
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.True(t, storeErr.Timeout())
		assert.False(t, storeErr.Unavailable())
		assert.ErrorIs(t, err, store.ErrTimeout)

		_, err = c.FindOne(ctx, "e1", SingleEntryParams{})
		assert.ErrorIs(t, err, store.ErrTimeout)
	})

	t.Run("unavailable", func(t *testing.T) {
		st := memory.New(testDocs()...)
		require.NoError(t, st.Close())
		c := newCollection(t, st)
		_, err := c.Find(ctx, ListingParams{})
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.True(t, storeErr.Unavailable())
		assert.False(t, storeErr.Timeout())
	})

	t.Run("panic", func(t *testing.T) {
		c := newCollection(t, panickingStore{memory.New(testDocs()...)})
		_, err := c.Find(ctx, ListingParams{})
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "count", storeErr.Op)
		assert.True(t, errors.Is(err, recovery.ErrPanic))
	})

	t.Run("caller cancelled", func(t *testing.T) {
		c := newCollection(t, blockingStore{memory.New(testDocs()...)})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Find(cctx, ListingParams{})
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.False(t, storeErr.Timeout())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestParseSort(t *testing.T) {
	keys, err := ParseSort(" -nelements , id")
	require.NoError(t, err)
	assert.Equal(t, []SortKey{{Field: "nelements", Descending: true}, {Field: "id"}}, keys)

	keys, err = ParseSort("")
	require.NoError(t, err)
	assert.Nil(t, keys)

	for _, bad := range []string{",", "a,,b", "-", "a,- "} {
		_, err := ParseSort(bad)
		var paramErr *ParameterError
		assert.ErrorAs(t, err, &paramErr, bad)
	}
}

func TestParseFields(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseFields(" a,b,,a "))
	assert.Nil(t, ParseFields(""))
}

func TestResourceMapper(t *testing.T) {
	m := NewResourceMapper(testEntryType(t))
	assert.Equal(t, "task_id", m.AliasFor("id"))
	assert.Equal(t, "whatever", m.AliasFor("whatever"))

	r := m.MapBack(store.Document{"task_id": 42, "a": 1}, []string{"id", "type", "a"})
	assert.Equal(t, EntryResource{ID: "42", Type: "structures", Attributes: map[string]any{"a": 1}}, r)
}
