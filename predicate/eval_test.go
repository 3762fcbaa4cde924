package predicate

import (
	"strings"
	"testing"
	"time"
)

func matching(t *testing.T, src string, docs []map[string]any) []int {
	t.Helper()
	p := transform(t, src)
	var out []int
	for i, d := range docs {
		if Match(p, d) {
			out = append(out, i)
		}
	}
	return out
}

func expectMatches(t *testing.T, src string, docs []map[string]any, want ...int) {
	t.Helper()
	got := matching(t, src, docs)
	if len(got) != len(want) {
		t.Fatalf("%s: expected matches %v, got %v", src, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: expected matches %v, got %v", src, want, got)
		}
	}
}

func TestMatchComparisonConjunction(t *testing.T) {
	docs := []map[string]any{
		{"a": 4, "b": "x"},
		{"a": 2, "b": "x"},
		{"a": 5, "b": "y"},
	}
	expectMatches(t, `a > 3 AND b = "x"`, docs, 0)
}

func TestMatchHasAll(t *testing.T) {
	docs := []map[string]any{
		{"elements": []any{"Al", "O", "Si"}},
		{"elements": []any{"Al"}},
	}
	expectMatches(t, `elements HAS ALL ["Al","O"]`, docs, 0)
}

func TestMatchNegatedDisjunction(t *testing.T) {
	docs := []map[string]any{
		{"a": 0},
		{"a": 5},
		{"a": 11},
	}
	expectMatches(t, `NOT (a < 1 OR a > 10)`, docs, 1)
}

func TestMatchMissingValues(t *testing.T) {
	docs := []map[string]any{
		{"b": "x"},
		{"b": "y"},
		{"a": 1},
		{"b": nil},
	}
	expectMatches(t, `b != "x"`, docs, 1)
	expectMatches(t, `NOT b = "x"`, docs, 1, 2, 3)
	expectMatches(t, `b IS UNKNOWN`, docs, 2, 3)
	expectMatches(t, `b IS KNOWN`, docs, 0, 1)
	expectMatches(t, `_other IS UNKNOWN`, docs, 0, 1, 2, 3)
	expectMatches(t, `_other = 1`, docs)
}

func TestMatchNumericKinds(t *testing.T) {
	docs := []map[string]any{
		{"a": float64(3)},
		{"a": int32(3)},
		{"a": uint8(4)},
		{"a": "3"},
		{"_exmpl_band_gap": 1.2},
		{"_exmpl_band_gap": int64(2)},
	}
	expectMatches(t, `a = 3`, docs, 0, 1)
	expectMatches(t, `a >= 3`, docs, 0, 1, 2)
	expectMatches(t, `_exmpl_band_gap < 1.5`, docs, 4)
	expectMatches(t, `_exmpl_band_gap > 1.5`, docs, 5)
}

func TestMatchStrings(t *testing.T) {
	docs := []map[string]any{
		{"chemical_formula_reduced": "Al2O3", "pretty_formula": "Al2O3"},
		{"pretty_formula": "SiO2"},
		{"pretty_formula": "Al"},
	}
	expectMatches(t, `chemical_formula_reduced STARTS "Al"`, docs, 0, 2)
	expectMatches(t, `chemical_formula_reduced ENDS WITH "O2"`, docs, 1)
	expectMatches(t, `chemical_formula_reduced CONTAINS "2O"`, docs, 0)
	expectMatches(t, `chemical_formula_reduced < "B"`, docs, 0, 2)
}

func TestMatchListPredicates(t *testing.T) {
	docs := []map[string]any{
		{"elements": []any{"Al", "O"}},
		{"elements": []string{"Al", "Si"}},
		{"elements": []any{}},
		{"elements": []any{"O"}},
		{},
	}
	expectMatches(t, `elements HAS "Al"`, docs, 0, 1)
	expectMatches(t, `elements HAS ANY "Si", "O"`, docs, 0, 1, 3)
	expectMatches(t, `elements HAS ONLY "Al", "O"`, docs, 0, 3)
	expectMatches(t, `elements HAS > "N"`, docs, 0, 1, 3)
	expectMatches(t, `elements LENGTH 2`, docs, 0, 1)
	expectMatches(t, `elements LENGTH < 2`, docs, 2, 3)
	expectMatches(t, `elements IS KNOWN`, docs, 0, 1, 2, 3)
	expectMatches(t, `NOT elements HAS "Al"`, docs, 2, 3, 4)
}

func TestMatchNested(t *testing.T) {
	docs := []map[string]any{
		{"species": []any{
			map[string]any{"name": "Si", "mass": 28.1},
			map[string]any{"name": "O", "mass": 16.0},
		}},
		{"species": []any{
			map[string]any{"name": "Al"},
		}},
		{"cell": map[string]any{"volume": 12.5}},
		{"cell": map[string]any{"volume": 8}},
	}
	expectMatches(t, `species.name HAS "Si"`, docs, 0)
	expectMatches(t, `species.mass HAS > 20`, docs, 0)
	expectMatches(t, `species.mass IS KNOWN`, docs, 0)
	expectMatches(t, `species.name LENGTH 1`, docs, 1)
	expectMatches(t, `species.name HAS ONLY "Al", "Si"`, docs, 1)
	expectMatches(t, `cell.volume > 10`, docs, 2)
	expectMatches(t, `cell.volume IS UNKNOWN`, docs, 0, 1)
}

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"a": 1,
		"s": map[string]any{"t": map[string]any{"u": "deep"}},
		"l": []any{
			map[string]any{"v": []any{1, 2}},
			map[string]any{"v": []any{3}},
			map[string]any{"w": 4},
		},
	}

	if v, ok := Lookup(doc, "a"); !ok || v != 1 {
		t.Errorf("expected 1, got %v (%v)", v, ok)
	}
	if v, ok := Lookup(doc, "s.t.u"); !ok || v != "deep" {
		t.Errorf("expected deep, got %v (%v)", v, ok)
	}
	v, ok := Lookup(doc, "l.v")
	if !ok {
		t.Fatal("expected l.v to be present")
	}
	if items, _ := asList(v); len(items) != 3 {
		t.Errorf("expected 3 flattened values, got %v", v)
	}
	if _, ok := Lookup(doc, "l.x"); ok {
		t.Error("expected l.x to be missing")
	}
	if _, ok := Lookup(doc, "a.b"); ok {
		t.Error("expected a.b to be missing")
	}
}

func TestCompareValuesTime(t *testing.T) {
	ts := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	if !compareValues(ts, Gt, "2019-12-31T00:00:00Z") {
		t.Error("expected time to be after 2019-12-31")
	}
	if !compareValues(ts, Eq, "2020-01-02") {
		t.Error("expected time to equal 2020-01-02")
	}
	if compareValues(ts, Lt, "not a time") {
		t.Error("expected unparsable time to never match")
	}
}

func TestOrderTimes(t *testing.T) {
	ts := time.Date(2019, 6, 8, 5, 13, 37, 0, time.UTC)
	tests := []struct {
		a, b any
		want int
		ok   bool
	}{
		{ts, "2019-06-08T05:13:37.331Z", -1, true},
		{"2019-06-08T07:13:37+02:00", ts, 0, true},
		{ts, ts.Add(-time.Hour), 1, true},
		{ts, "soon", 0, false},
		{ts, int64(1), 0, false},
	}
	for _, tt := range tests {
		got, ok := Order(tt.a, tt.b)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Order(%v, %v): expected %d/%v, got %d/%v", tt.a, tt.b, tt.want, tt.ok, got, ok)
		}
	}
}

func TestMatchConstants(t *testing.T) {
	doc := map[string]any{"a": 1}
	if !Match(True, doc) || Match(False, doc) {
		t.Error("unexpected constant evaluation")
	}
	if !Match(&And{}, doc) {
		t.Error("expected empty AND to match")
	}
	if Match(&Or{}, doc) {
		t.Error("expected empty OR not to match")
	}
	if !Match(nil, doc) {
		t.Error("expected nil predicate to match")
	}
}

func TestDeepFilter(t *testing.T) {
	const depth = 10_000
	var sb strings.Builder
	for i := 0; i < depth; i++ {
		if i%2 == 0 {
			sb.WriteString("a = 2 OR (")
		} else {
			sb.WriteString("a != 3 AND (")
		}
	}
	sb.WriteString("a = 1")
	sb.WriteString(strings.Repeat(")", depth))

	p := transform(t, sb.String())
	if !Match(p, map[string]any{"a": int64(1)}) {
		t.Error("expected a = 1 to match")
	}
	if Match(p, map[string]any{"a": int64(3)}) {
		t.Error("expected a = 3 not to match")
	}
	if _, err := NewDuckDBEncoder(nil).Encode(p); err != nil {
		t.Errorf("Encode failed: %v", err)
	}
}
