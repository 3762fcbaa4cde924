package optimade

import (
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
)

func idAndType() []FieldDef {
	return []FieldDef{
		{Name: "id", Type: arrow.BinaryTypes.String, Sortable: true},
		{Name: "type", Type: arrow.BinaryTypes.String},
	}
}

// TestCatalogueBuilderBasic tests basic catalogue building functionality.
func TestCatalogueBuilderBasic(t *testing.T) {
	cat, err := NewCatalogueBuilder("_test_").
		EntryType("structures").
		Description("test structures").
		Fields(idAndType()...).
		Field(FieldDef{Name: "nelements", Type: arrow.PrimitiveTypes.Int64, Sortable: true}).
		Build()

	if err != nil {
		t.Fatalf("Expected successful build, got error: %v", err)
	}
	if cat.ProviderPrefix() != "_test_" {
		t.Errorf("Expected prefix _test_, got %q", cat.ProviderPrefix())
	}

	e, ok := cat.EntryType("structures")
	if !ok {
		t.Fatal("Expected structures entry type")
	}
	if e.Description() != "test structures" {
		t.Errorf("Unexpected description %q", e.Description())
	}
	if f, ok := e.Field("nelements"); !ok || !f.Sortable {
		t.Errorf("Expected sortable nelements, got %+v", f)
	}
}

// TestCatalogueBuilderMultipleEntryTypes tests chaining several entry types.
func TestCatalogueBuilderMultipleEntryTypes(t *testing.T) {
	cat, err := NewCatalogueBuilder("_test_").
		EntryType("structures").Fields(idAndType()...).
		EntryType("references").Fields(idAndType()...).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	types := cat.EntryTypes()
	if len(types) != 2 {
		t.Fatalf("Expected 2 entry types, got %d", len(types))
	}
	if types[0].Name() != "references" || types[1].Name() != "structures" {
		t.Errorf("Expected entry types ordered by name, got %s, %s", types[0].Name(), types[1].Name())
	}
}

// TestCatalogueBuilderProviderFields tests prefixing of provider fields.
func TestCatalogueBuilderProviderFields(t *testing.T) {
	cat, err := NewCatalogueBuilder("_exmpl_").
		EntryType("structures").
		Fields(idAndType()...).
		ProviderField(FieldDef{Name: "band_gap", Type: arrow.PrimitiveTypes.Float64, Sortable: true}).
		ProviderField(FieldDef{Name: "chemsys", Alias: "chemsys", Type: arrow.BinaryTypes.String}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	e, _ := cat.EntryType("structures")
	got := e.ProviderFields()
	if len(got) != 2 || got[0] != "_exmpl_band_gap" || got[1] != "_exmpl_chemsys" {
		t.Fatalf("Unexpected provider fields %v", got)
	}
	if alias, _ := e.Resolve("_exmpl_chemsys"); alias != "chemsys" {
		t.Errorf("Expected alias chemsys, got %q", alias)
	}
	if alias, _ := e.Resolve("_exmpl_band_gap"); alias != "_exmpl_band_gap" {
		t.Errorf("Expected prefixed storage name, got %q", alias)
	}
}

// TestCatalogueBuilderErrors tests rejected definitions.
func TestCatalogueBuilderErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() error
		want  string
	}{
		{
			name: "duplicate entry type",
			build: func() error {
				_, err := NewCatalogueBuilder("_t_").
					EntryType("a").Fields(idAndType()...).
					EntryType("a").Fields(idAndType()...).
					Build()
				return err
			},
			want: "duplicate entry type",
		},
		{
			name: "empty entry type name",
			build: func() error {
				_, err := NewCatalogueBuilder("_t_").EntryType("").Fields(idAndType()...).Build()
				return err
			},
			want: "cannot be empty",
		},
		{
			name: "missing id",
			build: func() error {
				_, err := NewCatalogueBuilder("_t_").EntryType("a").
					Field(FieldDef{Name: "type", Type: arrow.BinaryTypes.String}).
					Build()
				return err
			},
			want: `must declare field "id"`,
		},
		{
			name: "prefixed provider field",
			build: func() error {
				_, err := NewCatalogueBuilder("_t_").EntryType("a").Fields(idAndType()...).
					ProviderField(FieldDef{Name: "_t_x", Type: arrow.BinaryTypes.String}).
					Build()
				return err
			},
			want: "without the prefix",
		},
		{
			name: "sortable list",
			build: func() error {
				_, err := NewCatalogueBuilder("_t_").EntryType("a").Fields(idAndType()...).
					Field(FieldDef{Name: "elements", Type: arrow.ListOf(arrow.BinaryTypes.String), Sortable: true}).
					Build()
				return err
			},
			want: "cannot be sortable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

// TestCatalogueBuilderBuildOnce tests that Build can only be called once.
func TestCatalogueBuilderBuildOnce(t *testing.T) {
	b := NewCatalogueBuilder("_t_")
	b.EntryType("a").Fields(idAndType()...)
	if _, err := b.Build(); err != nil {
		t.Fatalf("First build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Error("Expected error on second build")
	}
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		in   string
		want arrow.DataType
	}{
		{"", arrow.BinaryTypes.String},
		{"string", arrow.BinaryTypes.String},
		{"Integer", arrow.PrimitiveTypes.Int64},
		{"float", arrow.PrimitiveTypes.Float64},
		{"bool", arrow.FixedWidthTypes.Boolean},
		{"timestamp", &arrow.TimestampType{Unit: arrow.Microsecond}},
		{"list[float]", arrow.ListOf(arrow.PrimitiveTypes.Float64)},
		{"list[list[integer]]", arrow.ListOf(arrow.ListOf(arrow.PrimitiveTypes.Int64))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldType(tt.in)
			if err != nil {
				t.Fatalf("ParseFieldType(%q) failed: %v", tt.in, err)
			}
			if !arrow.TypeEqual(got, tt.want) {
				t.Errorf("ParseFieldType(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	for _, bad := range []string{"complex", "list[float", "list[nope]"} {
		if _, err := ParseFieldType(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

// TestNewCatalogue tests the built-in entry types.
func TestNewCatalogue(t *testing.T) {
	cat, err := NewCatalogue("_exmpl_", map[string][]FieldDef{
		Structures: {{Name: "band_gap", Type: arrow.PrimitiveTypes.Float64, Sortable: true}},
	})
	if err != nil {
		t.Fatalf("NewCatalogue failed: %v", err)
	}

	var names []string
	for _, e := range cat.EntryTypes() {
		names = append(names, e.Name())
	}
	if strings.Join(names, ",") != "links,references,structures" {
		t.Fatalf("Unexpected entry types %v", names)
	}

	s, _ := cat.EntryType(Structures)
	aliases := map[string]string{
		"id":                           "task_id",
		"chemical_formula_descriptive": "pretty_formula",
		"chemical_formula_reduced":     "pretty_formula",
		"chemical_formula_anonymous":   "formula_anonymous",
		"nelements":                    "nelements",
		"_exmpl_band_gap":              "_exmpl_band_gap",
	}
	for name, want := range aliases {
		if got, err := s.Resolve(name); err != nil || got != want {
			t.Errorf("Resolve(%s) = %q, %v; want %q", name, got, err, want)
		}
	}

	// one column per distinct storage name
	storage := s.StorageSchema()
	if got := len(storage.FieldIndices("pretty_formula")); got != 1 {
		t.Errorf("Expected one pretty_formula column, got %d", got)
	}
	if storage.NumFields() != len(s.Fields())-1 {
		t.Errorf("Expected %d storage columns, got %d", len(s.Fields())-1, storage.NumFields())
	}

	r, _ := cat.EntryType(References)
	if len(r.ProviderFields()) != 0 {
		t.Errorf("Expected no provider fields on references, got %v", r.ProviderFields())
	}
	if _, ok := r.Field("journal"); !ok {
		t.Error("Expected BibTeX field journal on references")
	}
}

func TestNewCatalogueUnknownEndpoint(t *testing.T) {
	_, err := NewCatalogue("_exmpl_", map[string][]FieldDef{
		"calculations": {{Name: "x", Type: arrow.BinaryTypes.String}},
	})
	if err == nil {
		t.Fatal("Expected error for provider fields of unknown entry type")
	}
}
