package optimade

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/optimade-go/catalog"
)

// FieldDef defines one property of an entry type.
type FieldDef struct {
	// Name is the API-facing property name. Provider fields are given without the prefix.
	Name string

	// Alias is the storage name. Empty stores the property under Name.
	Alias string

	// Type is the Arrow data type of the values. REQUIRED.
	Type arrow.DataType

	// Description is reported by the entry info endpoint.
	Description string

	// Sortable allows the property in the sort parameter. Scalar types only.
	Sortable bool
}

// CatalogueBuilder provides a fluent API for building the field catalogue.
// Not thread-safe - use only during initialization.
type CatalogueBuilder struct {
	prefix  string
	entries []*entryBuilder
	built   bool
}

// NewCatalogueBuilder creates a builder. providerPrefix (e.g. "_exmpl_") is
// prepended to every provider field name.
//
// Example:
//
//	cat, err := optimade.NewCatalogueBuilder("_exmpl_").
//	    EntryType("structures").
//	        Description("Crystal structures").
//	        Field(optimade.FieldDef{Name: "id", Alias: "task_id", Type: arrow.BinaryTypes.String, Sortable: true}).
//	        Field(optimade.FieldDef{Name: "type", Type: arrow.BinaryTypes.String}).
//	        ProviderField(optimade.FieldDef{Name: "band_gap", Type: arrow.PrimitiveTypes.Float64}).
//	    Build()
func NewCatalogueBuilder(providerPrefix string) *CatalogueBuilder {
	return &CatalogueBuilder{prefix: providerPrefix}
}

// EntryType starts a new entry type definition.
// Returns EntryTypeBuilder for adding fields.
func (cb *CatalogueBuilder) EntryType(name string) *EntryTypeBuilder {
	eb := &entryBuilder{name: name, catalogueBuilder: cb}
	cb.entries = append(cb.entries, eb)
	return &EntryTypeBuilder{builder: eb}
}

// Build finalizes and returns the immutable catalogue.
// Can only be called once.
// Returns error if an entry type is invalid (see catalog.NewEntryType) or declared twice.
func (cb *CatalogueBuilder) Build() (catalog.Catalogue, error) {
	if cb.built {
		return nil, fmt.Errorf("catalogue already built")
	}

	cat := catalog.NewStaticCatalogue(cb.prefix)
	seen := make(map[string]bool, len(cb.entries))
	for _, eb := range cb.entries {
		if seen[eb.name] {
			return nil, fmt.Errorf("duplicate entry type: %s", eb.name)
		}
		seen[eb.name] = true
		if eb.err != nil {
			return nil, eb.err
		}

		e, err := catalog.NewEntryType(eb.name, eb.description, eb.fields)
		if err != nil {
			return nil, err
		}
		cat.AddEntryType(e)
	}

	cb.built = true
	return cat, nil
}

// EntryTypeBuilder builds one entry type within a catalogue.
type EntryTypeBuilder struct {
	builder *entryBuilder
}

type entryBuilder struct {
	name             string
	description      string
	fields           []catalog.Field
	err              error
	catalogueBuilder *CatalogueBuilder
}

// Description sets the entry type documentation.
// Returns self for method chaining.
func (eb *EntryTypeBuilder) Description(description string) *EntryTypeBuilder {
	eb.builder.description = description
	return eb
}

// Field adds a schema-defined property.
// Returns self for method chaining.
func (eb *EntryTypeBuilder) Field(def FieldDef) *EntryTypeBuilder {
	eb.builder.fields = append(eb.builder.fields, catalog.Field{
		Name:        def.Name,
		Alias:       def.Alias,
		Type:        def.Type,
		Description: def.Description,
		Sortable:    def.Sortable,
	})
	return eb
}

// Fields adds several schema-defined properties.
// Returns self for method chaining.
func (eb *EntryTypeBuilder) Fields(defs ...FieldDef) *EntryTypeBuilder {
	for _, def := range defs {
		eb.Field(def)
	}
	return eb
}

// ProviderField adds a provider-specific property. The provider prefix is
// prepended to def.Name; a name that already carries it is an error at Build.
// Returns self for method chaining.
func (eb *EntryTypeBuilder) ProviderField(def FieldDef) *EntryTypeBuilder {
	prefix := eb.builder.catalogueBuilder.prefix
	if prefix != "" && strings.HasPrefix(def.Name, prefix) {
		if eb.builder.err == nil {
			eb.builder.err = fmt.Errorf("provider field %s.%s must be given without the prefix %s",
				eb.builder.name, def.Name, prefix)
		}
		return eb
	}
	eb.builder.fields = append(eb.builder.fields, catalog.Field{
		Name:        prefix + def.Name,
		Alias:       def.Alias,
		Type:        def.Type,
		Description: def.Description,
		Provider:    true,
		Sortable:    def.Sortable,
	})
	return eb
}

// EntryType starts the next entry type definition.
// Allows chaining: EntryType("a").Field(...).EntryType("b").Field(...)
func (eb *EntryTypeBuilder) EntryType(name string) *EntryTypeBuilder {
	return eb.builder.catalogueBuilder.EntryType(name)
}

// Build finalizes the catalogue (returns to CatalogueBuilder).
// Same as calling catalogueBuilder.Build().
func (eb *EntryTypeBuilder) Build() (catalog.Catalogue, error) {
	return eb.builder.catalogueBuilder.Build()
}

// timestampType is stored without a zone; values are UTC.
var timestampType = &arrow.TimestampType{Unit: arrow.Microsecond}

// ParseFieldType returns the Arrow type of a configured type name:
// string, integer, float, boolean, timestamp, or list of one of these
// written as "list[integer]".
func ParseFieldType(name string) (arrow.DataType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if inner, ok := strings.CutPrefix(name, "list["); ok {
		inner, ok = strings.CutSuffix(inner, "]")
		if !ok {
			return nil, fmt.Errorf("unknown field type %q", name)
		}
		elem, err := ParseFieldType(inner)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	}

	switch name {
	case "", "string":
		return arrow.BinaryTypes.String, nil
	case "integer", "int":
		return arrow.PrimitiveTypes.Int64, nil
	case "float":
		return arrow.PrimitiveTypes.Float64, nil
	case "boolean", "bool":
		return arrow.FixedWidthTypes.Boolean, nil
	case "timestamp":
		return timestampType, nil
	}
	return nil, fmt.Errorf("unknown field type %q", name)
}
