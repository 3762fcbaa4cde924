package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Field metadata keys attached to Arrow schema fields.
const (
	MetadataDescription = "description"
	MetadataAlias       = "storage_alias"
	MetadataLogicalName = "logical_name"
	MetadataProvider    = "is_provider_field"
)

// staticCatalogue is an immutable catalogue implementation built from CatalogueBuilder.
type staticCatalogue struct {
	prefix  string
	entries map[string]*EntryType
}

// NewStaticCatalogue creates an empty static catalogue.
// This is exported for use by the optimade package builder.
func NewStaticCatalogue(providerPrefix string) *staticCatalogue {
	return &staticCatalogue{
		prefix:  providerPrefix,
		entries: make(map[string]*EntryType),
	}
}

// AddEntryType adds an entry type to the static catalogue.
// This is used during catalogue building.
func (c *staticCatalogue) AddEntryType(e *EntryType) {
	c.entries[e.name] = e
}

// EntryTypes implements Catalogue interface.
func (c *staticCatalogue) EntryTypes() []*EntryType {
	result := make([]*EntryType, 0, len(c.entries))
	for _, e := range c.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].name < result[j].name })
	return result
}

// EntryType implements Catalogue interface.
func (c *staticCatalogue) EntryType(name string) (*EntryType, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// ProviderPrefix implements Catalogue interface.
func (c *staticCatalogue) ProviderPrefix() string {
	return c.prefix
}

// EntryType is the immutable field table of one entry endpoint.
type EntryType struct {
	name        string
	description string
	fields      []Field
	byName      map[string]int
}

// NewEntryType validates fields and creates an entry type.
// Field names must be unique and non-empty, every field needs a type, and
// fields sharing a storage alias must share the same type.
func NewEntryType(name, description string, fields []Field) (*EntryType, error) {
	if name == "" {
		return nil, fmt.Errorf("entry type name cannot be empty")
	}

	e := &EntryType{
		name:        name,
		description: description,
		fields:      make([]Field, 0, len(fields)),
		byName:      make(map[string]int, len(fields)),
	}

	aliasTypes := make(map[string]arrow.DataType, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field name cannot be empty in entry type %s", name)
		}
		if strings.Contains(f.Name, ".") {
			return nil, fmt.Errorf("field name %q in entry type %s must not contain '.'", f.Name, name)
		}
		if _, dup := e.byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %s in entry type %s", f.Name, name)
		}
		if f.Type == nil {
			return nil, fmt.Errorf("field %s.%s has nil type", name, f.Name)
		}
		if f.Sortable && (f.IsList() || f.IsNested()) {
			return nil, fmt.Errorf("field %s.%s of type %s cannot be sortable", name, f.Name, f.Type)
		}
		storage := f.StorageName()
		if prev, ok := aliasTypes[storage]; ok && !arrow.TypeEqual(prev, f.Type) {
			return nil, fmt.Errorf("fields of %s stored as %s have conflicting types %s and %s",
				name, storage, prev, f.Type)
		}
		aliasTypes[storage] = f.Type

		e.byName[f.Name] = len(e.fields)
		e.fields = append(e.fields, f)
	}

	for _, required := range []string{"id", "type"} {
		if _, ok := e.byName[required]; !ok {
			return nil, fmt.Errorf("entry type %s must declare field %q", name, required)
		}
	}

	return e, nil
}

// Name returns the endpoint name (e.g. "structures").
func (e *EntryType) Name() string { return e.name }

// Description returns the entry type documentation.
func (e *EntryType) Description() string { return e.description }

// Fields returns a copy of all fields in declaration order.
func (e *EntryType) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Field returns the field with the given logical name.
func (e *EntryType) Field(name string) (Field, bool) {
	idx, ok := e.byName[name]
	if !ok {
		return Field{}, false
	}
	return e.fields[idx], true
}

// Resolve returns the storage alias of a logical name.
// Returns ErrFieldNotFound if the name is not part of the entry type.
func (e *EntryType) Resolve(name string) (string, error) {
	f, ok := e.Field(name)
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrFieldNotFound, e.name, name)
	}
	return f.StorageName(), nil
}

// AliasFor returns the storage alias of a logical name, or the name itself if unknown.
func (e *EntryType) AliasFor(name string) string {
	if f, ok := e.Field(name); ok {
		return f.StorageName()
	}
	return name
}

// AllFields returns the sorted logical names of all fields, provider fields included.
func (e *EntryType) AllFields() []string {
	out := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		out = append(out, f.Name)
	}
	sort.Strings(out)
	return out
}

// ProviderFields returns the sorted logical names of the provider fields.
func (e *EntryType) ProviderFields() []string {
	var out []string
	for _, f := range e.fields {
		if f.Provider {
			out = append(out, f.Name)
		}
	}
	sort.Strings(out)
	return out
}

// ArrowSchema returns the API-facing schema: one Arrow field per logical name,
// in declaration order, with description and alias in the field metadata.
func (e *EntryType) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(e.fields))
	for _, f := range e.fields {
		provider := "false"
		if f.Provider {
			provider = "true"
		}
		md := arrow.NewMetadata(
			[]string{MetadataDescription, MetadataAlias, MetadataProvider},
			[]string{f.Description, f.StorageName(), provider},
		)
		fields = append(fields, arrow.Field{Name: f.Name, Type: f.Type, Nullable: true, Metadata: md})
	}
	md := arrow.NewMetadata([]string{"entry_type"}, []string{e.name})
	return arrow.NewSchema(fields, &md)
}

// StorageSchema returns the storage-facing schema: one Arrow field per distinct
// storage alias, in declaration order. Used by stores to create their tables.
func (e *EntryType) StorageSchema() *arrow.Schema {
	seen := make(map[string]bool, len(e.fields))
	fields := make([]arrow.Field, 0, len(e.fields))
	for _, f := range e.fields {
		storage := f.StorageName()
		if seen[storage] {
			continue
		}
		seen[storage] = true
		md := arrow.NewMetadata([]string{MetadataLogicalName}, []string{f.Name})
		fields = append(fields, arrow.Field{Name: storage, Type: f.Type, Nullable: true, Metadata: md})
	}
	md := arrow.NewMetadata([]string{"entry_type"}, []string{e.name})
	return arrow.NewSchema(fields, &md)
}
