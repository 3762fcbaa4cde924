// Package catalog provides the field catalogue of the entry types served by an OPTIMADE server.
//
// A catalogue maps every queryable property of an entry type (structures, references, links)
// to the name it is stored under in the backing store, together with its Arrow data type
// and whether it is a provider-specific field.
//
// Catalogues are built once at startup (see optimade.NewCatalogueBuilder) and are immutable
// afterwards. All methods are safe for concurrent use without locking.
package catalog

import (
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
)

// ErrFieldNotFound is returned by Resolve when a logical name is not part of the entry type.
var ErrFieldNotFound = errors.New("field not found")

// Catalogue is the top-level container of entry types.
type Catalogue interface {
	// EntryTypes returns all entry types ordered by name.
	EntryTypes() []*EntryType

	// EntryType returns a specific entry type by its endpoint name.
	// Returns (nil, false) if the entry type doesn't exist.
	EntryType(name string) (*EntryType, bool)

	// ProviderPrefix returns the prefix (e.g. "_exmpl_") prepended to provider fields.
	ProviderPrefix() string
}

// Field describes one property of an entry type.
type Field struct {
	// Name is the API-facing (logical) property name.
	// Provider fields carry the provider prefix.
	Name string

	// Alias is the name the property is stored under.
	// Empty means the storage name equals Name.
	Alias string

	// Type is the Arrow data type of the property values.
	Type arrow.DataType

	// Description is shown by the entry info endpoint.
	Description string

	// Provider marks provider-specific (namespaced) fields.
	Provider bool

	// Sortable marks fields that may be used in the sort parameter.
	Sortable bool
}

// StorageName returns the name the field is stored under.
func (f Field) StorageName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// IsList reports whether the field holds a list of values.
func (f Field) IsList() bool {
	switch f.Type.(type) {
	case *arrow.ListType, *arrow.LargeListType, *arrow.FixedSizeListType:
		return true
	}
	return false
}

// IsNested reports whether the field supports dotted access to sub-properties,
// i.e. it is a struct or a list of structs.
func (f Field) IsNested() bool {
	return isNested(f.Type)
}

func isNested(dt arrow.DataType) bool {
	switch t := dt.(type) {
	case *arrow.StructType:
		return true
	case *arrow.ListType:
		return isNested(t.Elem())
	case *arrow.LargeListType:
		return isNested(t.Elem())
	case *arrow.FixedSizeListType:
		return isNested(t.Elem())
	}
	return false
}
