package collection

import (
	"fmt"

	"github.com/hugr-lab/optimade-go/catalog"
	"github.com/hugr-lab/optimade-go/store"
)

// EntryResource is a stored document mapped back to logical names.
type EntryResource struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes"`
}

// ResourceMapper converts between logical property names and storage documents
// for one entry type.
type ResourceMapper struct {
	entry *catalog.EntryType
}

// NewResourceMapper creates a mapper over the fields of e.
func NewResourceMapper(e *catalog.EntryType) *ResourceMapper {
	return &ResourceMapper{entry: e}
}

// AliasFor returns the storage name of a logical property.
func (m *ResourceMapper) AliasFor(name string) string {
	return m.entry.AliasFor(name)
}

// MapBack builds the resource of a storage document. Only the logical names in
// fields become attributes; requested properties missing from doc map to nil.
func (m *ResourceMapper) MapBack(doc store.Document, fields []string) EntryResource {
	r := EntryResource{
		ID:         stringValue(doc[m.AliasFor("id")]),
		Type:       stringValue(doc[m.AliasFor("type")]),
		Attributes: make(map[string]any, len(fields)),
	}
	if r.Type == "" {
		r.Type = m.entry.Name()
	}
	for _, name := range fields {
		if name == "id" || name == "type" {
			continue
		}
		r.Attributes[name] = doc[m.AliasFor(name)]
	}
	return r
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
