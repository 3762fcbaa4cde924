package filter

import (
	"fmt"
	"sort"
)

// Default grammar selection.
const (
	DefaultVersion = "0.10.0"
	DefaultVariant = "default"
)

// Grammar describes the language features of one protocol revision.
type Grammar struct {
	Version string
	Variant string

	// Length enables the LENGTH operator.
	Length bool
	// Zip enables p1:p2 HAS v1:v2 predicates.
	Zip bool
	// BracketLists enables [v1, v2] list literals after HAS ALL/ANY/ONLY.
	BracketLists bool
}

// Key returns the registry key "version/variant".
func (g Grammar) Key() string { return g.Version + "/" + g.Variant }

var grammars = map[string]Grammar{
	"0.10.0/default": {
		Version:      "0.10.0",
		Variant:      DefaultVariant,
		Length:       true,
		Zip:          true,
		BracketLists: true,
	},
	"0.9.7/default": {
		Version: "0.9.7",
		Variant: DefaultVariant,
	},
}

// LookupGrammar returns the grammar registered for version and variant.
// Empty values select DefaultVersion and DefaultVariant.
func LookupGrammar(version, variant string) (Grammar, error) {
	if version == "" {
		version = DefaultVersion
	}
	if variant == "" {
		variant = DefaultVariant
	}
	g, ok := grammars[version+"/"+variant]
	if !ok {
		return Grammar{}, fmt.Errorf("%w: %s/%s", ErrUnknownGrammar, version, variant)
	}
	return g, nil
}

// Versions returns the registered grammar keys in sorted order.
func Versions() []string {
	out := make([]string, 0, len(grammars))
	for k := range grammars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
