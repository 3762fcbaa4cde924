package collection

import (
	"strings"
)

// ListingParams are the query parameters of an entry listing request.
type ListingParams struct {
	// Filter is the filter expression. Empty matches every entry.
	Filter string

	// PageLimit is the requested page size. Zero selects the configured default.
	PageLimit int

	// PageOffset skips the first matches.
	PageOffset int

	// Sort is a comma-separated list of property names, "-" prefixed for descending order.
	Sort string

	// ResponseFields is a comma-separated list of properties to return.
	// Empty returns every property; id and type are always returned.
	ResponseFields string

	// ResponseFormat must be empty or "json".
	ResponseFormat string

	// GrammarVersion selects the filter grammar. Empty selects the collection default.
	GrammarVersion string
}

// SingleEntryParams are the query parameters of a single-entry request.
type SingleEntryParams struct {
	ResponseFields string
	ResponseFormat string
}

// SortKey is one parsed element of the sort parameter.
type SortKey struct {
	Field      string
	Descending bool
}

// ParseSort parses the sort mini-syntax, e.g. "-nelements,id".
func ParseSort(s string) ([]SortKey, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	keys := make([]SortKey, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		key := SortKey{Field: part}
		if strings.HasPrefix(part, "-") {
			key.Field = strings.TrimSpace(part[1:])
			key.Descending = true
		}
		if key.Field == "" {
			return nil, &ParameterError{Name: "sort", Reason: "empty field name in " + quote(s)}
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ParseFields splits a comma-separated field list, dropping blanks and duplicates.
func ParseFields(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func checkFormat(format string) error {
	if format != "" && format != "json" {
		return &ResponseFormatError{Format: format}
	}
	return nil
}

func quote(s string) string { return `"` + s + `"` }
