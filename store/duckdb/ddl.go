package duckdb

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/optimade-go/predicate"
)

// columnType returns the DuckDB type of an Arrow data type.
func columnType(dt arrow.DataType) (string, error) {
	switch t := dt.(type) {
	case *arrow.StringType, *arrow.LargeStringType:
		return "VARCHAR", nil
	case *arrow.Int8Type:
		return "TINYINT", nil
	case *arrow.Int16Type:
		return "SMALLINT", nil
	case *arrow.Int32Type:
		return "INTEGER", nil
	case *arrow.Int64Type:
		return "BIGINT", nil
	case *arrow.Uint8Type:
		return "UTINYINT", nil
	case *arrow.Uint16Type:
		return "USMALLINT", nil
	case *arrow.Uint32Type:
		return "UINTEGER", nil
	case *arrow.Uint64Type:
		return "UBIGINT", nil
	case *arrow.Float32Type:
		return "FLOAT", nil
	case *arrow.Float64Type:
		return "DOUBLE", nil
	case *arrow.BooleanType:
		return "BOOLEAN", nil
	case *arrow.Date32Type, *arrow.Date64Type:
		return "DATE", nil
	case *arrow.TimestampType:
		if t.TimeZone != "" {
			return "TIMESTAMPTZ", nil
		}
		return "TIMESTAMP", nil
	case *arrow.ListType:
		elem, err := columnType(t.Elem())
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	case *arrow.LargeListType:
		elem, err := columnType(t.Elem())
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	case *arrow.StructType:
		parts := make([]string, 0, t.NumFields())
		for _, f := range t.Fields() {
			ft, err := columnType(f.Type)
			if err != nil {
				return "", err
			}
			parts = append(parts, predicate.QuoteIdentifier(f.Name)+" "+ft)
		}
		return "STRUCT(" + strings.Join(parts, ", ") + ")", nil
	}
	return "", fmt.Errorf("unsupported column type %s", dt)
}

// createTableSQL returns the CREATE TABLE statement of a storage schema.
func createTableSQL(table string, schema *arrow.Schema) (string, error) {
	cols := make([]string, 0, schema.NumFields())
	for _, f := range schema.Fields() {
		ct, err := columnType(f.Type)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", f.Name, err)
		}
		cols = append(cols, predicate.QuoteIdentifier(f.Name)+" "+ct)
	}
	return "CREATE TABLE IF NOT EXISTS " + predicate.QuoteIdentifier(table) +
		" (" + strings.Join(cols, ", ") + ")", nil
}

// jsonStructure returns the json_transform structure describing a storage schema.
func jsonStructure(schema *arrow.Schema) (string, error) {
	structure := make(map[string]any, schema.NumFields())
	for _, f := range schema.Fields() {
		s, err := structureOf(f.Type)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", f.Name, err)
		}
		structure[f.Name] = s
	}
	b, err := json.Marshal(structure)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func structureOf(dt arrow.DataType) (any, error) {
	switch t := dt.(type) {
	case *arrow.ListType:
		elem, err := structureOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return []any{elem}, nil
	case *arrow.LargeListType:
		elem, err := structureOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return []any{elem}, nil
	case *arrow.StructType:
		out := make(map[string]any, t.NumFields())
		for _, f := range t.Fields() {
			s, err := structureOf(f.Type)
			if err != nil {
				return nil, err
			}
			out[f.Name] = s
		}
		return out, nil
	}
	return columnType(dt)
}
