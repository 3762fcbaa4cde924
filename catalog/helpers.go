package catalog

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// ProjectSchema returns a projected schema containing only the specified columns.
// If columns is nil or empty, returns the full schema unchanged.
// Column order in the returned schema matches the order in columns slice.
// Original schema metadata is preserved in the projected schema.
func ProjectSchema(schema *arrow.Schema, columns []string) *arrow.Schema {
	if len(columns) == 0 {
		return schema
	}

	colIndex := make(map[string]int, schema.NumFields())
	for i := 0; i < schema.NumFields(); i++ {
		colIndex[schema.Field(i).Name] = i
	}

	fields := make([]arrow.Field, 0, len(columns))
	for _, col := range columns {
		if idx, ok := colIndex[col]; ok {
			fields = append(fields, schema.Field(idx))
		}
	}

	meta := schema.Metadata()
	return arrow.NewSchema(fields, &meta)
}

// TypeName returns the OPTIMADE type name of an Arrow data type
// as reported by the entry info endpoint.
//
// Lists map to "list", structs to "dictionary", timestamps to "timestamp".
func TypeName(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return "string"
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return "integer"
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64, arrow.DECIMAL128, arrow.DECIMAL256:
		return "float"
	case arrow.BOOL:
		return "boolean"
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return "timestamp"
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		return "list"
	case arrow.STRUCT, arrow.MAP:
		return "dictionary"
	default:
		return "unknown"
	}
}
