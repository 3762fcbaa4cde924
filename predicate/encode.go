package predicate

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Encoder lowers predicates into a backend query language.
// Implementations handle dialect-specific syntax.
type Encoder interface {
	// Encode converts a predicate to a WHERE clause body without the "WHERE" keyword.
	// Returns an *UnsupportedError for shapes the backend cannot express.
	Encode(p Predicate) (string, error)
}

// EncoderOptions configures encoding behavior.
type EncoderOptions struct {
	// ColumnMapping maps top-level storage names to target column names.
	// Columns not in the map use their original names.
	ColumnMapping map[string]string

	// ColumnExpressions maps top-level storage names to SQL expressions.
	// Takes precedence over ColumnMapping.
	ColumnExpressions map[string]string

	// Schema is the storage schema of the table. It tells list columns and
	// lists of structs apart from structs when lowering dotted fields.
	// Without it every dotted field is treated as struct access.
	Schema *arrow.Schema
}

// escapeString escapes single quotes in a string value for SQL.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// quoteLiteral returns a SQL string literal with proper escaping.
func quoteLiteral(s string) string {
	return "'" + escapeString(s) + "'"
}

// QuoteIdentifier returns a quoted identifier if needed.
// DuckDB uses double quotes for identifiers.
func QuoteIdentifier(name string) string {
	if needsQuoting(name) {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}

// needsQuoting returns true if the identifier needs quoting.
func needsQuoting(name string) bool {
	if len(name) == 0 {
		return true
	}

	c := name[0]
	if !isLetter(c) && c != '_' {
		return true
	}
	for i := 1; i < len(name); i++ {
		c = name[i]
		if !isLetter(c) && !isDigit(c) && c != '_' {
			return true
		}
	}

	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "TRUE", "FALSE",
		"CREATE", "TABLE", "JOIN", "ON", "AS", "IN", "IS", "LIKE", "BETWEEN",
		"EXISTS", "CASE", "WHEN", "THEN", "ELSE", "END", "ORDER", "BY", "GROUP",
		"HAVING", "LIMIT", "OFFSET", "UNION", "ALL", "ANY", "DISTINCT", "VALUES",
		"SET", "INTO", "PRIMARY", "KEY", "REFERENCES", "DEFAULT", "CHECK",
		"UNIQUE", "ASC", "DESC", "NULLS", "FIRST", "LAST", "CAST", "INTERVAL",
		"DATE", "TIME", "TIMESTAMP", "TYPE", "FOR", "LAMBDA":
		return true
	}
	return false
}

// isLetter returns true if c is an ASCII letter.
func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isDigit returns true if c is an ASCII digit.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
