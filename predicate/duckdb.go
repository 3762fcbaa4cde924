package predicate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
)

// DuckDBEncoder encodes predicates to DuckDB SQL syntax.
//
// List predicates use list functions (list_contains, list_has_all, len) and
// list comprehensions. Fields that descend through a list of structs become
// comprehensions over the struct elements, so "species.name" lowers to
// [struct_extract(_e, 'name') FOR _e IN species IF ...].
//
// A DuckDBEncoder is safe for concurrent use.
type DuckDBEncoder struct {
	opts  *EncoderOptions
	types map[string]arrow.DataType
}

// NewDuckDBEncoder creates a new DuckDB SQL encoder.
// If opts is nil, default options are used.
func NewDuckDBEncoder(opts *EncoderOptions) *DuckDBEncoder {
	if opts == nil {
		opts = &EncoderOptions{}
	}
	e := &DuckDBEncoder{opts: opts, types: make(map[string]arrow.DataType)}
	if opts.Schema != nil {
		for _, f := range opts.Schema.Fields() {
			e.types[f.Name] = f.Type
		}
	}
	return e
}

// Encode converts a predicate to a WHERE clause body.
func (e *DuckDBEncoder) Encode(p Predicate) (string, error) {
	switch p := p.(type) {
	case nil:
		return "TRUE", nil
	case *Const:
		if p.Value {
			return "TRUE", nil
		}
		return "FALSE", nil
	case *And:
		return e.encodeConjunction(p.Children, "AND", "TRUE")
	case *Or:
		return e.encodeConjunction(p.Children, "OR", "FALSE")
	case *Not:
		inner, err := e.Encode(p.Child)
		if err != nil {
			return "", err
		}
		// NULL (missing field) must negate to TRUE
		return "NOT COALESCE(" + inner + ", FALSE)", nil
	case *Compare:
		return e.encodeCompare(p)
	case *StringMatch:
		return e.encodeStringMatch(p)
	case *Contains:
		return e.encodeContains(p)
	case *Only:
		return e.encodeOnly(p)
	case *Exists:
		return e.encodeExists(p)
	case *Size:
		return e.encodeSize(p)
	}
	return "", &UnsupportedError{Predicate: fmt.Sprintf("%T", p), Reason: "unknown predicate type"}
}

func (e *DuckDBEncoder) encodeConjunction(children []Predicate, op, empty string) (string, error) {
	if len(children) == 0 {
		return empty, nil
	}

	parts := make([]string, 0, len(children))
	for _, c := range children {
		s, err := e.Encode(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, ") "+op+" (") + ")", nil
}

// sqlTarget is a field lowered to a SQL expression.
type sqlTarget struct {
	expr string
	list bool
	// derived lists are built from a list of structs and skip NULL sub-fields.
	derived bool
}

// column returns the SQL expression of a top-level storage name.
func (e *DuckDBEncoder) column(name string) string {
	if expr, ok := e.opts.ColumnExpressions[name]; ok {
		return expr
	}
	if mapped, ok := e.opts.ColumnMapping[name]; ok {
		return QuoteIdentifier(mapped)
	}
	return QuoteIdentifier(name)
}

func (e *DuckDBEncoder) target(field string) (*sqlTarget, error) {
	segs := strings.Split(field, ".")
	expr := e.column(segs[0])
	dt := e.types[segs[0]]

	inList := false
	source := ""
	for _, seg := range segs[1:] {
		if dt != nil {
			if elem, ok := listElem(dt); ok {
				if inList {
					return nil, &UnsupportedError{Predicate: field, Reason: "nested lists are not supported"}
				}
				inList = true
				source = expr
				expr = "_e"
				dt = elem
			}
		}
		expr = "struct_extract(" + expr + ", " + quoteLiteral(seg) + ")"
		if dt != nil {
			st, ok := dt.(*arrow.StructType)
			if !ok {
				return nil, &UnsupportedError{Predicate: field, Reason: "not a struct"}
			}
			f, ok := st.FieldByName(seg)
			if !ok {
				return nil, &UnsupportedError{Predicate: field, Reason: "unknown sub-field " + seg}
			}
			dt = f.Type
		}
	}

	_, isList := listElem(dt)
	if inList {
		if isList {
			return nil, &UnsupportedError{Predicate: field, Reason: "nested lists are not supported"}
		}
		return &sqlTarget{
			expr:    "[" + expr + " FOR _e IN " + source + " IF " + expr + " IS NOT NULL]",
			list:    true,
			derived: true,
		}, nil
	}
	return &sqlTarget{expr: expr, list: isList}, nil
}

func sqlOp(op Op) (string, error) {
	switch op {
	case Eq:
		return "=", nil
	case Ne:
		return "<>", nil
	case Lt, Le, Gt, Ge:
		return string(op), nil
	}
	return "", &UnsupportedError{Predicate: string(op), Reason: "unknown operator"}
}

func sqlLiteral(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return quoteLiteral(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", &UnsupportedError{Predicate: fmt.Sprint(v), Reason: "non-finite number"}
		}
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case time.Time:
		return "TIMESTAMP " + quoteLiteral(v.UTC().Format("2006-01-02 15:04:05.999999")), nil
	}
	return "", &UnsupportedError{Predicate: fmt.Sprintf("%v", v), Reason: fmt.Sprintf("unsupported literal type %T", v)}
}

func (e *DuckDBEncoder) scalar(field string) (string, error) {
	t, err := e.target(field)
	if err != nil {
		return "", err
	}
	if t.list {
		return "", &UnsupportedError{Predicate: field, Reason: "list field used as scalar"}
	}
	return t.expr, nil
}

func (e *DuckDBEncoder) list(field string) (*sqlTarget, error) {
	t, err := e.target(field)
	if err != nil {
		return nil, err
	}
	if !t.list {
		return nil, &UnsupportedError{Predicate: field, Reason: "scalar field used as list"}
	}
	return t, nil
}

func (e *DuckDBEncoder) encodeCompare(p *Compare) (string, error) {
	col, err := e.scalar(p.Field)
	if err != nil {
		return "", err
	}
	op, err := sqlOp(p.Op)
	if err != nil {
		return "", err
	}
	lit, err := sqlLiteral(p.Value)
	if err != nil {
		return "", err
	}
	return col + " " + op + " " + lit, nil
}

func (e *DuckDBEncoder) encodeStringMatch(p *StringMatch) (string, error) {
	col, err := e.scalar(p.Field)
	if err != nil {
		return "", err
	}
	lit := quoteLiteral(p.Value)
	switch p.Kind {
	case MatchContains:
		return "contains(" + col + ", " + lit + ")", nil
	case MatchPrefix:
		return "prefix(" + col + ", " + lit + ")", nil
	case MatchSuffix:
		return "suffix(" + col + ", " + lit + ")", nil
	}
	return "", &UnsupportedError{Predicate: string(p.Kind), Reason: "unknown match kind"}
}

func (e *DuckDBEncoder) encodeContains(p *Contains) (string, error) {
	t, err := e.list(p.Field)
	if err != nil {
		return "", err
	}
	lit, err := sqlLiteral(p.Value)
	if err != nil {
		return "", err
	}
	if p.Op == Eq {
		return "list_contains(" + t.expr + ", " + lit + ")", nil
	}
	op, err := sqlOp(p.Op)
	if err != nil {
		return "", err
	}
	return "len([_v FOR _v IN " + t.expr + " IF _v " + op + " " + lit + "]) > 0", nil
}

func (e *DuckDBEncoder) encodeOnly(p *Only) (string, error) {
	if len(p.Values) == 0 {
		return "FALSE", nil
	}
	t, err := e.list(p.Field)
	if err != nil {
		return "", err
	}
	lits := make([]string, 0, len(p.Values))
	for _, v := range p.Values {
		lit, err := sqlLiteral(v)
		if err != nil {
			return "", err
		}
		lits = append(lits, lit)
	}
	return "(len(" + t.expr + ") > 0 AND list_has_all([" + strings.Join(lits, ", ") + "], " + t.expr + "))", nil
}

func (e *DuckDBEncoder) encodeExists(p *Exists) (string, error) {
	t, err := e.target(p.Field)
	if err != nil {
		return "", err
	}
	if t.derived {
		if p.Exists {
			return "COALESCE(len(" + t.expr + "), 0) > 0", nil
		}
		return "COALESCE(len(" + t.expr + "), 0) = 0", nil
	}
	if p.Exists {
		return t.expr + " IS NOT NULL", nil
	}
	return t.expr + " IS NULL", nil
}

func (e *DuckDBEncoder) encodeSize(p *Size) (string, error) {
	t, err := e.list(p.Field)
	if err != nil {
		return "", err
	}
	op, err := sqlOp(p.Op)
	if err != nil {
		return "", err
	}
	return "len(" + t.expr + ") " + op + " " + strconv.FormatInt(p.N, 10), nil
}
