package predicate

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hugr-lab/optimade-go/catalog"
	"github.com/hugr-lab/optimade-go/filter"
)

// Resolver looks up catalogue fields by logical name.
// *catalog.EntryType implements it.
type Resolver interface {
	Field(name string) (catalog.Field, bool)
}

// Transformer rewrites filter ASTs into predicates with storage aliases applied.
//
// Unknown properties never fail: IS UNKNOWN on them matches everything and any
// other predicate on them matches nothing. A comparison whose constant cannot
// match the field type (a string against an integer field) also matches nothing.
//
// A Transformer is immutable and safe for concurrent use.
type Transformer struct {
	resolver Resolver
}

// NewTransformer creates a transformer resolving properties through r.
func NewTransformer(r Resolver) *Transformer {
	return &Transformer{resolver: r}
}

// Transform converts the AST rooted at n. A nil root yields True.
//
// Errors are *TranslationError for unsupported shapes and
// *UnresolvedPropertyError for sub-property access on non-nested fields.
func (t *Transformer) Transform(n filter.Node) (Predicate, error) {
	if n == nil {
		return True, nil
	}
	return t.transform(n)
}

func (t *Transformer) transform(n filter.Node) (Predicate, error) {
	switch n := n.(type) {
	case *filter.Logical:
		children := make([]Predicate, 0, len(n.Children))
		for _, c := range n.Children {
			p, err := t.transform(c)
			if err != nil {
				return nil, err
			}
			children = append(children, p)
		}
		if n.Op == filter.LogicalAnd {
			return &And{Children: children}, nil
		}
		return &Or{Children: children}, nil

	case *filter.Not:
		child, err := t.transform(n.Child)
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil

	case *filter.Comparison:
		return t.comparison(n)
	case *filter.SetPredicate:
		return t.setPredicate(n)
	case *filter.KnownPredicate:
		return t.known(n)
	case *filter.Length:
		return t.length(n)
	case *filter.ZipPredicate:
		return nil, translationError(n, "zipped property predicates are not supported")
	}
	return nil, &TranslationError{Expr: fmt.Sprintf("%T", n), Reason: "unknown node type"}
}

func translationError(n filter.Node, format string, args ...any) *TranslationError {
	return &TranslationError{Expr: filter.Format(n), Reason: fmt.Sprintf(format, args...)}
}

// target is a resolved property path.
type target struct {
	field string
	// list is set when the path evaluates to a list, either because the field
	// is a list or because the path descends through a list of structs.
	list bool
	// elem is the type of the value (scalar) or of the list elements (list).
	elem arrow.DataType
}

// resolve returns the storage path of a property.
// A nil target with a nil error means the property is unknown.
func (t *Transformer) resolve(path filter.PropertyPath) (*target, error) {
	f, ok := t.resolver.Field(path.Head())
	if !ok {
		return nil, nil
	}

	if len(path) == 1 {
		return newTarget(f.StorageName(), f.Type, false), nil
	}

	if !f.IsNested() {
		return nil, &UnresolvedPropertyError{
			Path:   path.String(),
			Reason: fmt.Sprintf("property %s has no sub-properties", f.Name),
		}
	}

	dt, throughList, ok := subType(f.Type, path[1:])
	if !ok {
		return nil, nil
	}
	field := f.StorageName() + "." + strings.Join(path[1:], ".")
	return newTarget(field, dt, throughList), nil
}

func newTarget(field string, dt arrow.DataType, throughList bool) *target {
	if elem, ok := listElem(dt); ok {
		return &target{field: field, list: true, elem: elem}
	}
	return &target{field: field, list: throughList, elem: dt}
}

// subType descends into struct fields, stepping through lists of structs.
func subType(dt arrow.DataType, segs []string) (arrow.DataType, bool, bool) {
	throughList := false
	for _, seg := range segs {
		if elem, ok := listElem(dt); ok {
			throughList = true
			dt = elem
		}
		st, ok := dt.(*arrow.StructType)
		if !ok {
			return nil, false, false
		}
		f, ok := st.FieldByName(seg)
		if !ok {
			return nil, false, false
		}
		dt = f.Type
	}
	return dt, throughList, true
}

func listElem(dt arrow.DataType) (arrow.DataType, bool) {
	switch t := dt.(type) {
	case *arrow.ListType:
		return t.Elem(), true
	case *arrow.LargeListType:
		return t.Elem(), true
	case *arrow.FixedSizeListType:
		return t.Elem(), true
	}
	return nil, false
}

// literal converts v to the value compared against fields of type dt.
// Timestamp literals become UTC time.Time values. The second result is false
// when v can never compare equal or ordered to such fields.
func literal(dt arrow.DataType, v filter.Value) (any, bool) {
	switch catalog.TypeName(dt) {
	case "string":
		return v.Str, v.Kind == filter.ValueString
	case "timestamp":
		if v.Kind != filter.ValueString {
			return nil, false
		}
		t, ok := ParseTime(v.Str)
		if !ok {
			return nil, false
		}
		return t.UTC(), true
	case "integer", "float":
		return v.Literal(), v.IsNumber()
	}
	return nil, false
}

func toOp(op filter.Operator) (Op, bool) {
	switch op {
	case filter.OpEqual:
		return Eq, true
	case filter.OpNotEqual:
		return Ne, true
	case filter.OpLess:
		return Lt, true
	case filter.OpLessEqual:
		return Le, true
	case filter.OpGreater:
		return Gt, true
	case filter.OpGreaterEqual:
		return Ge, true
	}
	return "", false
}

func (t *Transformer) comparison(n *filter.Comparison) (Predicate, error) {
	if n.Value.Kind == filter.ValueProperty {
		return nil, translationError(n, "comparisons between two properties are not supported")
	}
	if n.Op.IsFuzzy() && n.Value.Kind != filter.ValueString {
		return nil, translationError(n, "%s requires a string value", n.Op)
	}

	tgt, err := t.resolve(n.Property)
	if err != nil {
		return nil, err
	}
	if tgt == nil {
		return False, nil
	}
	if tgt.list {
		return nil, translationError(n, "%s is a list property, use HAS to test its elements", n.Property)
	}
	if n.Op.IsFuzzy() {
		// substring matching applies to string fields only
		if catalog.TypeName(tgt.elem) != "string" {
			return False, nil
		}
		switch n.Op {
		case filter.OpContains:
			return &StringMatch{Field: tgt.field, Kind: MatchContains, Value: n.Value.Str}, nil
		case filter.OpStartsWith:
			return &StringMatch{Field: tgt.field, Kind: MatchPrefix, Value: n.Value.Str}, nil
		default:
			return &StringMatch{Field: tgt.field, Kind: MatchSuffix, Value: n.Value.Str}, nil
		}
	}

	value, ok := literal(tgt.elem, n.Value)
	if !ok {
		return False, nil
	}
	op, ok := toOp(n.Op)
	if !ok {
		return nil, translationError(n, "unknown operator %s", n.Op)
	}
	return &Compare{Field: tgt.field, Op: op, Value: value}, nil
}

func (t *Transformer) setPredicate(n *filter.SetPredicate) (Predicate, error) {
	for _, item := range n.Values {
		if item.Value.Kind == filter.ValueProperty {
			return nil, translationError(n, "property references are not supported in %s", n.Kind)
		}
		if n.Kind == filter.SetHasOnly && item.Op != filter.OpEqual {
			return nil, translationError(n, "HAS ONLY supports only equality items")
		}
	}

	tgt, err := t.resolve(n.Property)
	if err != nil {
		return nil, err
	}
	if tgt == nil {
		return False, nil
	}
	if !tgt.list {
		return nil, translationError(n, "%s requires a list property", n.Kind)
	}

	if len(n.Values) == 0 {
		return False, nil
	}

	if n.Kind == filter.SetHasOnly {
		values := make([]any, 0, len(n.Values))
		for _, item := range n.Values {
			if v, ok := literal(tgt.elem, item.Value); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return False, nil
		}
		return &Only{Field: tgt.field, Values: values}, nil
	}

	parts := make([]Predicate, 0, len(n.Values))
	for _, item := range n.Values {
		op, ok := toOp(item.Op)
		if !ok {
			return nil, translationError(n, "unknown operator %s", item.Op)
		}
		v, ok := literal(tgt.elem, item.Value)
		if !ok {
			parts = append(parts, False)
			continue
		}
		parts = append(parts, &Contains{Field: tgt.field, Op: op, Value: v})
	}

	switch {
	case len(parts) == 1:
		return parts[0], nil
	case n.Kind == filter.SetHasAny:
		return &Or{Children: parts}, nil
	default:
		return &And{Children: parts}, nil
	}
}

func (t *Transformer) known(n *filter.KnownPredicate) (Predicate, error) {
	tgt, err := t.resolve(n.Property)
	if err != nil {
		return nil, err
	}
	if tgt == nil {
		if n.Known {
			return False, nil
		}
		return True, nil
	}
	return &Exists{Field: tgt.field, Exists: n.Known}, nil
}

func (t *Transformer) length(n *filter.Length) (Predicate, error) {
	if n.Value.Kind != filter.ValueInt || n.Value.Int < 0 {
		return nil, translationError(n, "LENGTH requires a non-negative integer")
	}
	op, ok := toOp(n.Op)
	if !ok {
		return nil, translationError(n, "unknown operator %s", n.Op)
	}

	tgt, err := t.resolve(n.Property)
	if err != nil {
		return nil, err
	}
	if tgt == nil {
		return False, nil
	}
	if !tgt.list {
		return nil, translationError(n, "LENGTH requires a list property")
	}
	return &Size{Field: tgt.field, Op: op, N: n.Value.Int}, nil
}
