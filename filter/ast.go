package filter

import "strings"

// Node is the interface implemented by all AST node types.
// Use a type switch to access specific node data.
type Node interface {
	// Pos returns the byte offset of the node in the filter string.
	Pos() int

	// nodeMarker is a marker method to prevent external implementation.
	nodeMarker()
}

// PropertyPath is a dotted property reference split into its segments.
type PropertyPath []string

// String returns the dotted form of the path.
func (p PropertyPath) String() string { return strings.Join(p, ".") }

// Head returns the first segment.
func (p PropertyPath) Head() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Operator is a comparison operator of the filter language.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpContains     Operator = "CONTAINS"
	OpStartsWith   Operator = "STARTS WITH"
	OpEndsWith     Operator = "ENDS WITH"
)

// Flip returns the operator with its operands swapped (a < b is b > a).
func (op Operator) Flip() Operator {
	switch op {
	case OpLess:
		return OpGreater
	case OpLessEqual:
		return OpGreaterEqual
	case OpGreater:
		return OpLess
	case OpGreaterEqual:
		return OpLessEqual
	default:
		return op
	}
}

// IsFuzzy reports whether op is a string matching operator.
func (op Operator) IsFuzzy() bool {
	return op == OpContains || op == OpStartsWith || op == OpEndsWith
}

// ValueKind identifies the type of a Value.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInt
	ValueFloat
	ValueProperty
)

// Value is the right-hand side of a comparison.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int64
	Float float64
	Path  PropertyPath
}

// StringValue creates a string value.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// IntValue creates an integer value.
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// FloatValue creates a floating point value.
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// PropertyValue creates a property reference value.
func PropertyValue(path ...string) Value { return Value{Kind: ValueProperty, Path: path} }

// Literal returns the Go value of a constant: string, int64 or float64.
// Returns nil for property references.
func (v Value) Literal() any {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueInt:
		return v.Int
	case ValueFloat:
		return v.Float
	default:
		return nil
	}
}

// IsNumber reports whether the value is an integer or float constant.
func (v Value) IsNumber() bool { return v.Kind == ValueInt || v.Kind == ValueFloat }

// SetKind identifies the HAS family of array predicates.
type SetKind string

const (
	SetHas     SetKind = "HAS"
	SetHasAll  SetKind = "HAS ALL"
	SetHasAny  SetKind = "HAS ANY"
	SetHasOnly SetKind = "HAS ONLY"
)

// SetItem is one element of a HAS right-hand side. Op defaults to "=".
type SetItem struct {
	Op    Operator
	Value Value
}

// LogicalOp is a boolean connective.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "AND"
	LogicalOr  LogicalOp = "OR"
)

// Comparison represents property OP value, including the fuzzy string operators.
type Comparison struct {
	Offset   int
	Property PropertyPath
	Op       Operator
	Value    Value
}

// SetPredicate represents property HAS [ALL|ANY|ONLY] values.
// Values may be empty for the list forms.
type SetPredicate struct {
	Offset   int
	Property PropertyPath
	Kind     SetKind
	Values   []SetItem
}

// ZipPredicate represents p1:p2:... HAS [ALL|ANY|ONLY] v1:v2:..., ...
// Each tuple in Tuples has one item per property.
type ZipPredicate struct {
	Offset     int
	Properties []PropertyPath
	Kind       SetKind
	Tuples     [][]SetItem
}

// KnownPredicate represents property IS KNOWN / IS UNKNOWN.
type KnownPredicate struct {
	Offset   int
	Property PropertyPath
	Known    bool
}

// Length represents property LENGTH [op] value.
type Length struct {
	Offset   int
	Property PropertyPath
	Op       Operator
	Value    Value
}

// Logical represents AND/OR with two or more children.
type Logical struct {
	Offset   int
	Op       LogicalOp
	Children []Node
}

// Not represents NOT child.
type Not struct {
	Offset int
	Child  Node
}

func (n *Comparison) Pos() int     { return n.Offset }
func (n *SetPredicate) Pos() int   { return n.Offset }
func (n *ZipPredicate) Pos() int   { return n.Offset }
func (n *KnownPredicate) Pos() int { return n.Offset }
func (n *Length) Pos() int         { return n.Offset }
func (n *Logical) Pos() int        { return n.Offset }
func (n *Not) Pos() int            { return n.Offset }

func (*Comparison) nodeMarker()     {}
func (*SetPredicate) nodeMarker()   {}
func (*ZipPredicate) nodeMarker()   {}
func (*KnownPredicate) nodeMarker() {}
func (*Length) nodeMarker()         {}
func (*Logical) nodeMarker()        {}
func (*Not) nodeMarker()            {}

// Walk calls fn for n and every descendant in depth-first order.
// Descent stops at a node for which fn returns false.
func Walk(n Node, fn func(Node) bool) {
	stack := []Node{n}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil || !fn(n) {
			continue
		}
		switch n := n.(type) {
		case *Logical:
			for i := len(n.Children) - 1; i >= 0; i-- {
				stack = append(stack, n.Children[i])
			}
		case *Not:
			stack = append(stack, n.Child)
		}
	}
}

// CountNodes returns the number of nodes in the tree rooted at n.
func CountNodes(n Node) int {
	count := 0
	Walk(n, func(Node) bool {
		count++
		return true
	})
	return count
}
