package predicate

// Predicate is the interface implemented by all predicate node types.
// Use a type switch to access specific node data.
type Predicate interface {
	// predicateMarker is a marker method to prevent external implementation.
	predicateMarker()
}

// Op is a comparison operator.
type Op string

const (
	Eq Op = "="
	Ne Op = "!="
	Lt Op = "<"
	Le Op = "<="
	Gt Op = ">"
	Ge Op = ">="
)

// MatchKind selects the string matching mode of a StringMatch predicate.
type MatchKind string

const (
	MatchContains MatchKind = "contains"
	MatchPrefix   MatchKind = "prefix"
	MatchSuffix   MatchKind = "suffix"
)

// And matches when every child matches. An empty And matches everything.
type And struct {
	Children []Predicate
}

// Or matches when at least one child matches. An empty Or matches nothing.
type Or struct {
	Children []Predicate
}

// Not inverts its child. A missing property makes the child false, so the
// negation is true.
type Not struct {
	Child Predicate
}

// Compare matches a scalar field against a constant.
// Documents without the field never match, for any operator.
type Compare struct {
	Field string
	Op    Op
	Value any // string, int64, float64 or time.Time
}

// StringMatch matches a string field by substring, prefix or suffix.
type StringMatch struct {
	Field string
	Kind  MatchKind
	Value string
}

// Contains matches a list field having at least one element e with e Op Value.
type Contains struct {
	Field string
	Op    Op
	Value any
}

// Only matches a non-empty list field whose elements are all among Values.
type Only struct {
	Field  string
	Values []any
}

// Exists matches documents where the field is present (Exists) or absent (!Exists).
type Exists struct {
	Field  string
	Exists bool
}

// Size compares the number of elements of a list field with N.
type Size struct {
	Field string
	Op    Op
	N     int64
}

// Const matches everything (true) or nothing (false).
type Const struct {
	Value bool
}

func (*And) predicateMarker()         {}
func (*Or) predicateMarker()          {}
func (*Not) predicateMarker()         {}
func (*Compare) predicateMarker()     {}
func (*StringMatch) predicateMarker() {}
func (*Contains) predicateMarker()    {}
func (*Only) predicateMarker()        {}
func (*Exists) predicateMarker()      {}
func (*Size) predicateMarker()        {}
func (*Const) predicateMarker()       {}

// True and False are shared constant predicates.
var (
	True  Predicate = &Const{Value: true}
	False Predicate = &Const{Value: false}
)

// CountNodes returns the number of nodes in the tree rooted at p.
func CountNodes(p Predicate) int {
	switch p := p.(type) {
	case nil:
		return 0
	case *And:
		n := 1
		for _, c := range p.Children {
			n += CountNodes(c)
		}
		return n
	case *Or:
		n := 1
		for _, c := range p.Children {
			n += CountNodes(c)
		}
		return n
	case *Not:
		return 1 + CountNodes(p.Child)
	default:
		return 1
	}
}

// Fields returns the distinct storage fields referenced by p, in order of appearance.
func Fields(p Predicate) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	var walk func(Predicate)
	walk = func(p Predicate) {
		switch p := p.(type) {
		case *And:
			for _, c := range p.Children {
				walk(c)
			}
		case *Or:
			for _, c := range p.Children {
				walk(c)
			}
		case *Not:
			walk(p.Child)
		case *Compare:
			add(p.Field)
		case *StringMatch:
			add(p.Field)
		case *Contains:
			add(p.Field)
		case *Only:
			add(p.Field)
		case *Exists:
			add(p.Field)
		case *Size:
			add(p.Field)
		}
	}
	walk(p)
	return out
}
