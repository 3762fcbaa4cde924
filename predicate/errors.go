package predicate

import "fmt"

// UnresolvedPropertyError indicates a property path that cannot be resolved even
// under lenient unknown-property semantics, such as a sub-property of a scalar field.
type UnresolvedPropertyError struct {
	Path   string
	Reason string
}

func (e *UnresolvedPropertyError) Error() string {
	return fmt.Sprintf("unresolved property %s: %s", e.Path, e.Reason)
}

// TranslationError indicates a well-formed filter that cannot be lowered to a predicate.
type TranslationError struct {
	// Expr is the failing sub-expression rendered as filter text.
	Expr string
	// Reason explains why the expression is not supported.
	Reason string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("cannot translate %q: %s", e.Expr, e.Reason)
}

// UnsupportedError is returned by an encoder for a predicate shape the
// backend cannot express.
type UnsupportedError struct {
	Predicate string
	Reason    string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported predicate %s: %s", e.Predicate, e.Reason)
}
