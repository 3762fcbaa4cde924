// Package filter implements the lexer and parser of the OPTIMADE filter language.
//
// A filter string such as
//
//	elements HAS ALL "Al","O" AND nelements <= 3 AND NOT _exmpl_band_gap IS UNKNOWN
//
// is parsed into a tree of Node values: Comparison, SetPredicate, ZipPredicate,
// KnownPredicate, Length, Logical and Not. The tree is immutable after parsing and
// references properties by their API-facing names; package predicate resolves them
// against the field catalogue.
//
// # Basic Usage
//
//	root, err := filter.Parse(`nelements > 3 AND chemical_formula_reduced = "Al2O3"`)
//	if err != nil {
//	    var se *filter.SyntaxError
//	    if errors.As(err, &se) {
//	        // se.Offset points at the offending token
//	    }
//	    return err
//	}
//
// An empty filter parses to a nil Node, meaning no constraint.
//
// # Grammar Versions
//
// The accepted language depends on the protocol revision. Select one explicitly:
//
//	p, err := filter.NewParser("0.9.7", "default")
//	if errors.Is(err, filter.ErrUnknownGrammar) {
//	    // unsupported version
//	}
//	root, err := p.Parse(src)
//
// Grammar 0.10.0 (the default) supports LENGTH, zipped properties and bracketed
// list literals; 0.9.7 rejects all three.
//
// # Precedence
//
// NOT binds tighter than comparisons, comparisons tighter than AND, and AND
// tighter than OR. Chains of the same connective are flattened into one Logical
// node. Parentheses nest without a depth limit.
package filter
