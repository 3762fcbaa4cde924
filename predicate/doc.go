// Package predicate turns parsed filters into backend-neutral query predicates.
//
// A Transformer walks a filter AST, resolves every property through the field
// catalogue and produces a closed tree of predicate nodes (And, Or, Not,
// Compare, StringMatch, Contains, Only, Exists, Size, Const) that reference
// storage names only.
//
// Predicates are evaluated in memory with Match, or lowered to SQL with a
// DuckDBEncoder:
//
//	tr := predicate.NewTransformer(entryType)
//	p, err := tr.Transform(root)
//	if err != nil {
//	    return err
//	}
//
//	enc := predicate.NewDuckDBEncoder(&predicate.EncoderOptions{
//	    Schema: entryType.StorageSchema(),
//	})
//	where, err := enc.Encode(p)
//
// # Missing Values
//
// A document lacking a field never satisfies a comparison on it, including !=.
// Negation is two-valued: NOT a = 3 matches documents without a.
//
// # Empty Lists
//
// HAS ALL [], HAS ANY [] and HAS ONLY [] match nothing.
package predicate
