// Package predicate defines the normalized predicate AST used to declare
// partial (filtered) indexes.
//
// The definition layer (CUE compiler or hand-built model definitions)
// produces a Lambda whose body is built from the node types in this
// package. The index builder owns only the visitor that compiles these
// trees into column-positional conditions; it does not parse source text.
//
// Expr and Value are sealed interfaces using the marker method pattern, so
// compilers can switch over them exhaustively:
//
//	switch e := expr.(type) {
//	case *Member:
//	    // field access
//	case *Compare:
//	    // binary comparison
//	default:
//	    // unsupported shape
//	}
//
// Floats are not representable. Filters compare integers, strings, booleans,
// enum members and null.
package predicate
