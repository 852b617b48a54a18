// Package mcore defines the typed, high-level functional core IR consumed
// by the Clam lowering pipeline. It is a pure data model: nothing in this
// package performs analysis or rewriting, so it carries no dependency on
// internal/lower.
package mcore

import "github.com/moonbitlang/moonbit-compiler/internal/clamtype"

// IdentKind classifies how an identifier was introduced, which in turn
// determines whether it participates in free-variable analysis at all.
type IdentKind int

const (
	// Local is an ordinary immutable local binding.
	Local IdentKind = iota
	// MutLocal is a local binding that may be reassigned (Assign).
	MutLocal
	// Qualified is a package-qualified reference to a global; it is never
	// free (FreeVars ignores it — see internal/lower/freevars.go).
	Qualified
	// LocalMethod is a reference to a method resolved through a receiver
	// type rather than lexical scope; also never free.
	LocalMethod
)

func (k IdentKind) String() string {
	switch k {
	case Local:
		return "local"
	case MutLocal:
		return "mut_local"
	case Qualified:
		return "qualified"
	case LocalMethod:
		return "local_method"
	default:
		return "ident_kind(?)"
	}
}

// IsGlobal reports whether identifiers of this kind are globals: never
// captured, never counted as free.
func (k IdentKind) IsGlobal() bool {
	return k == Qualified || k == LocalMethod
}

// Ident is a reference to a binding: either a use-site (Var expression) or
// the name introduced at a binding site (Lambda.Params, Let.Name, ...).
type Ident struct {
	Name string
	Kind IdentKind
	Ty   clamtype.SourceType
}

func (id Ident) String() string { return id.Name }
