package clam

import "github.com/moonbitlang/moonbit-compiler/internal/clamtype"

// FnKind selects whether a top-level function is exported under a stable
// name or private to the module (spec §3.2).
type FnKind int

const (
	TopPrivate FnKind = iota
	TopPub
)

type FnSig struct {
	Params     []Var
	Body       Expr
	ReturnType clamtype.Type
}

// TopFuncItem is one top-level function item (spec §3.2). Tid is set when
// the function is itself a code-pointer target that needs a type
// identity distinct from its signature (e.g. an object method wrapper).
type TopFuncItem struct {
	Binder     Address
	Kind       FnKind
	ExportName string // meaningful iff Kind == TopPub
	Fn         FnSig
	Tid        *clamtype.Tid
}

// Global is one entry of prog.globals: a binding and, when the value was
// constant-folded, its literal (spec §4.9 "Constant-folded simple globals
// ... are emitted into globals with their literal; other globals become
// Llet prefixes onto init").
type Global struct {
	Name  Var
	Const *Const
}

// Prog is the complete output of a translation (spec §3.2, §3.4).
type Prog struct {
	Fns      []TopFuncItem
	Main     *FnSig // nil if the program has no entry point
	Init     Expr
	Globals  []Global
	TypeDefs *clamtype.TypeDefs
}
