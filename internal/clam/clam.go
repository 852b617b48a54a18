// Package clam defines the lowered, closure-converted, explicitly-typed IR
// produced by internal/lower. Every node that carries a value has a
// statically assignable Clam type (spec §3.3); the variants below mirror
// spec.md §3.2 one-for-one.
package clam

import "github.com/moonbitlang/moonbit-compiler/internal/clamtype"

// Address names a top-level function symbol. It is minted once (spec §3.3
// "every address is issued exactly once") and never reused.
type Address uint32

// Var is a reference to a bound identifier: a local, a parameter, or a
// join/loop parameter. It never refers to a raw top-level name (spec §3.3).
type Var struct {
	Name string
	Ty   clamtype.Type
}

// Expr is any Clam expression node.
type Expr interface {
	isExpr()
	Type() clamtype.Type
}

// Const is a literal value already in its lowered representation.
type Const struct {
	Value any
	Ty    clamtype.Type
}

func (Const) isExpr()            {}
func (c Const) Type() clamtype.Type { return c.Ty }

type LVar struct{ V Var }

func (LVar) isExpr()            {}
func (v LVar) Type() clamtype.Type { return v.V.Ty }

type LAssign struct {
	V Var
	E Expr
}

func (LAssign) isExpr()         {}
func (LAssign) Type() clamtype.Type { return clamtype.Unboxed(clamtype.I32Unit) }

type Llet struct {
	Name Var
	E    Expr
	Body Expr
}

func (Llet) isExpr()            {}
func (l Llet) Type() clamtype.Type { return l.Body.Type() }

// Lletrec binds a set of closures simultaneously; every Fns[i] may refer to
// Names[j] for any j (spec §3.3 "every bound function may refer to the
// others and to itself via a shared capture structure").
type Lletrec struct {
	Names []Var
	Fns   []*Closure
	Body  Expr
}

func (Lletrec) isExpr()            {}
func (l Lletrec) Type() clamtype.Type { return l.Body.Type() }

type Lsequence struct {
	Exprs     []Expr
	LastExpr  Expr
}

func (Lsequence) isExpr()            {}
func (s Lsequence) Type() clamtype.Type { return s.LastExpr.Type() }

type Lif struct {
	Pred  Expr
	Ifso  Expr
	Ifnot Expr
	Ty    clamtype.Type
}

func (Lif) isExpr()            {}
func (i Lif) Type() clamtype.Type { return i.Ty }

// Lloop is a structured loop with labeled multi-value continue/break (spec
// §3.2). Params are the loop-carried variables, rebound fresh on each
// Lcontinue.
type Lloop struct {
	Params []Var
	Body   Expr
	Args   []Expr
	Label  string
	Ty     clamtype.Type
}

func (Lloop) isExpr()            {}
func (l Lloop) Type() clamtype.Type { return l.Ty }

type Lbreak struct {
	Arg   Expr // nil if the loop is unit-typed
	Label string
}

func (Lbreak) isExpr()            {}
func (Lbreak) Type() clamtype.Type { return clamtype.Unboxed(clamtype.I32Unit) }

type Lcontinue struct {
	Args  []Expr
	Label string
}

func (Lcontinue) isExpr()            {}
func (Lcontinue) Type() clamtype.Type { return clamtype.Unboxed(clamtype.I32Unit) }

// JoinKind distinguishes a tail join (the common case, entered exactly once
// per execution of its scope) from a nontail join (may be entered from
// multiple non-tail positions — see ReturnXfm).
type JoinKind int

const (
	TailJoin JoinKind = iota
	NontailJoin
)

// Ljoinlet introduces a second-class labeled continuation: Name is only
// ever a target of Ljoinapply, never stored as a value (spec §3.3, GLOSSARY
// "Join").
type Ljoinlet struct {
	Name   string
	Params []Var
	E      Expr
	Body   Expr
	Kind   JoinKind
	Ty     clamtype.Type
}

func (Ljoinlet) isExpr()            {}
func (j Ljoinlet) Type() clamtype.Type { return j.Ty }

type Ljoinapply struct {
	Name string
	Args []Expr
}

func (Ljoinapply) isExpr()            {}
func (Ljoinapply) Type() clamtype.Type { return clamtype.Unboxed(clamtype.I32Unit) }

type SwitchCase struct {
	Tag int
	E   Expr
}

type Lswitch struct {
	Obj     Var
	Cases   []SwitchCase
	Default Expr // nil if exhaustive
	Ty      clamtype.Type
}

func (Lswitch) isExpr()            {}
func (s Lswitch) Type() clamtype.Type { return s.Ty }

type IntCase struct {
	Value int
	E     Expr
}

type Lswitchint struct {
	Obj     Expr
	Cases   []IntCase
	Default Expr
	Ty      clamtype.Type
}

func (Lswitchint) isExpr()            {}
func (s Lswitchint) Type() clamtype.Type { return s.Ty }

type StringCase struct {
	Value string
	E     Expr
}

type Lswitchstring struct {
	Obj     Expr
	Cases   []StringCase
	Default Expr
	Ty      clamtype.Type
}

func (Lswitchstring) isExpr()            {}
func (s Lswitchstring) Type() clamtype.Type { return s.Ty }

// CallTargetKind selects how Lapply dispatches.
type CallTargetKind int

const (
	Dynamic CallTargetKind = iota
	StaticFn
	Object
)

type CallTarget struct {
	Kind       CallTargetKind
	Var        Var           // Dynamic
	Addr       Address       // StaticFn
	Obj        Expr          // Object
	MethodIdx  int           // Object
	MethodTy   clamtype.FnSig // Object
}

type Lapply struct {
	Fn    CallTarget
	Prim  string // "" if not an intrinsic-tagged apply
	Args  []Expr
	RetTy clamtype.Type
}

func (Lapply) isExpr()            {}
func (a Lapply) Type() clamtype.Type { return a.RetTy }

type LstubCall struct {
	Fn        Address
	Args      []Expr
	ParamsTy  []clamtype.Type
	ReturnTy  clamtype.Type
}

func (LstubCall) isExpr()            {}
func (s LstubCall) Type() clamtype.Type { return s.ReturnTy }

// AllocKind selects the shape of Lallocate's object.
type AllocKind int

const (
	AllocTuple AllocKind = iota
	AllocStruct
	AllocEnum
	AllocObject
)

type Lallocate struct {
	Kind   AllocKind
	Tid    clamtype.Tid
	Fields []Expr
	Tag    int // AllocKind == AllocEnum only
}

func (Lallocate) isExpr()            {}
func (a Lallocate) Type() clamtype.Type { return clamtype.RefTo(clamtype.Ref, a.Tid) }

// ClosureAddrKind selects whether a closure's code pointer is a plain
// top-level address or the special Well_known_mut_rec marker used when a
// mutually-recursive well-known group shares one late-init capture struct
// (spec §4.8 point 4).
type ClosureAddrKind int

const (
	NormalAddr ClosureAddrKind = iota
	WellKnownMutRec
)

type ClosureAddr struct {
	Kind ClosureAddrKind
	Addr Address // meaningful iff Kind == NormalAddr
}

// Closure is both an Lallocate-like expression node (Lclosure) when it
// appears inline and the payload of an Lletrec binding.
type Closure struct {
	Captures []Var
	Address  ClosureAddr
	Tid      clamtype.Tid
}

func (c *Closure) isExpr()            {}
func (c *Closure) Type() clamtype.Type { return clamtype.RefTo(clamtype.Ref, c.Tid) }

// LgetRawFunc takes a code pointer without wrapping it in a closure
// object (spec §3.2, §9 Open Question — raw lambdas).
type LgetRawFunc struct {
	Addr Address
	Ty   clamtype.Type
}

func (LgetRawFunc) isExpr()            {}
func (g LgetRawFunc) Type() clamtype.Type { return g.Ty }

// GetFieldKind / SetFieldKind select the physical shape of the owning
// allocation for LgetField / LsetField.
type GetFieldKind int

const (
	GetTuple GetFieldKind = iota
	GetStruct
	GetEnum
	GetObject
)

type LgetField struct {
	Obj              Expr
	Tid              clamtype.Tid
	Index             int
	Kind             GetFieldKind
	NumberOfMethods  int // meaningful iff Kind == GetObject
	Ty               clamtype.Type
}

func (LgetField) isExpr()            {}
func (g LgetField) Type() clamtype.Type { return g.Ty }

type SetFieldKind int

const (
	SetStruct SetFieldKind = iota
	SetEnum
)

type LsetField struct {
	Obj   Expr
	Tid   clamtype.Tid
	Index int
	Kind  SetFieldKind
	Val   Expr
}

func (LsetField) isExpr()            {}
func (LsetField) Type() clamtype.Type { return clamtype.Unboxed(clamtype.I32Unit) }

type LclosureField struct {
	Obj   Expr
	Index int
	Ty    clamtype.Type
}

func (LclosureField) isExpr()            {}
func (f LclosureField) Type() clamtype.Type { return f.Ty }

// ArrayAccessKind selects the bounds-checking discipline of array
// get/set (spec §3.2, §4.7).
type ArrayAccessKind int

const (
	Safe ArrayAccessKind = iota
	Unsafe
	RevUnsafe
)

// GetItemExtra records a post-load fixup required by some element kinds
// (spec §3.2).
type GetItemExtra int

const (
	NoExtra GetItemExtra = iota
	NeedNonNullCast
	NeedSignedInfo
)

type LmakeArray struct {
	Tid   clamtype.Tid
	Elems []Expr
	Ty    clamtype.Type
}

func (LmakeArray) isExpr()            {}
func (m LmakeArray) Type() clamtype.Type { return m.Ty }

type LarrayGetItem struct {
	Arr      Expr
	Idx      Expr
	Tid      clamtype.Tid
	Access   ArrayAccessKind
	Extra    GetItemExtra
	Signed   bool // meaningful iff Extra == NeedSignedInfo
	Ty       clamtype.Type
}

func (LarrayGetItem) isExpr()            {}
func (g LarrayGetItem) Type() clamtype.Type { return g.Ty }

type LarraySetItem struct {
	Arr    Expr
	Idx    Expr
	Val    Expr
	Tid    clamtype.Tid
	Access ArrayAccessKind
}

func (LarraySetItem) isExpr()            {}
func (LarraySetItem) Type() clamtype.Type { return clamtype.Unboxed(clamtype.I32Unit) }

// Lcast changes the static ref type of expr without changing the
// underlying reference (spec §3.2).
type Lcast struct {
	E          Expr
	TargetType clamtype.Type
}

func (Lcast) isExpr()            {}
func (c Lcast) Type() clamtype.Type { return c.TargetType }

type Lcatch struct {
	Body        Expr
	OnException Expr
	Ty          clamtype.Type
}

func (Lcatch) isExpr()            {}
func (c Lcatch) Type() clamtype.Type { return c.Ty }

// Lreturn is reserved for early-out from stub wrappers and error
// propagation plumbing (spec §3.2) — it is not how ordinary `return`
// expressions are lowered; those become Ljoinapply via ReturnXfm.
type Lreturn struct{ E Expr }

func (Lreturn) isExpr()            {}
func (r Lreturn) Type() clamtype.Type { return r.E.Type() }

// Levent is a debug location wrapper, elided from the S-expression
// printer unless show_loc is set (spec §6.2).
type Levent struct {
	E   Expr
	Loc string
}

func (Levent) isExpr()            {}
func (e Levent) Type() clamtype.Type { return e.E.Type() }
