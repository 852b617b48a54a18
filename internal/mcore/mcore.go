package mcore

import "github.com/moonbitlang/moonbit-compiler/internal/clamtype"

// Pos is a source location, opaque to this core (the front-end owns the
// file/line/column encoding). The lowerer records each top-level item's Pos
// as its current base location; it emits no Levent wrappers from it.
type Pos struct {
	File string
	Line int
	Col  int
}

// Expr is any MCore expression node (spec §3.1). It is a closed sum type:
// the variants below are the only implementations, enumerated exhaustively
// by every consumer in internal/lower. Every node carries its checked
// source type (spec §6.1 "explicit source types on every expression"), so
// Lowerer never needs to re-infer one.
type Expr interface {
	isExpr()
	Pos() Pos
	Ty() clamtype.SourceType
}

type base struct {
	P Pos
	T clamtype.SourceType
}

func (base) isExpr()                  {}
func (b base) Pos() Pos                { return b.P }
func (b base) Ty() clamtype.SourceType { return b.T }

type Const struct {
	base
	Value any // bool, rune, int, int64, float32, float64, string, or unit sentinel
}

type VarRef struct {
	base
	Id Ident
}

// ApplyKind distinguishes an ordinary call from an async call or a call to
// a join point. Joins are second-class: FreeVars never adds a join's
// callee to a free-variable set (spec §4.1).
type ApplyKind int

const (
	Normal ApplyKind = iota
	Async
	Join
)

type Apply struct {
	base
	Kind   ApplyKind
	FuncTy clamtype.SourceType // meaningful when Kind is Normal or Async
	Func   Expr
	Args   []Expr
}

type PrimApply struct {
	base
	Prim string
	Args []Expr
}

type AndOr struct {
	base
	IsAnd bool
	Lhs   Expr
	Rhs   Expr
}

type Let struct {
	base
	Name Ident
	Rhs  Expr
	Body Expr
}

// Letfn introduces a single non-recursive local function.
type Letfn struct {
	base
	Name Ident
	Fn   *Lambda
	Body Expr
}

// Letrec introduces a group of simultaneously-scoped, possibly mutually
// recursive local function bindings. SccGrouper partitions Names/Fns into
// minimal Non_rec/Rec groups before ClosureLowering runs.
type Letrec struct {
	base
	Names []Ident
	Fns   []*Lambda
	Body  Expr
}

type Param struct {
	Id Ident
	Ty clamtype.SourceType
}

type Lambda struct {
	base
	Params  []Param
	RetTy   clamtype.SourceType
	IsAsync bool
	IsRaw   bool
	Body    Expr
}

type Tuple struct {
	base
	Elems []Expr
}

type RecordField struct {
	Name string
	Val  Expr
}

type Record struct {
	base
	TypePath string
	Fields   []RecordField
}

type RecordUpdate struct {
	base
	Src    Expr
	Fields []RecordField
}

type FieldGet struct {
	base
	Obj       Expr
	FieldName string
}

type FieldMutate struct {
	base
	Obj       Expr
	FieldName string
	Val       Expr
}

type Constr struct {
	base
	EnumPath string
	Name     string
	Tag      int
	Args     []Expr
}

type ArrayLit struct {
	base
	Elem clamtype.SourceType
	Elems []Expr
}

type Assign struct {
	base
	Id  Ident
	Rhs Expr
}

type Sequence struct {
	base
	Exprs []Expr // all but the last are evaluated for effect only
}

type If struct {
	base
	Cond  Expr
	Then  Expr
	Else  Expr // nil means unit-typed "if without else"
}

type SwitchCase struct {
	Tag    int
	Binder *Ident // nil if the case has no binder
	Body   Expr
}

type SwitchConstr struct {
	base
	Obj     Expr
	Cases   []SwitchCase
	Default Expr // nil if exhaustive
}

type ConstCase struct {
	Value any
	Body  Expr
}

type SwitchConstant struct {
	base
	Obj     Expr
	Cases   []ConstCase
	Default Expr
}

type Loop struct {
	base
	Params []Param
	Body   Expr
	Args   []Expr
	Label  string
}

type Break struct {
	base
	Args  []Expr
	Label string
}

type Continue struct {
	base
	Args  []Expr
	Label string
}

// Return is a return expression; IsError distinguishes a plain `return e`
// from an error-propagating `return e` (spec §3.1, §4.6).
type Return struct {
	base
	Value    Expr
	IsError  bool
	ReturnTy clamtype.SourceType
}

// HandleErrorVariant selects among the three shapes of handle_error (spec
// §3.1).
type HandleErrorVariant int

const (
	ToResult HandleErrorVariant = iota
	JoinApply
	ReturnErr
)

type HandleError struct {
	base
	Variant HandleErrorVariant
	Inner   Expr
	// JoinName is only meaningful for Variant == JoinApply.
	JoinName string
}

// TopItem is a top-level program item (spec §3.1).
type TopItem interface{ isTopItem() }

type topBase struct{}

func (topBase) isTopItem() {}

type TopLet struct {
	topBase
	Name Ident
	Rhs  Expr
}

type TopFn struct {
	topBase
	Name      Ident
	Fn        *Lambda
	ExportName string // empty means private
	Intrinsic  string  // empty means not an intrinsic
}

type TopExpr struct {
	topBase
	E Expr
}

// TopStub is a foreign-call declaration with explicit wire types — this
// core only needs its signature (AddrTable pre-registers it), never its
// foreign body.
type TopStub struct {
	topBase
	Name       Ident
	ParamTys   []clamtype.Type
	ReturnTy   clamtype.Type
	ForeignSym string
}

// Program is a whole MCore compilation unit: an ordered list of top-level
// items, consumed top-down by Lowerer (spec §2 data flow, §4.9).
type Program struct {
	Items []TopItem
	// HasMain reports whether a designated entry point exists; Lowerer
	// only emits prog.main when true (spec §3.2 "prog ... optional
	// main").
	HasMain bool
	MainFn  *Lambda
}
