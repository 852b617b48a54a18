package mcore

import "github.com/moonbitlang/moonbit-compiler/internal/clamtype"

// Constructors below are this package's only exported way to build a node
// from outside package mcore: base carries the shared Pos/Ty fields but is
// itself unexported, the same shape go/ast uses for ast.NewIdent / the
// position-bearing helpers around its otherwise plain node structs. A
// front-end builds trees by calling these; internal/lower only ever reads
// them.

func NewConst(pos Pos, ty clamtype.SourceType, value any) *Const {
	return &Const{base: base{P: pos, T: ty}, Value: value}
}

func NewVarRef(pos Pos, id Ident) *VarRef {
	return &VarRef{base: base{P: pos, T: id.Ty}, Id: id}
}

func NewPrimApply(pos Pos, ty clamtype.SourceType, prim string, args ...Expr) *PrimApply {
	return &PrimApply{base: base{P: pos, T: ty}, Prim: prim, Args: args}
}

func NewApply(pos Pos, ty clamtype.SourceType, kind ApplyKind, funcTy clamtype.SourceType, fn Expr, args ...Expr) *Apply {
	return &Apply{base: base{P: pos, T: ty}, Kind: kind, FuncTy: funcTy, Func: fn, Args: args}
}

func NewIf(pos Pos, ty clamtype.SourceType, cond, then, els Expr) *If {
	return &If{base: base{P: pos, T: ty}, Cond: cond, Then: then, Else: els}
}

func NewLetfn(pos Pos, ty clamtype.SourceType, name Ident, fn *Lambda, body Expr) *Letfn {
	return &Letfn{base: base{P: pos, T: ty}, Name: name, Fn: fn, Body: body}
}

func NewLetrec(pos Pos, ty clamtype.SourceType, names []Ident, fns []*Lambda, body Expr) *Letrec {
	return &Letrec{base: base{P: pos, T: ty}, Names: names, Fns: fns, Body: body}
}

func NewLambda(pos Pos, params []Param, retTy clamtype.SourceType, isAsync, isRaw bool, body Expr) *Lambda {
	fnTy := clamtype.Func{Ret: retTy, IsAsync: isAsync}
	fnTy.Params = make([]clamtype.SourceType, len(params))
	for i, p := range params {
		fnTy.Params[i] = p.Ty
	}
	return &Lambda{base: base{P: pos, T: fnTy}, Params: params, RetTy: retTy, IsAsync: isAsync, IsRaw: isRaw, Body: body}
}

func NewReturn(pos Pos, value Expr, isError bool, returnTy clamtype.SourceType) *Return {
	return &Return{base: base{P: pos, T: returnTy}, Value: value, IsError: isError, ReturnTy: returnTy}
}

func NewTuple(pos Pos, ty clamtype.SourceType, elems ...Expr) *Tuple {
	return &Tuple{base: base{P: pos, T: ty}, Elems: elems}
}

func NewConstr(pos Pos, ty clamtype.SourceType, enumPath, name string, tag int, args ...Expr) *Constr {
	return &Constr{base: base{P: pos, T: ty}, EnumPath: enumPath, Name: name, Tag: tag, Args: args}
}

func NewSwitchConstr(pos Pos, ty clamtype.SourceType, obj Expr, cases []SwitchCase, def Expr) *SwitchConstr {
	return &SwitchConstr{base: base{P: pos, T: ty}, Obj: obj, Cases: cases, Default: def}
}
