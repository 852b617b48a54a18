package lower

import (
	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/intrinsictab"
	"github.com/moonbitlang/moonbit-compiler/internal/mcore"
)

// rewriteIntrinsic is IntrinsicRewriter (spec §4.7): a recognized call
// lowers directly to an explicit Clam primitive instead of going through
// ordinary call-target resolution. ok is false when the tag is only ever
// meaningful as an intermediate pipeline link (e.g. a bare, unconsumed
// Iter_map) — such calls fall back to the generic apply path.
func (l *Lowerer) rewriteIntrinsic(tag intrinsictab.Intrinsic, n *mcore.Apply) (result clam.Expr, ok bool) {
	switch tag {
	case intrinsictab.ArrayLength, intrinsictab.ArrayViewLength, intrinsictab.BytesViewLength:
		return l.rewriteLength(tag, n), true

	case intrinsictab.ArrayUnsafeGet, intrinsictab.ArrayViewUnsafeGet, intrinsictab.BytesViewUnsafeGet:
		return l.rewriteGet(n, clam.Unsafe), true

	case intrinsictab.ArrayGet:
		return l.rewriteGet(n, clam.Safe), true

	case intrinsictab.ArrayUnsafeSet, intrinsictab.ArrayViewUnsafeSet, intrinsictab.BytesViewUnsafeSet:
		return l.rewriteSet(n, clam.Unsafe), true

	case intrinsictab.ArraySet:
		return l.rewriteSet(n, clam.Safe), true

	case intrinsictab.ArrayViewAsView, intrinsictab.BytesViewAsView:
		return l.rewriteAsView(tag, n), true

	case intrinsictab.CharToString:
		return l.rewriteCharToString(n), true

	case intrinsictab.OpLt, intrinsictab.OpLe, intrinsictab.OpGe, intrinsictab.OpGt, intrinsictab.OpNotEqual:
		return l.rewriteComparison(tag, n), true

	case intrinsictab.IterIter, intrinsictab.IterReduce:
		return l.rewriteIterPipeline(tag, n)

	default:
		return nil, false
	}
}

func (l *Lowerer) arrayTid(e mcore.Expr) clamtype.Tid {
	return l.Types.Lower(e.Ty()).Tid
}

func elementSourceType(st clamtype.SourceType) clamtype.SourceType {
	switch t := st.(type) {
	case clamtype.Array:
		return t.Elem
	case clamtype.FixedArray:
		return t.Elem
	case clamtype.ArrayView:
		return t.Elem
	case clamtype.BytesView:
		return clamtype.Prim{Name: "Byte"}
	default:
		invariant("IntrinsicRewriter", "not an array-like type %T", st)
		panic("unreachable")
	}
}

// bindIfNeeded names e with a fresh local if it is not already a bare
// variable reference, so it can be read more than once (as both a call
// receiver and, e.g., a length operand) without re-evaluating it.
func (l *Lowerer) bindIfNeeded(e clam.Expr, ty clamtype.Type) (clam.Var, func(clam.Expr) clam.Expr) {
	if lv, isVar := e.(clam.LVar); isVar {
		return lv.V, func(b clam.Expr) clam.Expr { return b }
	}
	v := clam.Var{Name: l.fresh("recv"), Ty: ty}
	return v, func(b clam.Expr) clam.Expr { return clam.Llet{Name: v, E: e, Body: b} }
}

func (l *Lowerer) rewriteLength(tag intrinsictab.Intrinsic, n *mcore.Apply) clam.Expr {
	i32 := clamtype.Unboxed(clamtype.I32)
	obj := l.lowerExpr(n.Args[0])
	if tag == intrinsictab.BytesViewLength {
		v, wrap := l.bindIfNeeded(obj, clamtype.Unboxed(clamtype.RefBytes))
		call := clam.Lapply{Fn: clam.CallTarget{Kind: clam.Dynamic, Var: v}, Prim: string(tag), RetTy: i32}
		return wrap(call)
	}
	tid := l.arrayTid(n.Args[0])
	idx := 1
	if tag == intrinsictab.ArrayViewLength {
		idx = 2
	}
	return clam.LgetField{Obj: obj, Tid: tid, Index: idx, Kind: clam.GetStruct, Ty: i32}
}

func (l *Lowerer) rewriteGet(n *mcore.Apply, access clam.ArrayAccessKind) clam.Expr {
	arr := l.lowerExpr(n.Args[0])
	idx := l.lowerExpr(n.Args[1])
	elemTy := l.Types.Lower(elementSourceType(n.Args[0].Ty()))
	tid := l.arrayTid(n.Args[0])
	extra := clam.NoExtra
	if elemTy.Kind == clamtype.Ref || elemTy.Kind == clamtype.RefNullable {
		extra = clam.NeedNonNullCast
	}

	if access == clam.Unsafe {
		return clam.LarrayGetItem{Arr: arr, Idx: idx, Tid: tid, Access: access, Extra: extra, Ty: elemTy}
	}

	arrVar, wrapArr := l.bindIfNeeded(arr, l.Types.Lower(n.Args[0].Ty()))
	idxVar, wrapIdx := l.bindIfNeeded(idx, clamtype.Unboxed(clamtype.I32))
	lenGet := clam.LgetField{Obj: clam.LVar{V: arrVar}, Tid: tid, Index: 1, Kind: clam.GetStruct, Ty: clamtype.Unboxed(clamtype.I32)}
	get := clam.LarrayGetItem{Arr: clam.LVar{V: arrVar}, Idx: clam.LVar{V: idxVar}, Tid: tid, Access: clam.Unsafe, Extra: extra, Ty: elemTy}
	return wrapArr(wrapIdx(l.boundsGuard(clam.LVar{V: idxVar}, lenGet, get)))
}

func (l *Lowerer) rewriteSet(n *mcore.Apply, access clam.ArrayAccessKind) clam.Expr {
	arr := l.lowerExpr(n.Args[0])
	idx := l.lowerExpr(n.Args[1])
	val := l.lowerExpr(n.Args[2])
	tid := l.arrayTid(n.Args[0])

	if access == clam.Unsafe {
		return clam.LarraySetItem{Arr: arr, Idx: idx, Val: val, Tid: tid, Access: access}
	}

	arrVar, wrapArr := l.bindIfNeeded(arr, l.Types.Lower(n.Args[0].Ty()))
	idxVar, wrapIdx := l.bindIfNeeded(idx, clamtype.Unboxed(clamtype.I32))
	lenGet := clam.LgetField{Obj: clam.LVar{V: arrVar}, Tid: tid, Index: 1, Kind: clam.GetStruct, Ty: clamtype.Unboxed(clamtype.I32)}
	set := clam.LarraySetItem{Arr: clam.LVar{V: arrVar}, Idx: clam.LVar{V: idxVar}, Val: val, Tid: tid, Access: clam.Unsafe}
	return wrapArr(wrapIdx(l.boundsGuard(clam.LVar{V: idxVar}, lenGet, set)))
}

// boundsGuard implements spec §4.7's Array_get/set desugaring literally:
// "if (idx<0 || idx>=len) { Ppanic() }; <unsafe access>" (spec §8.2
// scenario 6). access must already read idx/lenGet's bound variables, not
// re-evaluate the original expressions.
func (l *Lowerer) boundsGuard(idx, lenGet, access clam.Expr) clam.Expr {
	i32 := clamtype.Unboxed(clamtype.I32)
	boolTy := clamtype.Unboxed(clamtype.I32Bool)
	unit := clamtype.Unboxed(clamtype.I32Unit)

	ltZero := clam.Lapply{Fn: clam.CallTarget{Kind: clam.Dynamic}, Prim: "i32_lt", Args: []clam.Expr{idx, clam.Const{Value: 0, Ty: i32}}, RetTy: boolTy}
	geLen := clam.Lapply{Fn: clam.CallTarget{Kind: clam.Dynamic}, Prim: "i32_ge", Args: []clam.Expr{idx, lenGet}, RetTy: boolTy}
	outOfRange := clam.Lif{Pred: ltZero, Ifso: clam.Const{Value: true, Ty: boolTy}, Ifnot: geLen, Ty: boolTy}

	panicCall := clam.Lapply{Fn: clam.CallTarget{Kind: clam.Dynamic}, Prim: "Ppanic", RetTy: unit}
	guard := clam.Lif{Pred: outOfRange, Ifso: panicCall, Ifnot: nil, Ty: unit}

	return clam.Lsequence{Exprs: []clam.Expr{guard}, LastExpr: access}
}

// rewriteAsView implements op_as_view (spec §4.7): ArrayView reinterprets
// as a fresh struct sharing the source's backing buffer; BytesView has no
// struct representation (TypeLowering lowers it to the unboxed RefBytes
// kind), so its "as view" is a primitive call on the receiver instead.
func (l *Lowerer) rewriteAsView(tag intrinsictab.Intrinsic, n *mcore.Apply) clam.Expr {
	start := l.lowerExpr(n.Args[1])
	length := l.lowerExpr(n.Args[2])

	if tag == intrinsictab.BytesViewAsView {
		src := l.lowerExpr(n.Args[0])
		v, wrap := l.bindIfNeeded(src, clamtype.Unboxed(clamtype.RefBytes))
		call := clam.Lapply{
			Fn:    clam.CallTarget{Kind: clam.Dynamic, Var: v},
			Prim:  string(tag),
			Args:  []clam.Expr{start, length},
			RetTy: clamtype.Unboxed(clamtype.RefBytes),
		}
		return wrap(call)
	}

	src := l.lowerExpr(n.Args[0])
	srcTy := l.Types.Lower(n.Args[0].Ty())
	v, wrap := l.bindIfNeeded(src, srcTy)
	buf := clam.LgetField{Obj: clam.LVar{V: v}, Tid: srcTy.Tid, Index: 0, Kind: clam.GetStruct, Ty: clamtype.Unboxed(clamtype.RefAny)}
	resultTid := l.Types.Lower(n.Ty()).Tid
	alloc := clam.Lallocate{Kind: clam.AllocStruct, Tid: resultTid, Fields: []clam.Expr{buf, start, length}}
	return wrap(alloc)
}

func (l *Lowerer) rewriteCharToString(n *mcore.Apply) clam.Expr {
	arg := l.lowerExpr(n.Args[0])
	v, wrap := l.bindIfNeeded(arg, l.Types.Lower(n.Args[0].Ty()))
	call := clam.Lapply{
		Fn:    clam.CallTarget{Kind: clam.Dynamic, Var: v},
		Prim:  string(intrinsictab.CharToString),
		RetTy: clamtype.Unboxed(clamtype.RefString),
	}
	return wrap(call)
}

// rewriteComparison lowers a polymorphic comparison operator (spec §4.7) to
// a primitive apply named by the operator's own intrinsic tag, over the
// lowered operands. The primitive is the same for every operand type: no
// type-specific primitive (such as separate Int and Int64 forms) is chosen.
func (l *Lowerer) rewriteComparison(tag intrinsictab.Intrinsic, n *mcore.Apply) clam.Expr {
	lhs := l.lowerExpr(n.Args[0])
	rhs := l.lowerExpr(n.Args[1])
	return clam.Lapply{
		Fn:    clam.CallTarget{Kind: clam.Dynamic},
		Prim:  string(tag),
		Args:  []clam.Expr{lhs, rhs},
		RetTy: clamtype.Unboxed(clamtype.I32Bool),
	}
}

// iterStage is one Map or Filter link of a recognized iterator pipeline.
// Take, flat_map, repeat, and concat chains are not inlined by this core —
// collectIterChain reports them as unrecognized so they fall back to
// ordinary dispatch (a deliberate scope cut; see DESIGN.md).
type iterStage struct {
	kind intrinsictab.Intrinsic
	fn   mcore.Expr
}

// collectIterChain walks backward from an Iter_iter/Iter_reduce's source
// argument through its Map/Filter stages down to the originating array
// (spec §4.7 "inlining recognized built-in iterator/array/string pipelines
// into explicit loops").
func collectIterChain(e mcore.Expr, intr intrinsictab.Table) (src mcore.Expr, stages []iterStage, ok bool) {
	for {
		app, isApply := e.(*mcore.Apply)
		if !isApply {
			return nil, nil, false
		}
		vr, isVar := app.Func.(*mcore.VarRef)
		if !isVar {
			return nil, nil, false
		}
		tag, found := intr.Lookup(vr.Id.Name)
		if !found {
			return nil, nil, false
		}
		switch tag {
		case intrinsictab.IterFromArray, intrinsictab.FixedArrayIter:
			return app.Args[0], stages, true
		case intrinsictab.IterMap, intrinsictab.IterFilter:
			stages = append([]iterStage{{kind: tag, fn: app.Args[1]}}, stages...)
			e = app.Args[0]
		default:
			return nil, nil, false
		}
	}
}

type reduceSpec struct {
	init    mcore.Expr
	combine mcore.Expr
	retTy   clamtype.SourceType
}

func (l *Lowerer) rewriteIterPipeline(tag intrinsictab.Intrinsic, n *mcore.Apply) (clam.Expr, bool) {
	src, stages, ok := collectIterChain(n.Args[0], l.Intrinsics)
	if !ok {
		return nil, false
	}
	switch tag {
	case intrinsictab.IterIter:
		return l.inlineIterLoop(src, stages, n.Args[1], nil), true
	case intrinsictab.IterReduce:
		return l.inlineIterLoop(src, stages, nil, &reduceSpec{init: n.Args[1], combine: n.Args[2], retTy: n.Ty()}), true
	default:
		return nil, false
	}
}

func bump(v clam.Var) clam.Expr {
	return clam.Lapply{
		Fn:    clam.CallTarget{Kind: clam.Dynamic},
		Prim:  "i32_add",
		Args:  []clam.Expr{clam.LVar{V: v}, clam.Const{Value: 1, Ty: v.Ty}},
		RetTy: v.Ty,
	}
}

// inlineIterLoop lowers a whole recognized array/iterator pipeline into one
// explicit Lloop walking the source array's indices, applying each
// Map/Filter stage in turn (spec §4.7).
func (l *Lowerer) inlineIterLoop(src mcore.Expr, stages []iterStage, consumer mcore.Expr, reduce *reduceSpec) clam.Expr {
	unit := clamtype.Unboxed(clamtype.I32Unit)
	i32 := clamtype.Unboxed(clamtype.I32)

	arr := l.lowerExpr(src)
	arrTy := l.Types.Lower(src.Ty())
	tid := arrTy.Tid
	arrVar := clam.Var{Name: l.fresh("arr"), Ty: arrTy}

	idxVar := clam.Var{Name: l.fresh("i"), Ty: i32}
	loopParams := []clam.Var{idxVar}
	initArgs := []clam.Expr{clam.Const{Value: 0, Ty: i32}}

	var accVar clam.Var
	loopTy := unit
	var loopExit clam.Expr = clam.Const{Value: nil, Ty: unit}
	if reduce != nil {
		accTy := l.Types.Lower(reduce.retTy)
		accVar = clam.Var{Name: l.fresh("acc"), Ty: accTy}
		loopParams = append(loopParams, accVar)
		initArgs = append(initArgs, l.lowerExpr(reduce.init))
		loopTy = accTy
		loopExit = clam.LVar{V: accVar}
	}

	elemTy := l.Types.Lower(elementSourceType(src.Ty()))
	// The len field's index follows internContainer's layout for each container.
	lenIdx := 1
	switch src.Ty().(type) {
	case clamtype.FixedArray:
		lenIdx = 0
	case clamtype.ArrayView:
		lenIdx = 2
	}
	lenGet := clam.Expr(clam.LgetField{Obj: clam.LVar{V: arrVar}, Tid: tid, Index: lenIdx, Kind: clam.GetStruct, Ty: i32})
	elem := clam.Expr(clam.LarrayGetItem{Arr: clam.LVar{V: arrVar}, Idx: clam.LVar{V: idxVar}, Tid: tid, Access: clam.Safe, Ty: elemTy})

	skip := clam.Expr(clam.Lcontinue{Label: "iter", Args: []clam.Expr{bump(idxVar)}})
	if reduce != nil {
		skip = clam.Lcontinue{Label: "iter", Args: []clam.Expr{bump(idxVar), clam.LVar{V: accVar}}}
	}

	var onElem func(clam.Expr) clam.Expr
	if reduce != nil {
		onElem = func(v clam.Expr) clam.Expr {
			combined := l.applyClosureValue(reduce.combine, []clam.Expr{clam.LVar{V: accVar}, v}, loopTy)
			return clam.Lcontinue{Label: "iter", Args: []clam.Expr{bump(idxVar), combined}}
		}
	} else {
		onElem = func(v clam.Expr) clam.Expr {
			call := l.applyClosureValue(consumer, []clam.Expr{v}, unit)
			return clam.Lsequence{Exprs: []clam.Expr{call}, LastExpr: clam.Lcontinue{Label: "iter", Args: []clam.Expr{bump(idxVar)}}}
		}
	}

	next := l.applyStages(stages, elem, elemTy, onElem, skip)

	cond := clam.Lif{
		Pred: clam.Lapply{
			Fn:    clam.CallTarget{Kind: clam.Dynamic},
			Prim:  "i32_lt",
			Args:  []clam.Expr{clam.LVar{V: idxVar}, lenGet},
			RetTy: clamtype.Unboxed(clamtype.I32Bool),
		},
		Ifso:  next,
		Ifnot: clam.Lbreak{Arg: loopExit, Label: "iter"},
		Ty:    loopTy,
	}

	loop := clam.Lloop{Params: loopParams, Body: cond, Args: initArgs, Label: "iter", Ty: loopTy}
	return clam.Llet{Name: arrVar, E: arr, Body: loop}
}

// applyStages threads elem through the remaining Map/Filter stages, calling
// onElem once the chain is exhausted. A Filter's false branch evaluates
// skip, which continues the enclosing loop without consuming the element.
func (l *Lowerer) applyStages(stages []iterStage, elem clam.Expr, elemTy clamtype.Type, onElem func(clam.Expr) clam.Expr, skip clam.Expr) clam.Expr {
	if len(stages) == 0 {
		return onElem(elem)
	}
	st := stages[0]
	rest := stages[1:]
	fnSig, _ := st.fn.Ty().(clamtype.Func)

	switch st.kind {
	case intrinsictab.IterMap:
		v, wrap := l.bindIfNeeded(elem, elemTy)
		outTy := l.Types.Lower(fnSig.Ret)
		mapped := l.applyClosureValue(st.fn, []clam.Expr{clam.LVar{V: v}}, outTy)
		return wrap(l.applyStages(rest, mapped, outTy, onElem, skip))

	case intrinsictab.IterFilter:
		v, wrap := l.bindIfNeeded(elem, elemTy)
		pred := l.applyClosureValue(st.fn, []clam.Expr{clam.LVar{V: v}}, clamtype.Unboxed(clamtype.I32Bool))
		inner := l.applyStages(rest, clam.LVar{V: v}, elemTy, onElem, skip)
		return wrap(clam.Lif{Pred: pred, Ifso: inner, Ifnot: skip, Ty: inner.Type()})

	default:
		invariant("IntrinsicRewriter", "unsupported iterator stage %s", st.kind)
		panic("unreachable")
	}
}

func (l *Lowerer) applyClosureValue(fn mcore.Expr, args []clam.Expr, retTy clamtype.Type) clam.Expr {
	fv := l.lowerExpr(fn)
	v, wrap := l.bindIfNeeded(fv, l.Types.Lower(fn.Ty()))
	return wrap(clam.Lapply{Fn: clam.CallTarget{Kind: clam.Dynamic, Var: v}, Args: args, RetTy: retTy})
}
