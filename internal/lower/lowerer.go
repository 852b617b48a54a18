package lower

import (
	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/mcore"
)

// Lowerer is the whole translator (spec §2, §5): *State plus the growing
// list of top-level function items every sub-pass (ClosureLowering,
// IntrinsicRewriter, ReturnXfm) appends to, and the active returnState for
// whichever function body is currently being walked.
type Lowerer struct {
	*State
	topFns    []clam.TopFuncItem
	curReturn *returnState
}

// TranslProg is the single entry point (spec §2 "MCore program ->
// EscapeSet pre-pass -> per-top-level-item Lowerer fold -> sanity check ->
// clam.Prog"). Invariant violations raised anywhere during the fold are
// recovered here, as InvariantError, with no partial Prog returned (spec
// §7 "Invariant violations ... hard aborts. There is no recovery.").
func TranslProg(prog *mcore.Program, st *State) (p *clam.Prog, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*InvariantError); ok {
				p, err = nil, ie
				return
			}
			panic(r)
		}
	}()

	st.Esc = ComputeEscapeSet(prog)
	l := &Lowerer{State: st}
	l.collectTopLevel(prog)

	var globals []clam.Global
	var initExprs []clam.Expr

	for _, item := range prog.Items {
		switch it := item.(type) {
		case *mcore.TopLet:
			l.lowerTopLet(it, &globals)

		case *mcore.TopFn:
			l.lowerTopFn(it)

		case *mcore.TopExpr:
			l.SetBase(it.E.Pos())
			initExprs = append(initExprs, l.lowerExpr(it.E))

		case *mcore.TopStub:
			// pre-registered by collectTopLevel; no body to lower.

		default:
			invariant("TranslProg", "unhandled top item %T", item)
		}
	}

	l.emitClosureWrappers(prog, &globals)

	var main *clam.FnSig
	if prog.HasMain {
		l.SetBase(prog.MainFn.Pos())
		body := l.lowerFnBody(prog.MainFn)
		sig := clam.FnSig{Params: paramVars(l, prog.MainFn), Body: body, ReturnType: l.Types.Lower(prog.MainFn.RetTy)}
		main = &sig
	}

	p = &clam.Prog{
		Fns:      l.topFns,
		Main:     main,
		Init:     l.buildInit(initExprs),
		Globals:  globals,
		TypeDefs: l.Types.Defs,
	}
	runSanity(p)
	return p, nil
}

// collectTopLevel pre-registers every top-level function's address, param
// types, and lowered return type before any body is lowered (spec §4.5,
// §4.9 "collect_top_func ... runs before any body is translated").
func (l *Lowerer) collectTopLevel(prog *mcore.Program) {
	for _, item := range prog.Items {
		switch it := item.(type) {
		case *mcore.TopFn:
			params := make([]clamtype.Type, len(it.Fn.Params))
			for i, p := range it.Fn.Params {
				params[i] = l.Types.Lower(p.Ty)
			}
			l.Addr.CollectTopFunc(it.Name.Name, params, l.Types.Lower(it.Fn.RetTy))

		case *mcore.TopStub:
			l.Addr.CollectTopFunc(it.Name.Name, it.ParamTys, it.ReturnTy)
		}
	}
}

// lowerTopLet lowers a top-level let (spec §4.9): a constant-folded value
// is emitted straight into globals with its literal; anything else gets a
// globals slot with no literal and its initializer is pushed onto the
// binds_init prefix, evaluated when init runs.
func (l *Lowerer) lowerTopLet(it *mcore.TopLet, globals *[]clam.Global) {
	l.SetBase(it.Rhs.Pos())
	ty := l.Types.Lower(it.Rhs.Ty())
	name := clam.Var{Name: it.Name.Name, Ty: ty}
	val := l.lowerExpr(it.Rhs)
	if c, isConst := val.(clam.Const); isConst {
		*globals = append(*globals, clam.Global{Name: name, Const: &c})
		return
	}
	*globals = append(*globals, clam.Global{Name: name, Const: nil})
	l.pushInit(name, val)
}

func (l *Lowerer) lowerTopFn(it *mcore.TopFn) {
	l.SetBase(it.Fn.Pos())
	entry, ok := l.Addr.Lookup(it.Name.Name)
	if !ok {
		invariant("lowerTopFn", "top-level function %q was not pre-registered", it.Name.Name)
	}
	top := entry.(*Toplevel)
	body := l.lowerFnBody(it.Fn)
	kind := clam.TopPrivate
	exportName := ""
	if it.ExportName != "" {
		kind = clam.TopPub
		exportName = it.ExportName
	}
	l.topFns = append(l.topFns, clam.TopFuncItem{
		Binder:     top.Addr,
		Kind:       kind,
		ExportName: exportName,
		Fn:         clam.FnSig{Params: paramVars(l, it.Fn), Body: body, ReturnType: top.Return},
	})
}

// emitClosureWrappers implements spec §4.9's final pass: "for each
// top-level function whose escape set contained it, emit a
// closure-wrapper top-level item -- a thin function (env, args...) ->
// orig_addr(args) -- and a global Llet name = Lclosure{captures=[],
// address=Normal wrapper, tid} binding the function as a first-class
// value." The wrapper's own calling convention matches every other
// closure's code pointer, (env, args...), even though its capture list is
// always empty: the env parameter is accepted and ignored. The wrappers'
// init bindings go ahead of every other binds_init entry, so any top-level
// let that reads such a function as a value finds its name already bound.
func (l *Lowerer) emitClosureWrappers(prog *mcore.Program, globals *[]clam.Global) {
	var wrapperInits []bindInit
	for _, item := range prog.Items {
		fn, isFn := item.(*mcore.TopFn)
		if !isFn || !l.Esc.Escapes(fn.Name.Name) {
			continue
		}
		entry, ok := l.Addr.Lookup(fn.Name.Name)
		if !ok {
			continue
		}
		top := entry.(*Toplevel)
		wrapperAddr := l.Addr.ClosureWrapperAddr(fn.Name.Name)

		envParam := clam.Var{Name: l.fresh("env"), Ty: clamtype.Unboxed(clamtype.RefAny)}
		params := make([]clam.Var, len(top.Params)+1)
		params[0] = envParam
		args := make([]clam.Expr, len(top.Params))
		for i, pty := range top.Params {
			v := clam.Var{Name: l.fresh("a"), Ty: pty}
			params[i+1] = v
			args[i] = clam.LVar{V: v}
		}
		call := clam.Lapply{Fn: clam.CallTarget{Kind: clam.StaticFn, Addr: top.Addr}, Args: args, RetTy: top.Return}
		l.topFns = append(l.topFns, clam.TopFuncItem{
			Binder: wrapperAddr,
			Kind:   clam.TopPrivate,
			Fn:     clam.FnSig{Params: params, Body: call, ReturnType: top.Return},
		})

		abstractTid := l.Types.Defs.InternAbstractClosure(clamtype.FnSig{Params: top.Params, Ret: top.Return})
		closureTy := clamtype.RefTo(clamtype.Ref, abstractTid)
		gvar := clam.Var{Name: fn.Name.Name, Ty: closureTy}
		*globals = append(*globals, clam.Global{Name: gvar, Const: nil})
		wrapperInits = append(wrapperInits, bindInit{name: gvar, e: &clam.Closure{
			Address: clam.ClosureAddr{Kind: clam.NormalAddr, Addr: wrapperAddr},
			Tid:     abstractTid,
		}})
	}
	l.bindsInit = append(wrapperInits, l.bindsInit...)
}

// buildInit folds binds_init's accumulated Llet prefix (spec §4.9) around
// the sequence of top-level expression statements, innermost last so the
// final top-level expression's value is the whole init body's value.
func (l *Lowerer) buildInit(exprs []clam.Expr) clam.Expr {
	unit := clamtype.Unboxed(clamtype.I32Unit)
	var body clam.Expr = clam.Const{Value: nil, Ty: unit}
	if len(exprs) > 0 {
		body = clam.Lsequence{Exprs: exprs[:len(exprs)-1], LastExpr: exprs[len(exprs)-1]}
	}
	for i := len(l.bindsInit) - 1; i >= 0; i-- {
		b := l.bindsInit[i]
		body = clam.Llet{Name: b.name, E: b.e, Body: body}
	}
	return body
}

// lowerFnBody lowers a function literal's body under a fresh returnState,
// closing whichever return/raise joins it ends up needing (spec §4.6).
func (l *Lowerer) lowerFnBody(fn *mcore.Lambda) clam.Expr {
	saved := l.curReturn
	rs := newReturnState(fn.RetTy, l.Types)
	l.curReturn = rs
	body := l.lowerExpr(fn.Body)
	bodyTy := l.Types.Lower(fn.RetTy)
	body = l.closeJoins(rs, body, bodyTy)
	l.curReturn = saved
	return body
}

func (l *Lowerer) lowerExpr(e mcore.Expr) clam.Expr {
	if e == nil {
		return clam.Const{Value: nil, Ty: clamtype.Unboxed(clamtype.I32Unit)}
	}
	switch n := e.(type) {
	case *mcore.Const:
		return clam.Const{Value: n.Value, Ty: l.Types.Lower(n.Ty())}

	case *mcore.VarRef:
		return l.lowerVarRef(n)

	case *mcore.PrimApply:
		args := make([]clam.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = l.lowerExpr(a)
		}
		prim := n.Prim
		if opt, isOpt := n.Ty().(clamtype.Option); isOpt && prim == "Pnull" && l.Flags.UseJSBuiltinString {
			if _, isStr := opt.Elem.(clamtype.StringT); isStr {
				prim = "Pnull_string_extern"
			}
		}
		return clam.Lapply{Fn: clam.CallTarget{Kind: clam.Dynamic}, Prim: prim, Args: args, RetTy: l.Types.Lower(n.Ty())}

	case *mcore.AndOr:
		lhs := l.lowerExpr(n.Lhs)
		rhs := l.lowerExpr(n.Rhs)
		boolTy := clamtype.Unboxed(clamtype.I32Bool)
		if n.IsAnd {
			return clam.Lif{Pred: lhs, Ifso: rhs, Ifnot: clam.Const{Value: false, Ty: boolTy}, Ty: boolTy}
		}
		return clam.Lif{Pred: lhs, Ifso: clam.Const{Value: true, Ty: boolTy}, Ifnot: rhs, Ty: boolTy}

	case *mcore.Let:
		rhs := l.lowerExpr(n.Rhs)
		body := l.lowerExpr(n.Body)
		return clam.Llet{Name: clam.Var{Name: n.Name.Name, Ty: l.Types.Lower(n.Rhs.Ty())}, E: rhs, Body: body}

	case *mcore.Letfn:
		return l.lowerLetfn(n.Name.Name, n.Fn, func() clam.Expr { return l.lowerExpr(n.Body) })

	case *mcore.Letrec:
		return l.lowerLetrec(n.Names, n.Fns, func() clam.Expr { return l.lowerExpr(n.Body) })

	case *mcore.Lambda:
		if n.IsRaw {
			// is_raw emits Lget_raw_func without wrapping into a closure
			// (spec §3.2, §9 Open Question): the surrounding type system
			// is trusted to only ever call the address with its raw ABI.
			return l.buildRawLambda(n)
		}
		m := l.buildEscapingMember(l.fresh("lambda"), n)
		var ce clam.Expr = m.closure
		if m.concreteTid != m.abstractTid {
			ce = clam.Lcast{E: ce, TargetType: m.closureTy}
		}
		return ce

	case *mcore.Apply:
		return l.lowerApply(n)

	case *mcore.Tuple:
		fields := make([]clam.Expr, len(n.Elems))
		for i, el := range n.Elems {
			fields[i] = l.lowerExpr(el)
		}
		tid := l.Types.Lower(n.Ty()).Tid
		return clam.Lallocate{Kind: clam.AllocTuple, Tid: tid, Fields: fields}

	case *mcore.Record:
		fields := make([]clam.Expr, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = l.lowerExpr(f.Val)
		}
		tid := l.Types.Lower(n.Ty()).Tid
		return clam.Lallocate{Kind: clam.AllocStruct, Tid: tid, Fields: fields}

	case *mcore.RecordUpdate:
		return l.lowerRecordUpdate(n)

	case *mcore.FieldGet:
		return l.lowerFieldGet(n)

	case *mcore.FieldMutate:
		obj := l.lowerExpr(n.Obj)
		val := l.lowerExpr(n.Val)
		tid := l.Types.Lower(n.Obj.Ty()).Tid
		idx := l.fieldIndex(n.Obj.Ty(), n.FieldName)
		return clam.LsetField{Obj: obj, Tid: tid, Index: idx, Kind: clam.SetStruct, Val: val}

	case *mcore.Constr:
		args := make([]clam.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = l.lowerExpr(a)
		}
		tid := l.Types.ConstructorTid(n.EnumPath, n.Tag, n.Name)
		return clam.Lallocate{Kind: clam.AllocEnum, Tid: tid, Tag: n.Tag, Fields: args}

	case *mcore.ArrayLit:
		elems := make([]clam.Expr, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = l.lowerExpr(el)
		}
		ty := l.Types.Lower(n.Ty())
		return clam.LmakeArray{Tid: ty.Tid, Elems: elems, Ty: ty}

	case *mcore.Assign:
		rhs := l.lowerExpr(n.Rhs)
		return clam.LAssign{V: clam.Var{Name: n.Id.Name, Ty: l.Types.Lower(n.Id.Ty)}, E: rhs}

	case *mcore.Sequence:
		exprs := make([]clam.Expr, len(n.Exprs))
		for i, e2 := range n.Exprs {
			exprs[i] = l.lowerExpr(e2)
		}
		return clam.Lsequence{Exprs: exprs[:len(exprs)-1], LastExpr: exprs[len(exprs)-1]}

	case *mcore.If:
		cond := l.lowerExpr(n.Cond)
		then := l.lowerExpr(n.Then)
		ty := l.Types.Lower(n.Ty())
		var els clam.Expr = clam.Const{Value: nil, Ty: ty}
		if n.Else != nil {
			els = l.lowerExpr(n.Else)
		}
		return clam.Lif{Pred: cond, Ifso: then, Ifnot: els, Ty: ty}

	case *mcore.SwitchConstr:
		return l.lowerSwitchConstr(n)

	case *mcore.SwitchConstant:
		return l.lowerSwitchConstant(n)

	case *mcore.Loop:
		params := make([]clam.Var, len(n.Params))
		for i, p := range n.Params {
			params[i] = clam.Var{Name: p.Id.Name, Ty: l.Types.Lower(p.Ty)}
		}
		args := make([]clam.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = l.lowerExpr(a)
		}
		body := l.lowerExpr(n.Body)
		return clam.Lloop{Params: params, Body: body, Args: args, Label: n.Label, Ty: l.Types.Lower(n.Ty())}

	case *mcore.Break:
		var arg clam.Expr
		if len(n.Args) > 0 {
			arg = l.lowerExpr(n.Args[0])
		}
		return clam.Lbreak{Arg: arg, Label: n.Label}

	case *mcore.Continue:
		args := make([]clam.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = l.lowerExpr(a)
		}
		return clam.Lcontinue{Args: args, Label: n.Label}

	case *mcore.Return:
		return l.rewriteReturn(l.curReturn, n)

	case *mcore.HandleError:
		return l.rewriteHandleError(l.curReturn, n)

	default:
		invariant("lowerExpr", "unhandled mcore expr %T", e)
		panic("unreachable")
	}
}

// lowerVarRef resolves a value-position identifier (spec §4.5). A
// top-level function referenced as a value resolves the same way as any
// other identifier: emitClosureWrappers binds its name, once, to a Closure
// value (captures=[], address=its wrapper) as a global whose init binding
// comes first in init — so an ordinary LVar reference here is enough.
func (l *Lowerer) lowerVarRef(n *mcore.VarRef) clam.Expr {
	return clam.LVar{V: clam.Var{Name: n.Id.Name, Ty: l.Types.Lower(n.Id.Ty)}}
}

// buildRawLambda lowers an is_raw lambda to a bare code pointer (spec
// §3.2 "Lget_raw_func(addr): take the code pointer without wrapping into a
// closure"). It still gets its own top_func_item like any other function
// literal; only the reference to it skips closure wrapping. A raw lambda
// has no env slot, so one whose body has free variables is an invariant
// violation.
func (l *Lowerer) buildRawLambda(n *mcore.Lambda) clam.Expr {
	if fvs := FreeVarsOfFunc(n, map[string]bool{}); len(fvs) > 0 {
		invariant("buildRawLambda", "raw lambda captures %q but has no env slot", fvs[0].Name)
	}
	retTy := l.Types.Lower(n.RetTy)
	body := l.lowerFnBody(n)
	addr := l.Addr.ReserveAddr()
	l.emitTopFn(addr, paramVars(l, n), body, retTy)
	return clam.LgetRawFunc{Addr: addr, Ty: clamtype.Unboxed(clamtype.RefFunc)}
}

// lowerApply resolves a call's target (spec §4.5, §4.7, §4.8): recognized
// intrinsics are rewritten first; a call to a name AddrTable knows about
// dispatches by static address with whatever environment argument its
// calling convention needs prepended; anything else is an ordinary
// dynamic dispatch through the callee's own closure value.
func (l *Lowerer) lowerApply(n *mcore.Apply) clam.Expr {
	if n.Kind == mcore.Normal {
		if vr, isVar := n.Func.(*mcore.VarRef); isVar {
			if tag, found := l.Intrinsics.Lookup(vr.Id.Name); found {
				if res, ok := l.rewriteIntrinsic(tag, n); ok {
					return res
				}
			}
		}
	}

	if n.Kind == mcore.Join {
		vr := n.Func.(*mcore.VarRef)
		args := make([]clam.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = l.lowerExpr(a)
		}
		return clam.Ljoinapply{Name: vr.Id.Name, Args: args}
	}

	args := make([]clam.Expr, len(n.Args))
	for i, a := range n.Args {
		args[i] = l.lowerExpr(a)
	}
	retTy := l.Types.Lower(n.Ty())

	if vr, isVar := n.Func.(*mcore.VarRef); isVar {
		if entry, ok := l.Addr.Lookup(vr.Id.Name); ok {
			switch ent := entry.(type) {
			case *Toplevel:
				return clam.Lapply{Fn: clam.CallTarget{Kind: clam.StaticFn, Addr: ent.Addr}, Args: args, RetTy: retTy}
			case *Local:
				full := prependEnvArg(ent, args)
				return clam.Lapply{Fn: clam.CallTarget{Kind: clam.StaticFn, Addr: ent.Addr}, Args: full, RetTy: retTy}
			}
		}
	}

	callee := l.lowerExpr(n.Func)
	v, wrap := l.bindIfNeeded(callee, l.Types.Lower(n.FuncTy))
	return wrap(clam.Lapply{Fn: clam.CallTarget{Kind: clam.Dynamic, Var: v}, Args: args, RetTy: retTy})
}

// prependEnvArg supplies a well-known local function's captured
// environment as its leading argument (spec §4.8 point 3): no argument for
// a zero-capture function, the captured variable itself for a single
// capture, and the shared struct (bound to the function's own name, or for
// a mutually-recursive bundle to its first member's name) for two or more.
func prependEnvArg(e *Local, args []clam.Expr) []clam.Expr {
	if e.EnvKind == EnvNone {
		return args
	}
	return append([]clam.Expr{clam.LVar{V: *e.EnvVar}}, args...)
}

func (l *Lowerer) lowerRecordUpdate(n *mcore.RecordUpdate) clam.Expr {
	srcTy := l.Types.Lower(n.Src.Ty())
	tid := srcTy.Tid
	info, ok := l.Env.FindAllTypeByPath(namedPath(n.Src.Ty()))
	if !ok {
		invariant("lowerRecordUpdate", "unknown type for %s", n.Src.Ty())
	}
	updated := make(map[string]mcore.Expr, len(n.Fields))
	for _, f := range n.Fields {
		updated[f.Name] = f.Val
	}
	v, wrap := l.bindIfNeeded(l.lowerExpr(n.Src), srcTy)
	fields := make([]clam.Expr, len(info.Fields))
	for i, fld := range info.Fields {
		if val, isUpdated := updated[fld.Name]; isUpdated {
			fields[i] = l.lowerExpr(val)
		} else {
			fields[i] = clam.LgetField{Obj: clam.LVar{V: v}, Tid: tid, Index: i, Kind: clam.GetStruct, Ty: fld.Ty}
		}
	}
	return wrap(clam.Lallocate{Kind: clam.AllocStruct, Tid: tid, Fields: fields})
}

func (l *Lowerer) lowerFieldGet(n *mcore.FieldGet) clam.Expr {
	obj := l.lowerExpr(n.Obj)
	tid := l.Types.Lower(n.Obj.Ty()).Tid
	idx := l.fieldIndex(n.Obj.Ty(), n.FieldName)
	ty := l.Types.Lower(n.Ty())
	return clam.LgetField{Obj: obj, Tid: tid, Index: idx, Kind: clam.GetStruct, Ty: ty}
}

func (l *Lowerer) fieldIndex(st clamtype.SourceType, name string) int {
	info, ok := l.Env.FindAllTypeByPath(namedPath(st))
	if !ok {
		invariant("fieldIndex", "unknown type for field lookup: %s", st)
	}
	for i, f := range info.Fields {
		if f.Name == name {
			return i
		}
	}
	invariant("fieldIndex", "field %q not found on %s", name, st)
	panic("unreachable")
}

func namedPath(st clamtype.SourceType) string {
	if n, ok := st.(clamtype.Named); ok {
		return n.Path
	}
	invariant("namedPath", "record type is not Named: %T", st)
	panic("unreachable")
}

// lowerSwitchConstr lowers a switch over an enum's tag (spec §3.1). Each
// case's binder, if present, unpacks the constructor's sole payload field;
// this core's mcore.SwitchCase carries at most one binder per case, so the
// unpack always reads field index 0.
func (l *Lowerer) lowerSwitchConstr(n *mcore.SwitchConstr) clam.Expr {
	objTy := l.Types.Lower(n.Obj.Ty())
	v, wrap := l.bindIfNeeded(l.lowerExpr(n.Obj), objTy)
	ty := l.Types.Lower(n.Ty())
	cases := make([]clam.SwitchCase, len(n.Cases))
	for i, c := range n.Cases {
		body := l.lowerExpr(c.Body)
		if c.Binder != nil {
			binderTy := l.Types.Lower(c.Binder.Ty)
			get := clam.Expr(clam.LgetField{Obj: clam.LVar{V: v}, Tid: objTy.Tid, Index: 0, Kind: clam.GetEnum, Ty: binderTy})
			body = clam.Llet{Name: clam.Var{Name: c.Binder.Name, Ty: binderTy}, E: get, Body: body}
		}
		cases[i] = clam.SwitchCase{Tag: c.Tag, E: body}
	}
	var def clam.Expr
	if n.Default != nil {
		def = l.lowerExpr(n.Default)
	}
	return wrap(clam.Lswitch{Obj: v, Cases: cases, Default: def, Ty: ty})
}

func (l *Lowerer) lowerSwitchConstant(n *mcore.SwitchConstant) clam.Expr {
	obj := l.lowerExpr(n.Obj)
	ty := l.Types.Lower(n.Ty())
	objTy := l.Types.Lower(n.Obj.Ty())
	var def clam.Expr
	if n.Default != nil {
		def = l.lowerExpr(n.Default)
	}
	if objTy.Kind == clamtype.RefString {
		cases := make([]clam.StringCase, len(n.Cases))
		for i, c := range n.Cases {
			cases[i] = clam.StringCase{Value: c.Value.(string), E: l.lowerExpr(c.Body)}
		}
		return clam.Lswitchstring{Obj: obj, Cases: cases, Default: def, Ty: ty}
	}
	cases := make([]clam.IntCase, len(n.Cases))
	for i, c := range n.Cases {
		cases[i] = clam.IntCase{Value: constIntValue(c.Value), E: l.lowerExpr(c.Body)}
	}
	return clam.Lswitchint{Obj: obj, Cases: cases, Default: def, Ty: ty}
}

// constIntValue normalizes a switch_constant case value (any integral,
// char, or bool literal the front-end may have attached) to the plain int
// Lswitchint expects as its discriminant.
func constIntValue(v any) int {
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case rune:
		return int(x)
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		invariant("constIntValue", "non-integral switch case value %v (%T)", v, v)
		panic("unreachable")
	}
}
