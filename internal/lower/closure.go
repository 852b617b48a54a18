package lower

import (
	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/mcore"
)

// ClosureLowering is spec §4.8: per local-function-group decision between
// well-known (statically callable, no closure object) and escaping
// (first-class, needs an abstract closure witness), synthesizing whatever
// capture carrier each choice requires.
//
// lowerLetfn / lowerLetrec are the two mcore entry points; both bottom out
// in lowerSccGroup once SccGrouper has partitioned a letrec's bindings.

func (l *Lowerer) lowerLetfn(name string, fn *mcore.Lambda, cont func() clam.Expr) clam.Expr {
	grp := SccGroup{Kind: NonRec, Names: []string{name}, Fns: []*mcore.Lambda{fn}}
	return l.lowerSccGroup(grp, cont)
}

func (l *Lowerer) lowerLetrec(ids []mcore.Ident, fns []*mcore.Lambda, cont func() clam.Expr) clam.Expr {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	groups := GroupSCCs(names, fns)

	// GroupSCCs emits groups such that a later group may refer to an
	// earlier one but never the reverse (spec §4.2), so the nesting must
	// fold right-to-left: the last group sits nearest the continuation.
	build := cont
	for i := len(groups) - 1; i >= 0; i-- {
		grp := groups[i]
		next := build
		build = func() clam.Expr { return l.lowerSccGroup(grp, next) }
	}
	return build()
}

func (l *Lowerer) lowerSccGroup(grp SccGroup, cont func() clam.Expr) clam.Expr {
	if len(grp.Names) == 1 {
		name, fn := grp.Names[0], grp.Fns[0]
		if l.Esc.Escapes(name) {
			if grp.Kind == Rec {
				// Self-recursive and escaping: the knot is tied by
				// Lletrec, which lets the allocated closure capture
				// itself by name (spec §4.8 point 1, §3.3 "every bound
				// function may refer to ... itself via a shared capture
				// structure").
				return l.lowerEscapingBundle(grp, cont)
			}
			return l.lowerEscapingSingle(name, fn, cont)
		}
		return l.lowerWellKnownSingle(name, fn, grp.Kind == Rec, cont)
	}

	anyEsc := false
	for _, n := range grp.Names {
		if l.Esc.Escapes(n) {
			anyEsc = true
			break
		}
	}
	if anyEsc {
		return l.lowerEscapingBundle(grp, cont)
	}
	return l.lowerWellKnownBundle(grp, cont)
}

// lowerWellKnownSingle implements spec §4.8 point 3: zero, one, or many
// outside captures dictate three distinct calling conventions, none of
// which allocate a closure object.
func (l *Lowerer) lowerWellKnownSingle(name string, fn *mcore.Lambda, isRec bool, cont func() clam.Expr) clam.Expr {
	exclude := map[string]bool{}
	if isRec {
		exclude[name] = true
	}
	fvs := FreeVarsOfFunc(fn, exclude)
	retTy := l.Types.Lower(fn.RetTy)
	unit := clamtype.Unboxed(clamtype.I32Unit)

	switch len(fvs) {
	case 0:
		addr := l.Addr.InstallLocal(name, unit, EnvNone, nil)
		body := l.lowerFnBody(fn)
		l.emitTopFn(addr, paramVars(l, fn), body, retTy)
		return clam.Llet{
			Name: clam.Var{Name: name, Ty: unit},
			E:    clam.Const{Value: nil, Ty: unit},
			Body: cont(),
		}

	case 1:
		fvTy := l.Types.Lower(fvs[0].Ty)
		envVar := clam.Var{Name: fvs[0].Name, Ty: fvTy}
		addr := l.Addr.InstallLocal(name, fvTy, EnvSingle, &envVar)
		body := l.lowerFnBody(fn)
		l.emitTopFn(addr, append([]clam.Var{envVar}, paramVars(l, fn)...), body, retTy)
		return clam.Llet{
			Name: clam.Var{Name: name, Ty: unit},
			E:    clam.Const{Value: nil, Ty: unit},
			Body: cont(),
		}

	default:
		fields := make([]clamtype.Field, len(fvs))
		for i, fvv := range fvs {
			fields[i] = clamtype.Field{Name: fvv.Name, Ty: l.Types.Lower(fvv.Ty)}
		}
		tid := l.Types.Defs.NewStruct(fields)
		envTy := clamtype.RefTo(clamtype.Ref, tid)
		envVar := clam.Var{Name: name, Ty: envTy}
		addr := l.Addr.InstallLocal(name, envTy, EnvShared, &envVar)

		body := l.lowerFnBody(fn)
		body = l.wrapStructFieldUnpack(envVar, tid, fvs, body)
		l.emitTopFn(addr, append([]clam.Var{envVar}, paramVars(l, fn)...), body, retTy)

		allocFields := make([]clam.Expr, len(fvs))
		for i, fvv := range fvs {
			allocFields[i] = clam.LVar{V: clam.Var{Name: fvv.Name, Ty: l.Types.Lower(fvv.Ty)}}
		}
		return clam.Llet{
			Name: envVar,
			E:    clam.Lallocate{Kind: clam.AllocStruct, Tid: tid, Fields: allocFields},
			Body: cont(),
		}
	}
}

// lowerWellKnownBundle implements spec §4.8 point 4: a mutually recursive
// group with no escaping member shares one late-init capture struct,
// holding only the free variables captured from outside the bundle — peer
// calls within the bundle still resolve by direct address, never through
// this struct.
func (l *Lowerer) lowerWellKnownBundle(grp SccGroup, cont func() clam.Expr) clam.Expr {
	member := map[string]bool{}
	for _, n := range grp.Names {
		member[n] = true
	}
	ext := newFreeVarSet()
	for _, fn := range grp.Fns {
		for _, fvv := range FreeVarsOfFunc(fn, member) {
			ext.add(fvv.Name, fvv.Ty)
		}
	}
	extFvs := ext.list()

	fields := make([]clamtype.Field, len(extFvs))
	for i, e := range extFvs {
		fields[i] = clamtype.Field{Name: e.Name, Ty: l.Types.Lower(e.Ty)}
	}
	lateTid := l.Types.Defs.NewLateInitStruct(fields)
	envTy := clamtype.RefTo(clamtype.Ref, lateTid)

	// Every member takes the one shared env under the first member's name,
	// so a peer call inside any member's body passes the env it already holds.
	envVar := clam.Var{Name: grp.Names[0], Ty: envTy}
	for _, n := range grp.Names {
		ev := envVar
		l.Addr.InstallLocal(n, envTy, EnvShared, &ev)
	}

	for i, n := range grp.Names {
		fn := grp.Fns[i]
		entry, _ := l.Addr.Lookup(n)
		local := entry.(*Local)

		body := l.lowerFnBody(fn)
		body = l.wrapStructFieldUnpack(envVar, lateTid, extFvs, body)
		l.emitTopFn(local.Addr, append([]clam.Var{envVar}, paramVars(l, fn)...), body, l.Types.Lower(fn.RetTy))
	}

	captures := varsOf(l, extFvs)
	names := make([]clam.Var, len(grp.Names))
	fns := make([]*clam.Closure, len(grp.Names))
	for i, n := range grp.Names {
		names[i] = clam.Var{Name: n, Ty: envTy}
		fns[i] = &clam.Closure{
			Captures: captures,
			Address:  clam.ClosureAddr{Kind: clam.WellKnownMutRec},
			Tid:      lateTid,
		}
	}
	return clam.Lletrec{Names: names, Fns: fns, Body: cont()}
}

// lowerEscapingSingle implements spec §4.8 point 2 for a non-recursive
// escaping function: a plain Llet binds the allocated closure value.
func (l *Lowerer) lowerEscapingSingle(name string, fn *mcore.Lambda, cont func() clam.Expr) clam.Expr {
	m := l.buildEscapingMember(name, fn)
	e := clam.Expr(m.closure)
	if m.concreteTid != m.abstractTid {
		e = clam.Lcast{E: e, TargetType: m.closureTy}
	}
	return clam.Llet{Name: clam.Var{Name: name, Ty: m.closureTy}, E: e, Body: cont()}
}

// lowerEscapingBundle handles any group (size 1 or more) containing at
// least one escaping member: every member's closure is allocated inside a
// single Lletrec, so a member may capture its own name or a sibling's by
// ordinary free-variable reference, resolved once Lletrec ties the knot
// (spec §4.8 point 1, §3.3).
func (l *Lowerer) lowerEscapingBundle(grp SccGroup, cont func() clam.Expr) clam.Expr {
	names := make([]clam.Var, len(grp.Names))
	fns := make([]*clam.Closure, len(grp.Names))
	for i, n := range grp.Names {
		m := l.buildEscapingMember(n, grp.Fns[i])
		names[i] = clam.Var{Name: n, Ty: m.closureTy}
		fns[i] = m.closure
	}
	return clam.Lletrec{Names: names, Fns: fns, Body: cont()}
}

type escapingMember struct {
	closureTy   clamtype.Type
	closure     *clam.Closure
	concreteTid clamtype.Tid
	abstractTid clamtype.Tid
}

// buildEscapingMember emits the top-level code-pointer function for an
// escaping local and returns the Closure value its binder should hold. It
// never excludes the function's own name (or, for a bundle, any sibling's)
// from the free-variable walk: self/peer references simply become ordinary
// captures, legal because the enclosing Lletrec binds every member's name
// simultaneously.
func (l *Lowerer) buildEscapingMember(name string, fn *mcore.Lambda) escapingMember {
	fvs := FreeVarsOfFunc(fn, map[string]bool{})

	paramTys := make([]clamtype.SourceType, len(fn.Params))
	for i, p := range fn.Params {
		paramTys[i] = p.Ty
	}
	sig := clamtype.Func{Params: paramTys, Ret: fn.RetTy, IsAsync: fn.IsAsync}
	lowSig := l.Types.LowerFnSig(sig)
	abstractTid := l.Types.Defs.InternAbstractClosure(lowSig)
	closureTy := clamtype.RefTo(clamtype.Ref, abstractTid)

	concreteTid := abstractTid
	envTy := closureTy
	if len(fvs) > 0 {
		fields := make([]clamtype.Field, len(fvs))
		for i, fvv := range fvs {
			fields[i] = clamtype.Field{Name: fvv.Name, Ty: l.Types.Lower(fvv.Ty)}
		}
		concreteTid = l.Types.Defs.NewClosure(lowSig, fields)
		envTy = clamtype.RefTo(clamtype.Ref, concreteTid)
	}

	envParam := clam.Var{Name: l.fresh("env"), Ty: envTy}
	body := l.lowerFnBody(fn)
	if len(fvs) > 0 {
		body = l.wrapClosureFieldUnpack(envParam, fvs, body)
	}
	addr := l.Addr.ReserveAddr()
	l.emitTopFn(addr, append([]clam.Var{envParam}, paramVars(l, fn)...), body, l.Types.Lower(fn.RetTy))

	closure := &clam.Closure{
		Captures: varsOf(l, fvs),
		Address:  clam.ClosureAddr{Kind: clam.NormalAddr, Addr: addr},
		Tid:      concreteTid,
	}
	return escapingMember{closureTy: closureTy, closure: closure, concreteTid: concreteTid, abstractTid: abstractTid}
}

func (l *Lowerer) emitTopFn(addr clam.Address, params []clam.Var, body clam.Expr, retTy clamtype.Type) {
	l.topFns = append(l.topFns, clam.TopFuncItem{
		Binder: addr,
		Kind:   clam.TopPrivate,
		Fn:     clam.FnSig{Params: params, Body: body, ReturnType: retTy},
	})
}

func (l *Lowerer) wrapStructFieldUnpack(env clam.Var, tid clamtype.Tid, fvs []FreeVar, inner clam.Expr) clam.Expr {
	for i := len(fvs) - 1; i >= 0; i-- {
		fvv := fvs[i]
		ty := l.Types.Lower(fvv.Ty)
		get := clam.Expr(clam.LgetField{Obj: clam.LVar{V: env}, Tid: tid, Index: i, Kind: clam.GetStruct, Ty: ty})
		inner = clam.Llet{Name: clam.Var{Name: fvv.Name, Ty: ty}, E: get, Body: inner}
	}
	return inner
}

func (l *Lowerer) wrapClosureFieldUnpack(env clam.Var, fvs []FreeVar, inner clam.Expr) clam.Expr {
	for i := len(fvs) - 1; i >= 0; i-- {
		fvv := fvs[i]
		ty := l.Types.Lower(fvv.Ty)
		get := clam.Expr(clam.LclosureField{Obj: clam.LVar{V: env}, Index: i, Ty: ty})
		inner = clam.Llet{Name: clam.Var{Name: fvv.Name, Ty: ty}, E: get, Body: inner}
	}
	return inner
}

func paramVars(l *Lowerer, fn *mcore.Lambda) []clam.Var {
	out := make([]clam.Var, len(fn.Params))
	for i, p := range fn.Params {
		out[i] = clam.Var{Name: p.Id.Name, Ty: l.Types.Lower(p.Ty)}
	}
	return out
}

func varsOf(l *Lowerer, fvs []FreeVar) []clam.Var {
	out := make([]clam.Var, len(fvs))
	for i, fvv := range fvs {
		out[i] = clam.Var{Name: fvv.Name, Ty: l.Types.Lower(fvv.Ty)}
	}
	return out
}
