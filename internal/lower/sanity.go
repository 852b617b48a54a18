package lower

import "github.com/moonbitlang/moonbit-compiler/internal/clam"

// runSanity walks a finished clam.Prog and checks spec §4.10's invariants:
// every Lvar/Lassign target is lexically bound, every Ljoinapply has an
// enclosing Ljoinlet of matching name and arity, every Closure capture is
// lexically bound, and every address referenced by a call or closure has
// exactly one TopFuncItem definition. A closure's captures list is not
// compared against the field order of its capture struct.
// It runs unconditionally at the end of TranslProg; any violation panics
// via invariant, exactly like every other precondition failure in this
// core (spec §7 regime 2 "no recovery; hard abort").
func runSanity(p *clam.Prog) {
	addrs := make(map[clam.Address]bool, len(p.Fns))
	for _, fn := range p.Fns {
		if addrs[fn.Binder] {
			invariant("sanity", "address %d is bound by more than one top_func_item", fn.Binder)
		}
		addrs[fn.Binder] = true
	}

	for _, fn := range p.Fns {
		checkFn(fn.Fn, addrs)
	}
	if p.Main != nil {
		checkFn(*p.Main, addrs)
	}
}

// scope tracks lexically bound names (sc) and enclosing join points (joins,
// keyed by name to their declared arity) while sanity walks one function
// body.
type scope struct {
	parent *scope
	names  map[string]bool
	joins  map[string]int
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: map[string]bool{}, joins: map[string]int{}}
}

func (s *scope) bound(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.names[name] {
			return true
		}
	}
	return false
}

func (s *scope) joinArity(name string) (int, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if n, ok := sc.joins[name]; ok {
			return n, true
		}
	}
	return 0, false
}

func checkFn(sig clam.FnSig, addrs map[clam.Address]bool) {
	s := newScope(nil)
	for _, p := range sig.Params {
		s.names[p.Name] = true
	}
	checkExpr(sig.Body, s, addrs)
}

func checkExpr(e clam.Expr, s *scope, addrs map[clam.Address]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case clam.Const:

	case clam.LVar:
		if !s.bound(n.V.Name) {
			invariant("sanity", "lvar %q referenced out of scope", n.V.Name)
		}

	case clam.LAssign:
		if !s.bound(n.V.Name) {
			invariant("sanity", "lassign %q targets an unbound name", n.V.Name)
		}
		checkExpr(n.E, s, addrs)

	case clam.Llet:
		checkExpr(n.E, s, addrs)
		inner := newScope(s)
		inner.names[n.Name.Name] = true
		checkExpr(n.Body, inner, addrs)

	case clam.Lletrec:
		inner := newScope(s)
		for _, nm := range n.Names {
			inner.names[nm.Name] = true
		}
		for _, fn := range n.Fns {
			checkClosure(fn, inner, addrs)
		}
		checkExpr(n.Body, inner, addrs)

	case clam.Lsequence:
		for _, ex := range n.Exprs {
			checkExpr(ex, s, addrs)
		}
		checkExpr(n.LastExpr, s, addrs)

	case clam.Lif:
		checkExpr(n.Pred, s, addrs)
		checkExpr(n.Ifso, s, addrs)
		checkExpr(n.Ifnot, s, addrs)

	case clam.Lloop:
		inner := newScope(s)
		for _, p := range n.Params {
			inner.names[p.Name] = true
		}
		for _, a := range n.Args {
			checkExpr(a, s, addrs)
		}
		checkExpr(n.Body, inner, addrs)

	case clam.Lbreak:
		checkExpr(n.Arg, s, addrs)

	case clam.Lcontinue:
		for _, a := range n.Args {
			checkExpr(a, s, addrs)
		}

	case clam.Ljoinlet:
		joinScope := newScope(s)
		for _, p := range n.Params {
			joinScope.names[p.Name] = true
		}
		checkExpr(n.E, joinScope, addrs)
		bodyScope := newScope(s)
		bodyScope.joins[n.Name] = len(n.Params)
		checkExpr(n.Body, bodyScope, addrs)

	case clam.Ljoinapply:
		arity, ok := s.joinArity(n.Name)
		if !ok {
			invariant("sanity", "joinapply %q has no enclosing joinlet", n.Name)
		}
		if arity != len(n.Args) {
			invariant("sanity", "joinapply %q passes %d args, joinlet declares %d", n.Name, len(n.Args), arity)
		}
		for _, a := range n.Args {
			checkExpr(a, s, addrs)
		}

	case clam.Lswitch:
		if !s.bound(n.Obj.Name) {
			invariant("sanity", "switch scrutinee %q is out of scope", n.Obj.Name)
		}
		for _, c := range n.Cases {
			checkExpr(c.E, s, addrs)
		}
		checkExpr(n.Default, s, addrs)

	case clam.Lswitchint:
		checkExpr(n.Obj, s, addrs)
		for _, c := range n.Cases {
			checkExpr(c.E, s, addrs)
		}
		checkExpr(n.Default, s, addrs)

	case clam.Lswitchstring:
		checkExpr(n.Obj, s, addrs)
		for _, c := range n.Cases {
			checkExpr(c.E, s, addrs)
		}
		checkExpr(n.Default, s, addrs)

	case clam.Lapply:
		if n.Fn.Kind == clam.StaticFn && !addrs[n.Fn.Addr] {
			invariant("sanity", "apply targets address %d with no top_func_item", n.Fn.Addr)
		}
		if n.Fn.Kind == clam.Dynamic && n.Fn.Var.Name != "" && !s.bound(n.Fn.Var.Name) {
			invariant("sanity", "dynamic apply callee %q is out of scope", n.Fn.Var.Name)
		}
		if n.Fn.Kind == clam.Object {
			checkExpr(n.Fn.Obj, s, addrs)
		}
		for _, a := range n.Args {
			checkExpr(a, s, addrs)
		}

	case clam.LstubCall:
		if !addrs[n.Fn] {
			invariant("sanity", "stub call targets address %d with no top_func_item", n.Fn)
		}
		for _, a := range n.Args {
			checkExpr(a, s, addrs)
		}

	case clam.Lallocate:
		for _, f := range n.Fields {
			checkExpr(f, s, addrs)
		}

	case *clam.Closure:
		checkClosure(n, s, addrs)

	case clam.LgetRawFunc:
		if !addrs[n.Addr] {
			invariant("sanity", "get_raw_func targets address %d with no top_func_item", n.Addr)
		}

	case clam.LgetField:
		checkExpr(n.Obj, s, addrs)

	case clam.LsetField:
		checkExpr(n.Obj, s, addrs)
		checkExpr(n.Val, s, addrs)

	case clam.LclosureField:
		checkExpr(n.Obj, s, addrs)

	case clam.LmakeArray:
		for _, el := range n.Elems {
			checkExpr(el, s, addrs)
		}

	case clam.LarrayGetItem:
		checkExpr(n.Arr, s, addrs)
		checkExpr(n.Idx, s, addrs)

	case clam.LarraySetItem:
		checkExpr(n.Arr, s, addrs)
		checkExpr(n.Idx, s, addrs)
		checkExpr(n.Val, s, addrs)

	case clam.Lcast:
		checkExpr(n.E, s, addrs)

	case clam.Lcatch:
		checkExpr(n.Body, s, addrs)
		checkExpr(n.OnException, s, addrs)

	case clam.Lreturn:
		checkExpr(n.E, s, addrs)

	case clam.Levent:
		checkExpr(n.E, s, addrs)

	default:
		invariant("sanity", "unhandled clam expr %T", e)
	}
}

// checkClosure checks that each of a closure's captures is bound in the
// enclosing scope and that a NormalAddr closure's code pointer has a
// definition. It does not compare the captures list with the field order of
// the capture struct behind the closure's tid.
func checkClosure(c *clam.Closure, s *scope, addrs map[clam.Address]bool) {
	if c.Address.Kind == clam.NormalAddr && !addrs[c.Address.Addr] {
		invariant("sanity", "closure targets address %d with no top_func_item", c.Address.Addr)
	}
	for _, fv := range c.Captures {
		if !s.bound(fv.Name) {
			invariant("sanity", "closure capture %q referenced out of scope", fv.Name)
		}
	}
}
