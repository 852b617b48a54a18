package lower

import "github.com/moonbitlang/moonbit-compiler/internal/mcore"

// EscapeSet is the pre-pass result of spec §4.3: every identifier that
// appears as a first-class value anywhere in the program (a variable
// reference outside the call-target position of a Normal/Async apply).
// Membership means the identifier must be lowered as an escaping
// (non-well-known) function with an abstract closure interface; absence
// means it may be lowered well-known, calling convention avoiding a
// closure object entirely.
type EscapeSet map[string]bool

func (s EscapeSet) Escapes(name string) bool { return s[name] }

// ComputeEscapeSet walks the whole program once, before any function body
// is otherwise lowered (spec §2 data flow: "MCore program -> EscapeSet
// pre-pass").
func ComputeEscapeSet(prog *mcore.Program) EscapeSet {
	s := make(EscapeSet)
	for _, item := range prog.Items {
		switch it := item.(type) {
		case *mcore.TopLet:
			escWalk(it.Rhs, s)
		case *mcore.TopFn:
			escWalk(it.Fn.Body, s)
		case *mcore.TopExpr:
			escWalk(it.E, s)
		case *mcore.TopStub:
			// foreign stubs have no body to walk
		}
	}
	if prog.MainFn != nil {
		escWalk(prog.MainFn.Body, s)
	}
	return s
}

// escWalk mirrors walkFreeVars' traversal shape but instead of tracking
// bound/free, it records every *value-position* variable reference,
// regardless of whether it is lexically local or a top-level name: the
// same mechanism identifies both "a local function is captured into a
// closure" and "a top-level function is used as a value" (spec §4.3,
// §8.2 scenario 2).
func escWalk(e mcore.Expr, s EscapeSet) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *mcore.Const:
	case *mcore.VarRef:
		if !n.Id.Kind.IsGlobal() {
			s[n.Id.Name] = true
		}
	case *mcore.PrimApply:
		for _, a := range n.Args {
			escWalk(a, s)
		}
	case *mcore.AndOr:
		escWalk(n.Lhs, s)
		escWalk(n.Rhs, s)
	case *mcore.Let:
		escWalk(n.Rhs, s)
		escWalk(n.Body, s)
	case *mcore.Letfn:
		escWalk(n.Fn.Body, s)
		escWalk(n.Body, s)
	case *mcore.Letrec:
		for _, fn := range n.Fns {
			escWalk(fn.Body, s)
		}
		escWalk(n.Body, s)
	case *mcore.Lambda:
		escWalk(n.Body, s)
	case *mcore.Apply:
		// The callee in call-target position (Normal, Async, or Join)
		// never escapes on its own account; only walk it when it is not
		// a bare identifier (e.g. an immediately-applied lambda).
		if _, ok := n.Func.(*mcore.VarRef); !ok {
			escWalk(n.Func, s)
		}
		for _, a := range n.Args {
			escWalk(a, s)
		}
	case *mcore.Tuple:
		for _, el := range n.Elems {
			escWalk(el, s)
		}
	case *mcore.Record:
		for _, f := range n.Fields {
			escWalk(f.Val, s)
		}
	case *mcore.RecordUpdate:
		escWalk(n.Src, s)
		for _, f := range n.Fields {
			escWalk(f.Val, s)
		}
	case *mcore.FieldGet:
		escWalk(n.Obj, s)
	case *mcore.FieldMutate:
		escWalk(n.Obj, s)
		escWalk(n.Val, s)
	case *mcore.Constr:
		for _, a := range n.Args {
			escWalk(a, s)
		}
	case *mcore.ArrayLit:
		for _, el := range n.Elems {
			escWalk(el, s)
		}
	case *mcore.Assign:
		escWalk(n.Rhs, s)
	case *mcore.Sequence:
		for _, e2 := range n.Exprs {
			escWalk(e2, s)
		}
	case *mcore.If:
		escWalk(n.Cond, s)
		escWalk(n.Then, s)
		escWalk(n.Else, s)
	case *mcore.SwitchConstr:
		escWalk(n.Obj, s)
		for _, c := range n.Cases {
			escWalk(c.Body, s)
		}
		escWalk(n.Default, s)
	case *mcore.SwitchConstant:
		escWalk(n.Obj, s)
		for _, c := range n.Cases {
			escWalk(c.Body, s)
		}
		escWalk(n.Default, s)
	case *mcore.Loop:
		for _, a := range n.Args {
			escWalk(a, s)
		}
		escWalk(n.Body, s)
	case *mcore.Break:
		for _, a := range n.Args {
			escWalk(a, s)
		}
	case *mcore.Continue:
		for _, a := range n.Args {
			escWalk(a, s)
		}
	case *mcore.Return:
		escWalk(n.Value, s)
	case *mcore.HandleError:
		escWalk(n.Inner, s)
	default:
		invariant("ComputeEscapeSet", "unhandled mcore expr %T", e)
	}
}
