package lower

import (
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/mcore"
)

// FreeVar is one entry of a FreeVars result: an identifier name paired
// with the type captured at its use site.
type FreeVar struct {
	Name string
	Ty   clamtype.SourceType
}

// freeVarSet accumulates free variables in first-occurrence order so that
// capture lists are deterministic (spec §5) and so ClosureLowering's
// "captures list order matches the corresponding capture struct field
// order bit-for-bit" invariant (spec §3.3) has a canonical order to use.
type freeVarSet struct {
	order []string
	byName map[string]clamtype.SourceType
}

func newFreeVarSet() *freeVarSet {
	return &freeVarSet{byName: make(map[string]clamtype.SourceType)}
}

func (s *freeVarSet) add(name string, ty clamtype.SourceType) {
	if _, ok := s.byName[name]; ok {
		return
	}
	s.byName[name] = ty
	s.order = append(s.order, name)
}

func (s *freeVarSet) list() []FreeVar {
	out := make([]FreeVar, len(s.order))
	for i, n := range s.order {
		out[i] = FreeVar{Name: n, Ty: s.byName[n]}
	}
	return out
}

// FreeVars computes the free identifiers of e under the given exclusion
// set (spec §4.1). exclude is mutated internally via copy-on-scope-entry,
// never by the caller's own map.
//
//   - letrec and loop introduce scopes whose bound names are excluded from
//     the free set while walking their bodies.
//   - switch_constr case binders are scope-extended only within their own
//     case.
//   - package-qualified and local-method identifiers are ignored: they
//     name globals, never captures (mcore.IdentKind.IsGlobal).
//   - apply{kind=Join} does not add its callee to the free set: joins are
//     second-class (GLOSSARY "Join") and never escape as values.
//   - every other apply kind adds the callee identifier, typed with the
//     function type captured at the call site.
func FreeVars(e mcore.Expr, exclude map[string]bool) []FreeVar {
	fv := newFreeVarSet()
	walkFreeVars(e, cloneSet(exclude), fv)
	return fv.list()
}

// FreeVarsOfFunc computes FreeVars(fn.Body, exclude) with fn's own
// parameters additionally excluded, matching spec §4.1's "free_vars(fn,
// exclude)" signature where fn is the whole function literal.
func FreeVarsOfFunc(fn *mcore.Lambda, exclude map[string]bool) []FreeVar {
	full := cloneSet(exclude)
	for _, p := range fn.Params {
		full[p.Id.Name] = true
	}
	return FreeVars(fn.Body, full)
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s)+4)
	for k, v := range s {
		out[k] = v
	}
	return out
}

func withBound(exclude map[string]bool, names ...string) map[string]bool {
	out := cloneSet(exclude)
	for _, n := range names {
		out[n] = true
	}
	return out
}

func walkFreeVars(e mcore.Expr, bound map[string]bool, fv *freeVarSet) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *mcore.Const:
		// no identifiers

	case *mcore.VarRef:
		addIdentIfFree(n.Id, bound, fv)

	case *mcore.PrimApply:
		for _, a := range n.Args {
			walkFreeVars(a, bound, fv)
		}

	case *mcore.AndOr:
		walkFreeVars(n.Lhs, bound, fv)
		walkFreeVars(n.Rhs, bound, fv)

	case *mcore.Let:
		walkFreeVars(n.Rhs, bound, fv)
		walkFreeVars(n.Body, withBound(bound, n.Name.Name), fv)

	case *mcore.Letfn:
		walkLambda(n.Fn, bound, fv)
		walkFreeVars(n.Body, withBound(bound, n.Name.Name), fv)

	case *mcore.Letrec:
		names := make([]string, len(n.Names))
		for i, id := range n.Names {
			names[i] = id.Name
		}
		inner := withBound(bound, names...)
		for _, fn := range n.Fns {
			walkLambda(fn, inner, fv)
		}
		walkFreeVars(n.Body, inner, fv)

	case *mcore.Lambda:
		walkLambda(n, bound, fv)

	case *mcore.Apply:
		switch n.Kind {
		case mcore.Join:
			// joins are second-class: the callee identifier is never
			// added to the free set (spec §4.1).
			if vr, ok := n.Func.(*mcore.VarRef); !ok || vr == nil {
				walkFreeVars(n.Func, bound, fv)
			}
		case mcore.Normal, mcore.Async:
			if vr, ok := n.Func.(*mcore.VarRef); ok {
				addIdentWithType(vr.Id, n.FuncTy, bound, fv)
			} else {
				walkFreeVars(n.Func, bound, fv)
			}
		}
		for _, a := range n.Args {
			walkFreeVars(a, bound, fv)
		}

	case *mcore.Tuple:
		for _, el := range n.Elems {
			walkFreeVars(el, bound, fv)
		}

	case *mcore.Record:
		for _, f := range n.Fields {
			walkFreeVars(f.Val, bound, fv)
		}

	case *mcore.RecordUpdate:
		walkFreeVars(n.Src, bound, fv)
		for _, f := range n.Fields {
			walkFreeVars(f.Val, bound, fv)
		}

	case *mcore.FieldGet:
		walkFreeVars(n.Obj, bound, fv)

	case *mcore.FieldMutate:
		walkFreeVars(n.Obj, bound, fv)
		walkFreeVars(n.Val, bound, fv)

	case *mcore.Constr:
		for _, a := range n.Args {
			walkFreeVars(a, bound, fv)
		}

	case *mcore.ArrayLit:
		for _, el := range n.Elems {
			walkFreeVars(el, bound, fv)
		}

	case *mcore.Assign:
		addIdentIfFree(n.Id, bound, fv)
		walkFreeVars(n.Rhs, bound, fv)

	case *mcore.Sequence:
		for _, e2 := range n.Exprs {
			walkFreeVars(e2, bound, fv)
		}

	case *mcore.If:
		walkFreeVars(n.Cond, bound, fv)
		walkFreeVars(n.Then, bound, fv)
		walkFreeVars(n.Else, bound, fv)

	case *mcore.SwitchConstr:
		walkFreeVars(n.Obj, bound, fv)
		for _, c := range n.Cases {
			caseBound := bound
			if c.Binder != nil {
				caseBound = withBound(bound, c.Binder.Name)
			}
			walkFreeVars(c.Body, caseBound, fv)
		}
		walkFreeVars(n.Default, bound, fv)

	case *mcore.SwitchConstant:
		walkFreeVars(n.Obj, bound, fv)
		for _, c := range n.Cases {
			walkFreeVars(c.Body, bound, fv)
		}
		walkFreeVars(n.Default, bound, fv)

	case *mcore.Loop:
		names := make([]string, len(n.Params))
		for i, p := range n.Params {
			names[i] = p.Id.Name
		}
		for _, a := range n.Args {
			walkFreeVars(a, bound, fv)
		}
		walkFreeVars(n.Body, withBound(bound, names...), fv)

	case *mcore.Break:
		for _, a := range n.Args {
			walkFreeVars(a, bound, fv)
		}

	case *mcore.Continue:
		for _, a := range n.Args {
			walkFreeVars(a, bound, fv)
		}

	case *mcore.Return:
		walkFreeVars(n.Value, bound, fv)

	case *mcore.HandleError:
		walkFreeVars(n.Inner, bound, fv)

	default:
		invariant("FreeVars", "unhandled mcore expr %T", e)
	}
}

func walkLambda(l *mcore.Lambda, bound map[string]bool, fv *freeVarSet) {
	if l == nil {
		return
	}
	names := make([]string, len(l.Params))
	for i, p := range l.Params {
		names[i] = p.Id.Name
	}
	walkFreeVars(l.Body, withBound(bound, names...), fv)
}

func addIdentIfFree(id mcore.Ident, bound map[string]bool, fv *freeVarSet) {
	addIdentWithType(id, id.Ty, bound, fv)
}

func addIdentWithType(id mcore.Ident, ty clamtype.SourceType, bound map[string]bool, fv *freeVarSet) {
	if id.Kind.IsGlobal() {
		return
	}
	if bound[id.Name] {
		return
	}
	fv.add(id.Name, ty)
}
