package lower

import (
	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/mcore"
)

// okTag / errTag are the two Result<T,E> variant discriminants this
// core always lays the enum out with (Ok=0, Err=1) — see TypeLowering's
// Result lowering in typelowering.go.
const (
	okTag  = 0
	errTag = 1
)

// returnState is ReturnXfm's per-function accumulator (spec §4.6): each
// join is emitted only if its need_* flag was set while lowering the
// body.
type returnState struct {
	needReturn bool
	needRaise  bool

	// isResult is true when the enclosing function's declared return type
	// is the built-in Result<T,E> sum, in which case a plain `return e`
	// wraps e into Ok and an error `return e` wraps it into Err via a
	// dedicated raise join (spec §4.6).
	isResult bool
	okSrcTy  clamtype.SourceType
	errSrcTy clamtype.SourceType
	resultTid clamtype.Tid

	plainRetTy clamtype.SourceType // meaningful when !isResult
}

func newReturnState(retTy clamtype.SourceType, tl *TypeLowering) *returnState {
	if res, ok := retTy.(clamtype.Result); ok {
		rs := &returnState{isResult: true, okSrcTy: res.Ok, errSrcTy: res.Err}
		rs.resultTid = tl.Lower(res).Tid
		return rs
	}
	return &returnState{plainRetTy: retTy}
}

// rewriteReturn implements spec §4.6's core case: `return e` -> a join
// application, targeting "return" for a plain return and "raise" for an
// error-propagating one. The join's own body (constructed later by
// closeJoins) does the Ok/Err wrapping, so the argument here is always the
// raw value.
func (l *Lowerer) rewriteReturn(rs *returnState, n *mcore.Return) clam.Expr {
	val := l.lowerExpr(n.Value)
	if !n.IsError {
		rs.needReturn = true
		return clam.Ljoinapply{Name: "return", Args: []clam.Expr{val}}
	}
	rs.needRaise = true
	return clam.Ljoinapply{Name: "raise", Args: []clam.Expr{val}}
}

// rewriteHandleError implements the three handle_error variants (spec
// §3.1, §4.6). Return_err is rewritten to call the same "raise" join a
// plain error return would use.
func (l *Lowerer) rewriteHandleError(rs *returnState, n *mcore.HandleError) clam.Expr {
	inner := l.lowerExpr(n.Inner)
	switch n.Variant {
	case mcore.ReturnErr:
		rs.needRaise = true
		return clam.Ljoinapply{Name: "raise", Args: []clam.Expr{inner}}
	case mcore.JoinApply:
		return clam.Ljoinapply{Name: n.JoinName, Args: []clam.Expr{inner}}
	case mcore.ToResult:
		// The value is already a Result; no join rewrite needed, it
		// passes through unchanged.
		return inner
	default:
		invariant("rewriteHandleError", "unhandled handle_error variant %d", n.Variant)
		panic("unreachable")
	}
}

// closeJoins wraps a function body translated with rewriteReturn /
// rewriteHandleError active with the join bindings its returnState flagged
// as needed, innermost ("raise") first so "return" can be the outermost,
// tail-position join (spec §4.6 "Each join is emitted only if its need_*
// flag was set by the rewrite").
func (l *Lowerer) closeJoins(rs *returnState, body clam.Expr, bodyTy clamtype.Type) clam.Expr {
	if rs.needRaise {
		errTy := l.Types.Lower(rs.errSrcTy)
		param := clam.Var{Name: l.fresh("e"), Ty: errTy}
		wrapped := clam.Expr(clam.Lallocate{
			Kind:   clam.AllocEnum,
			Tid:    rs.resultTid,
			Tag:    errTag,
			Fields: []clam.Expr{clam.LVar{V: param}},
		})
		body = clam.Ljoinlet{
			Name:   "raise",
			Params: []clam.Var{param},
			E:      wrapped,
			Body:   body,
			Kind:   clam.NontailJoin,
			Ty:     bodyTy,
		}
	}
	if rs.needReturn {
		var valTy clamtype.Type
		if rs.isResult {
			valTy = l.Types.Lower(rs.okSrcTy)
		} else {
			valTy = l.Types.Lower(rs.plainRetTy)
		}
		param := clam.Var{Name: l.fresh("v"), Ty: valTy}
		var wrapped clam.Expr = clam.LVar{V: param}
		if rs.isResult {
			wrapped = clam.Lallocate{
				Kind:   clam.AllocEnum,
				Tid:    rs.resultTid,
				Tag:    okTag,
				Fields: []clam.Expr{clam.LVar{V: param}},
			}
		}
		body = clam.Ljoinlet{
			Name:   "return",
			Params: []clam.Var{param},
			E:      wrapped,
			Body:   body,
			Kind:   clam.TailJoin,
			Ty:     bodyTy,
		}
	}
	return body
}
