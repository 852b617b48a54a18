package lower_test

import (
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/lower"
	"github.com/moonbitlang/moonbit-compiler/internal/mcore"
)

// buildDeterminismSample exercises escaping closures, a well-known local,
// and a Result-returning join in one program, so a scheduling-dependent
// bug in address/tid minting (spec §3.4, §5 "translation must be
// reproducible byte for byte given the same input") would show up as a
// diff between runs fanned out concurrently below.
func buildDeterminismSample() *mcore.Program {
	xID := mcore.Ident{Name: "x", Kind: mcore.Local, Ty: tInt}
	addOne := mcore.NewLambda(pos, []mcore.Param{{Id: xID, Ty: tInt}}, tInt, false, false, mcore.NewVarRef(pos, xID))
	fnTy := clamtype.Func{Params: []clamtype.SourceType{tInt}, Ret: tInt}
	gID := mcore.Ident{Name: "addOne", Kind: mcore.Local, Ty: fnTy}

	yID := mcore.Ident{Name: "y", Kind: mcore.Local, Ty: tInt}
	helperFn := mcore.NewLambda(pos, []mcore.Param{{Id: yID, Ty: tInt}}, tInt, false, false, mcore.NewVarRef(pos, yID))
	helperCallID := mcore.Ident{Name: "helper", Kind: mcore.Local, Ty: fnTy}
	call := mcore.NewApply(pos, tInt, mcore.Normal, helperCallID.Ty, mcore.NewVarRef(pos, helperCallID), mcore.NewConst(pos, tInt, 1))
	runBody := mcore.NewLetfn(pos, tInt, mcore.Ident{Name: "helper"}, helperFn, call)
	runFn := mcore.NewLambda(pos, nil, tInt, false, false, runBody)

	resultTy := clamtype.Result{Ok: tInt, Err: tString}
	aID := mcore.Ident{Name: "a", Kind: mcore.Local, Ty: tInt}
	bID := mcore.Ident{Name: "b", Kind: mcore.Local, Ty: tInt}
	cond := mcore.NewPrimApply(pos, tBool, "eq", mcore.NewVarRef(pos, bID), mcore.NewConst(pos, tInt, 0))
	raiseBranch := mcore.NewReturn(pos, mcore.NewConst(pos, tString, "div by zero"), true, resultTy)
	returnBranch := mcore.NewReturn(pos, mcore.NewPrimApply(pos, tInt, "div", mcore.NewVarRef(pos, aID), mcore.NewVarRef(pos, bID)), false, resultTy)
	ifExpr := mcore.NewIf(pos, resultTy, cond, raiseBranch, returnBranch)
	safeDivFn := mcore.NewLambda(pos, []mcore.Param{{Id: aID, Ty: tInt}, {Id: bID, Ty: tInt}}, resultTy, false, false, ifExpr)

	return &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: mcore.Ident{Name: "addOne"}, Fn: addOne},
		&mcore.TopFn{Name: mcore.Ident{Name: "run"}, Fn: runFn},
		&mcore.TopFn{Name: mcore.Ident{Name: "safeDiv"}, Fn: safeDivFn},
		&mcore.TopLet{Name: mcore.Ident{Name: "g"}, Rhs: mcore.NewVarRef(pos, gID)},
	}}
}

func TestTranslProg_Deterministic(t *testing.T) {
	const runs = 12
	out := make([]string, runs)

	var g errgroup.Group
	for i := 0; i < runs; i++ {
		i := i
		g.Go(func() error {
			prog := buildDeterminismSample()
			p, err := lower.TranslProg(prog, freshState())
			if err != nil {
				return err
			}
			out[i] = clam.Printer{}.SprintProg(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("TranslProg: %v", err)
	}

	for i := 1; i < runs; i++ {
		if out[i] != out[0] {
			t.Fatalf("translation is not deterministic: run 0 and run %d differ\nrun0:\n%s\nrun%d:\n%s", i, out[0], i, out[i])
		}
	}
}
