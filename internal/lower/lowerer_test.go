package lower_test

import (
	"strings"
	"testing"

	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
	"github.com/moonbitlang/moonbit-compiler/internal/config"
	"github.com/moonbitlang/moonbit-compiler/internal/diag"
	"github.com/moonbitlang/moonbit-compiler/internal/globalenv"
	"github.com/moonbitlang/moonbit-compiler/internal/intrinsictab"
	"github.com/moonbitlang/moonbit-compiler/internal/lower"
	"github.com/moonbitlang/moonbit-compiler/internal/mcore"
)

var pos = mcore.Pos{File: "t.mbt", Line: 1, Col: 1}

var (
	tInt    = clamtype.Prim{Name: "Int"}
	tBool   = clamtype.Prim{Name: "Bool"}
	tString = clamtype.StringT{}
)

func freshState() *lower.State {
	return lower.NewState(globalenv.NewStatic(), intrinsictab.Default(), &diag.Accumulator{}, config.Flags{})
}

func translate(t *testing.T, prog *mcore.Program) string {
	t.Helper()
	p, err := lower.TranslProg(prog, freshState())
	if err != nil {
		t.Fatalf("TranslProg: %v", err)
	}
	return clam.Printer{}.SprintProg(p)
}

// Scenario 1 (spec §8.2): a bare unit literal top-level expression lowers
// straight into init with no globals or functions involved.
func TestTranslProg_UnitLiteral(t *testing.T) {
	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopExpr{E: mcore.NewConst(pos, clamtype.Prim{Name: "Unit"}, nil)},
	}}
	out := translate(t, prog)
	if !strings.Contains(out, "(init (seq ()))") {
		t.Errorf("expected unit init, got:\n%s", out)
	}
}

// Scenario 2: a top-level function referenced as a value (bound to a
// second top-level let) escapes and gets a closure-wrapper plus a global
// Lclosure binding (spec §4.9).
func TestTranslProg_TopFuncEscapesToValue(t *testing.T) {
	xID := mcore.Ident{Name: "x", Kind: mcore.Local, Ty: tInt}
	addOne := mcore.NewLambda(pos, []mcore.Param{{Id: xID, Ty: tInt}}, tInt, false, false, mcore.NewVarRef(pos, xID))

	fnTy := clamtype.Func{Params: []clamtype.SourceType{tInt}, Ret: tInt}
	gID := mcore.Ident{Name: "addOne", Kind: mcore.Local, Ty: fnTy}

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: mcore.Ident{Name: "addOne"}, Fn: addOne},
		&mcore.TopLet{Name: mcore.Ident{Name: "g"}, Rhs: mcore.NewVarRef(pos, gID)},
	}}
	out := translate(t, prog)
	if !strings.Contains(out, "(closure $") {
		t.Errorf("expected a closure wrapper binding for the escaping top-level function, got:\n%s", out)
	}
	if !strings.Contains(out, "(globals (g") {
		t.Errorf("expected g to appear in globals, got:\n%s", out)
	}
}

// Scenario 3: a local function only ever called, never captured into a
// value, lowers well-known with zero env arguments and never allocates a
// closure object (spec §4.8 point 3).
func TestTranslProg_WellKnownLocal(t *testing.T) {
	yID := mcore.Ident{Name: "y", Kind: mcore.Local, Ty: tInt}
	helperFn := mcore.NewLambda(pos, []mcore.Param{{Id: yID, Ty: tInt}}, tInt, false, false, mcore.NewVarRef(pos, yID))
	helperCallID := mcore.Ident{Name: "helper", Kind: mcore.Local, Ty: clamtype.Func{Params: []clamtype.SourceType{tInt}, Ret: tInt}}

	call := mcore.NewApply(pos, tInt, mcore.Normal, helperCallID.Ty, mcore.NewVarRef(pos, helperCallID), mcore.NewConst(pos, tInt, 1))
	body := mcore.NewLetfn(pos, tInt, mcore.Ident{Name: "helper"}, helperFn, call)
	runFn := mcore.NewLambda(pos, nil, tInt, false, false, body)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: mcore.Ident{Name: "run"}, Fn: runFn},
	}}
	out := translate(t, prog)
	if strings.Contains(out, "(closure") {
		t.Errorf("well-known local must not allocate a closure, got:\n%s", out)
	}
}

// Scenario 4: a mutually recursive pair with no escaping member lowers
// through the well-known bundle path, sharing one late-init struct and
// resolving peer calls by direct address (spec §4.8 point 4).
func TestTranslProg_MutRecWellKnownPair(t *testing.T) {
	nID := mcore.Ident{Name: "n", Kind: mcore.Local, Ty: tInt}
	predFnTy := clamtype.Func{Params: []clamtype.SourceType{tInt}, Ret: tBool}
	isEvenID := mcore.Ident{Name: "isEven", Kind: mcore.Local, Ty: predFnTy}
	isOddID := mcore.Ident{Name: "isOdd", Kind: mcore.Local, Ty: predFnTy}

	isEvenBody := mcore.NewIf(pos, tBool,
		mcore.NewPrimApply(pos, tBool, "eq", mcore.NewVarRef(pos, nID), mcore.NewConst(pos, tInt, 0)),
		mcore.NewConst(pos, tBool, true),
		mcore.NewApply(pos, tBool, mcore.Normal, predFnTy, mcore.NewVarRef(pos, isOddID),
			mcore.NewPrimApply(pos, tInt, "sub", mcore.NewVarRef(pos, nID), mcore.NewConst(pos, tInt, 1))),
	)
	isOddBody := mcore.NewIf(pos, tBool,
		mcore.NewPrimApply(pos, tBool, "eq", mcore.NewVarRef(pos, nID), mcore.NewConst(pos, tInt, 0)),
		mcore.NewConst(pos, tBool, false),
		mcore.NewApply(pos, tBool, mcore.Normal, predFnTy, mcore.NewVarRef(pos, isEvenID),
			mcore.NewPrimApply(pos, tInt, "sub", mcore.NewVarRef(pos, nID), mcore.NewConst(pos, tInt, 1))),
	)

	isEvenFn := mcore.NewLambda(pos, []mcore.Param{{Id: nID, Ty: tInt}}, tBool, false, false, isEvenBody)
	isOddFn := mcore.NewLambda(pos, []mcore.Param{{Id: nID, Ty: tInt}}, tBool, false, false, isOddBody)

	letrecBody := mcore.NewApply(pos, tBool, mcore.Normal, predFnTy, mcore.NewVarRef(pos, isEvenID), mcore.NewConst(pos, tInt, 4))
	body := mcore.NewLetrec(pos, tBool,
		[]mcore.Ident{{Name: "isEven", Kind: mcore.Local, Ty: predFnTy}, {Name: "isOdd", Kind: mcore.Local, Ty: predFnTy}},
		[]*mcore.Lambda{isEvenFn, isOddFn}, letrecBody)
	checkFn := mcore.NewLambda(pos, nil, tBool, false, false, body)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: mcore.Ident{Name: "checkEven"}, Fn: checkFn},
	}}
	out := translate(t, prog)
	if !strings.Contains(out, "well_known_mut_rec") {
		t.Errorf("expected a well-known mutually-recursive bundle, got:\n%s", out)
	}
}

// Scenario 5: a Result-returning function exercises both the "return" and
// "raise" joins ReturnXfm closes around the body (spec §4.6).
func TestTranslProg_ResultReturn(t *testing.T) {
	resultTy := clamtype.Result{Ok: tInt, Err: tString}
	aID := mcore.Ident{Name: "a", Kind: mcore.Local, Ty: tInt}
	bID := mcore.Ident{Name: "b", Kind: mcore.Local, Ty: tInt}

	cond := mcore.NewPrimApply(pos, tBool, "eq", mcore.NewVarRef(pos, bID), mcore.NewConst(pos, tInt, 0))
	raiseBranch := mcore.NewReturn(pos, mcore.NewConst(pos, tString, "div by zero"), true, resultTy)
	returnBranch := mcore.NewReturn(pos, mcore.NewPrimApply(pos, tInt, "div", mcore.NewVarRef(pos, aID), mcore.NewVarRef(pos, bID)), false, resultTy)
	ifExpr := mcore.NewIf(pos, resultTy, cond, raiseBranch, returnBranch)
	fn := mcore.NewLambda(pos, []mcore.Param{{Id: aID, Ty: tInt}, {Id: bID, Ty: tInt}}, resultTy, false, false, ifExpr)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: mcore.Ident{Name: "safeDiv"}, Fn: fn},
	}}
	out := translate(t, prog)
	if !strings.Contains(out, "joinlet_nontail raise") {
		t.Errorf("expected a raise join, got:\n%s", out)
	}
	if !strings.Contains(out, "(joinlet return") {
		t.Errorf("expected a return join, got:\n%s", out)
	}
	if strings.Count(out, "(allocate enum") < 2 {
		t.Errorf("expected both Ok and Err wrapping allocations, got:\n%s", out)
	}
}

// Scenario 6: Array_get is a recognized intrinsic and lowers to an
// explicit range-check guarded by Ppanic followed by the unsafe access,
// never a plain safe-tagged access or an ordinary call (spec §4.7, §8.2
// scenario 6: "if (i<0 || i>=arr.len) { Ppanic() }; arr.buf[i+0]").
func TestTranslProg_ArrayGetIntrinsic(t *testing.T) {
	arrTy := clamtype.Array{Elem: tInt}
	arrID := mcore.Ident{Name: "arr", Kind: mcore.Local, Ty: arrTy}
	idxID := mcore.Ident{Name: "idx", Kind: mcore.Local, Ty: tInt}
	getFnTy := clamtype.Func{Params: []clamtype.SourceType{arrTy, tInt}, Ret: tInt}
	getID := mcore.Ident{Name: "Array_get", Kind: mcore.Qualified, Ty: getFnTy}

	call := mcore.NewApply(pos, tInt, mcore.Normal, getFnTy, mcore.NewVarRef(pos, getID),
		mcore.NewVarRef(pos, arrID), mcore.NewVarRef(pos, idxID))
	fn := mcore.NewLambda(pos, []mcore.Param{{Id: arrID, Ty: arrTy}, {Id: idxID, Ty: tInt}}, tInt, false, false, call)

	prog := &mcore.Program{Items: []mcore.TopItem{
		&mcore.TopFn{Name: mcore.Ident{Name: "getElem"}, Fn: fn},
	}}
	out := translate(t, prog)
	if strings.Contains(out, "array_get_item safe") {
		t.Errorf("Array_get must not lower to a bare safe-tagged access, got:\n%s", out)
	}
	if !strings.Contains(out, "(array_get_item unsafe") {
		t.Errorf("expected the guarded access to read through an unsafe array_get_item, got:\n%s", out)
	}
	if !strings.Contains(out, "#Ppanic") {
		t.Errorf("expected an explicit Ppanic guard call, got:\n%s", out)
	}
	if !strings.Contains(out, "#i32_lt") || !strings.Contains(out, "#i32_ge") {
		t.Errorf("expected both the idx<0 and idx>=len range-check operators, got:\n%s", out)
	}
}
