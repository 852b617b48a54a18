package clam_test

import (
	"testing"

	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
)

var unitTy = clamtype.Unboxed(clamtype.I32Unit)
var i32Ty = clamtype.Unboxed(clamtype.I32)

// A chain of nested Llet nodes must render as one flattened (let (...) body)
// form rather than as nested (let (let (let ...))) (spec §6.2).
func TestPrinter_LetChainCollapses(t *testing.T) {
	inner := clam.Llet{
		Name: clam.Var{Name: "b", Ty: i32Ty},
		E:    clam.Const{Value: 2, Ty: i32Ty},
		Body: clam.LVar{V: clam.Var{Name: "b", Ty: i32Ty}},
	}
	outer := clam.Llet{
		Name: clam.Var{Name: "a", Ty: i32Ty},
		E:    clam.Const{Value: 1, Ty: i32Ty},
		Body: inner,
	}
	got := clam.Printer{}.Sprint(outer)
	want := "(let ((a 1) (b 2)) b)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// Adjacent Lsequence entries collapse the same way (spec §6.2).
func TestPrinter_SequenceChainCollapses(t *testing.T) {
	seq := clam.Lsequence{
		Exprs:    []clam.Expr{clam.Const{Value: 1, Ty: i32Ty}, clam.Const{Value: 2, Ty: i32Ty}},
		LastExpr: clam.Const{Value: 3, Ty: i32Ty},
	}
	got := clam.Printer{}.Sprint(seq)
	want := "(seq 1 2 3)"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// A NormalAddr closure prints its address atom and capture list; a
// WellKnownMutRec closure prints the dedicated marker in its place (spec
// §4.8 point 4).
func TestPrinter_ClosureAddressKinds(t *testing.T) {
	normal := &clam.Closure{
		Captures: []clam.Var{{Name: "env", Ty: i32Ty}},
		Address:  clam.ClosureAddr{Kind: clam.NormalAddr, Addr: clam.Address(7)},
		Tid:      clamtype.Tid(3),
	}
	got := clam.Printer{}.Sprint(normal)
	want := "(closure $7 3 (env))"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	mutRec := &clam.Closure{
		Captures: nil,
		Address:  clam.ClosureAddr{Kind: clam.WellKnownMutRec},
		Tid:      clamtype.Tid(9),
	}
	got = clam.Printer{}.Sprint(mutRec)
	want = "(closure well_known_mut_rec 9 ())"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// Levent is elided from the output by default and only surfaces its
// location when ShowLoc is set (spec §6.2).
func TestPrinter_EventElidedUnlessShowLoc(t *testing.T) {
	ev := clam.Levent{E: clam.Const{Value: 5, Ty: i32Ty}, Loc: "t.mbt:3:1"}

	got := clam.Printer{}.Sprint(ev)
	if got != "5" {
		t.Errorf("expected location elided by default, got %q", got)
	}

	got = clam.Printer{ShowLoc: true}.Sprint(ev)
	want := `(event "t.mbt:3:1" 5)`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// Ljoinlet tags a nontail join distinctly from a tail join (ReturnXfm
// depends on this to separate raise from return, spec §4.6).
func TestPrinter_JoinKindTag(t *testing.T) {
	tail := clam.Ljoinlet{
		Name: "return", Params: []clam.Var{{Name: "v", Ty: i32Ty}},
		E: clam.LVar{V: clam.Var{Name: "v", Ty: i32Ty}}, Body: clam.Const{Value: nil, Ty: unitTy}, Kind: clam.TailJoin, Ty: unitTy,
	}
	got := clam.Printer{}.Sprint(tail)
	want := "(joinlet return (v) v ())"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	nontail := clam.Ljoinlet{
		Name: "raise", Params: []clam.Var{{Name: "e", Ty: i32Ty}},
		E: clam.LVar{V: clam.Var{Name: "e", Ty: i32Ty}}, Body: clam.Const{Value: nil, Ty: unitTy}, Kind: clam.NontailJoin, Ty: unitTy,
	}
	got = clam.Printer{}.Sprint(nontail)
	want = "(joinlet_nontail raise (e) e ())"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// A Prog with no functions, no main, and one constant-initialized global
// renders just its init and globals entries: no fns entry and no main entry
// appear.
func TestPrinter_SprintProgSkeleton(t *testing.T) {
	c := clam.Const{Value: 42, Ty: i32Ty}
	prog := &clam.Prog{
		Init:    clam.Const{Value: nil, Ty: unitTy},
		Globals: []clam.Global{{Name: clam.Var{Name: "answer", Ty: i32Ty}, Const: &c}},
	}
	got := clam.Printer{}.SprintProg(prog)
	want := "(prog\n  (init ())\n  (globals (answer 42)))\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
