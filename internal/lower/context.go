package lower

import (
	"fmt"

	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/config"
	"github.com/moonbitlang/moonbit-compiler/internal/diag"
	"github.com/moonbitlang/moonbit-compiler/internal/globalenv"
	"github.com/moonbitlang/moonbit-compiler/internal/intrinsictab"
	"github.com/moonbitlang/moonbit-compiler/internal/mcore"
)

// State is the translator's per-run mutable state (spec §5, §9):
// AddrTable, TypeLowering's tables, the binds_init accumulator, the
// EscapeSet, and the current source-base location. It begins life at
// TranslProg's entry and is discarded at its exit — never a package-level
// global (spec §9 "Mutable-state singletons ... scope them to a
// translation context value threaded through the walker. No actual global
// mutation is required.").
type State struct {
	Diag       diag.Collector
	Env        globalenv.Env
	Intrinsics intrinsictab.Table
	Flags      config.Flags

	Addr  *AddrTable
	Types *TypeLowering
	Esc   EscapeSet

	// bindsInit accumulates the Llet-wrapper prefix for non-constant
	// globals, in declaration order (spec §4.9).
	bindsInit []bindInit

	// base is the source location of the top-level item being lowered,
	// updated once per item before its body is lowered (spec §5) and read
	// back through Base(). The lowerer emits no Levent wrappers, so no
	// lowered node carries it.
	base string

	freshCounter int
}

type bindInit struct {
	name clam.Var
	e    clam.Expr
}

func NewState(env globalenv.Env, intr intrinsictab.Table, d diag.Collector, flags config.Flags) *State {
	return &State{
		Diag:       d,
		Env:        env,
		Intrinsics: intr,
		Flags:      flags,
		Addr:       NewAddrTable(),
		Types:      NewTypeLowering(env),
	}
}

// SetBase updates the enclosing location for the top-level item about to
// be lowered (spec §5).
func (s *State) SetBase(pos mcore.Pos) {
	s.base = fmt.Sprintf("%s:%d:%d", pos.File, pos.Line, pos.Col)
}

func (s *State) Base() string { return s.base }

// fresh mints a new identifier name, unique within this translation (spec
// §3.4 "Identifiers are freshly minted per binding site").
func (s *State) fresh(hint string) string {
	s.freshCounter++
	return fmt.Sprintf("%s.%d", hint, s.freshCounter)
}

func (s *State) pushInit(name clam.Var, e clam.Expr) {
	s.bindsInit = append(s.bindsInit, bindInit{name: name, e: e})
}
