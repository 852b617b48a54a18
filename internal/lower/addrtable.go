package lower

import (
	"golang.org/x/text/unicode/norm"

	"github.com/moonbitlang/moonbit-compiler/internal/clam"
	"github.com/moonbitlang/moonbit-compiler/internal/clamtype"
)

// AddrEntry is spec §4.5's per-identifier record: either a top-level
// function (callable directly by address, optionally reified into a
// first-class closure lazily) or a well-known local function (callable
// directly, with a captured-environment type but no closure object).
type AddrEntry interface{ isAddrEntry() }

// Toplevel is a pre-registered top-level function. NameAsClosure is filled
// in lazily the first time the function is used as a value — it names the
// closure-wrapper top_func_item that must then be emitted (spec §4.5,
// §4.9).
type Toplevel struct {
	Addr           clam.Address
	Params         []clamtype.Type
	Return         clamtype.Type
	NameAsClosure  *clam.Address
}

func (*Toplevel) isAddrEntry() {}

// EnvKind selects how a well-known local function's call sites must supply
// its captured environment (spec §4.8 point 3).
type EnvKind int

const (
	EnvNone   EnvKind = iota // no captures: no extra argument
	EnvSingle                // one capture: the captured var passed directly
	EnvShared                // two or more captures, or a mutually-recursive
	// bundle: EnvVar names the env value (the function's own bound name, or
	// for a bundle its first member's name)
)

// Local is a well-known local function: EnvType is unit (no captures), the
// single captured value's type (one capture), or a struct reference (two
// or more captures) — see ClosureLowering point 3.
type Local struct {
	Addr    clam.Address
	EnvType clamtype.Type
	EnvKind EnvKind
	// EnvVar is what call sites pass as the leading env argument: the
	// captured variable itself for EnvSingle, the env struct's binder for
	// EnvShared; unused for EnvNone.
	EnvVar *clam.Var
}

func (*Local) isAddrEntry() {}

// AddrTable is spec §4.5, populated in two phases: CollectTopFunc
// pre-registers every top-level function before any body is lowered, then
// ClosureLowering installs Local entries as it rewrites each local
// definition.
type AddrTable struct {
	entries map[string]AddrEntry
	next    uint32
}

func NewAddrTable() *AddrTable {
	return &AddrTable{entries: make(map[string]AddrEntry)}
}

// normalizeIdent NFC-normalizes identifier text before it is used as a
// table key, so that two spellings of the same identifier that differ
// only in Unicode normalization form resolve to the same entry and the
// translation remains bit-for-bit reproducible (spec §5; see DESIGN.md).
func normalizeIdent(name string) string {
	return norm.NFC.String(name)
}

func (t *AddrTable) freshAddr() clam.Address {
	a := clam.Address(t.next)
	t.next++
	return a
}

// CollectTopFunc pre-registers a top-level function's address, parameter
// types, and lowered return type (spec §4.5 "collect_top_func
// pre-registers every top-level function's address, params, and lowered
// return").
func (t *AddrTable) CollectTopFunc(name string, params []clamtype.Type, ret clamtype.Type) clam.Address {
	addr := t.freshAddr()
	t.entries[normalizeIdent(name)] = &Toplevel{Addr: addr, Params: params, Return: ret}
	return addr
}

// InstallLocal records a well-known local function's address and captured
// environment type and calling convention.
func (t *AddrTable) InstallLocal(name string, envType clamtype.Type, kind EnvKind, envVar *clam.Var) clam.Address {
	addr := t.freshAddr()
	t.entries[normalizeIdent(name)] = &Local{Addr: addr, EnvType: envType, EnvKind: kind, EnvVar: envVar}
	return addr
}

// ReserveAddr mints a fresh address not tied to any source identifier
// (used for the code functions of escaping local closures and of raw
// lambdas; a top-level function's closure wrapper gets its address from
// ClosureWrapperAddr).
func (t *AddrTable) ReserveAddr() clam.Address { return t.freshAddr() }

func (t *AddrTable) Lookup(name string) (AddrEntry, bool) {
	e, ok := t.entries[normalizeIdent(name)]
	return e, ok
}

// ClosureWrapperAddr returns the address of name's closure-wrapper
// top_func_item, minting one on first use (spec §4.5 "name_as_closure is
// the identifier introduced lazily the first time the function is used as
// a value").
func (t *AddrTable) ClosureWrapperAddr(name string) clam.Address {
	e, ok := t.entries[normalizeIdent(name)]
	if !ok {
		invariant("AddrTable.ClosureWrapperAddr", "no top-level entry for %q", name)
	}
	top, ok := e.(*Toplevel)
	if !ok {
		invariant("AddrTable.ClosureWrapperAddr", "%q is not a top-level function", name)
	}
	if top.NameAsClosure == nil {
		addr := t.freshAddr()
		top.NameAsClosure = &addr
	}
	return *top.NameAsClosure
}
