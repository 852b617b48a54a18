// Package diag models the diagnostics accumulator this core's front-end
// collaborator owns (spec §6.1, §7 regime 1). Programmer-facing source
// errors are data, never exceptions: this core only ever appends to a
// Collector, it never constructs a Go error for them.
package diag

import "github.com/moonbitlang/moonbit-compiler/internal/mcore"

// Kind enumerates the structured diagnostic kinds spec §7 names as
// examples; the front-end owns the full set and is what reports them:
// nothing in internal/lower adds a diagnostic to a Collector.
type Kind string

const (
	DuplicateTvar           Kind = "duplicate_tvar"
	InvalidInitOrMain       Kind = "invalid_init_or_main"
	ReservedTypeName        Kind = "reserved_type_name"
	TraitDuplicateMethod    Kind = "trait_duplicate_method"
	ConstrNoMutPositional   Kind = "constr_no_mut_positional_field"
	BadRangePatternOperand  Kind = "bad_range_pattern_operand"
)

// Collector is the interface consumed from the front-end (spec §6.1).
type Collector interface {
	AddError(kind Kind, pos mcore.Pos, args ...any)
	AddWarning(kind Kind, pos mcore.Pos, args ...any)
}

// Entry is one accumulated diagnostic.
type Entry struct {
	Kind    Kind
	Pos     mcore.Pos
	Args    []any
	Warning bool
}

// Accumulator is a minimal in-memory Collector, sufficient to drive this
// core's own tests without pulling in the real front-end diagnostics
// engine (spec §10 supplemented ambient test tooling).
type Accumulator struct {
	Entries []Entry
}

func (a *Accumulator) AddError(kind Kind, pos mcore.Pos, args ...any) {
	a.Entries = append(a.Entries, Entry{Kind: kind, Pos: pos, Args: args})
}

func (a *Accumulator) AddWarning(kind Kind, pos mcore.Pos, args ...any) {
	a.Entries = append(a.Entries, Entry{Kind: kind, Pos: pos, Args: args, Warning: true})
}

func (a *Accumulator) HasErrors() bool {
	for _, e := range a.Entries {
		if !e.Warning {
			return true
		}
	}
	return false
}
