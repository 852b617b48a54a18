package lower

import "golang.org/x/xerrors"

// InvariantError is regime 2 of spec §7: a precondition failure on this
// core's own checked-IR contract. There is no recovery path for it — it is
// always a hard abort, raised via panic and only ever recovered at
// TranslProg's own top level, which returns it unchanged as its error with
// no partial Prog (spec §7).
type InvariantError struct {
	Where string
	Err   error
}

func (e *InvariantError) Error() string {
	return "clam: invariant violated in " + e.Where + ": " + e.Err.Error()
}

func (e *InvariantError) Unwrap() error { return e.Err }

// invariant panics with an InvariantError built from format/args, exactly
// like go/ssa's own internal fatalf-then-panic idiom for IR construction
// preconditions it assumes the checker already enforced.
func invariant(where, format string, args ...any) {
	panic(&InvariantError{Where: where, Err: xerrors.Errorf(format, args...)})
}
