// Package config parses the MOONC_INTERNAL_PARAMS environment contract
// (spec §6.3) and carries the small set of Basic_config feature flags the
// lowering pipeline reads.
package config

import (
	"strings"

	"golang.org/x/xerrors"
)

// Flags mirrors the subset of Basic_config carried into this core (spec
// §6.3). use_js_builtin_string selects the Pnull rewrite for nullable-string
// types (§9 Open Question). ShowLoc and Debug are carried but not read
// inside this module; the S-expression printer takes its own
// clam.Printer.ShowLoc.
type Flags struct {
	ShowLoc            bool
	Debug              bool
	UseJSBuiltinString bool
}

// Params is the parsed form of MOONC_INTERNAL_PARAMS: "k=v,k=v|k=v" split
// on '|' into a pre-group and post-group (spec §6.3). Only plain_wat and
// dedup_wasm are recognized; any other key is a ParamsError.
type Params struct {
	PlainWat  bool
	DedupWasm bool
}

// ParamsError reports malformed MOONC_INTERNAL_PARAMS input: a missing
// separator or an unrecognized key (spec §7 regime 3 — caller-recoverable
// configuration error, not a core invariant violation).
type ParamsError struct {
	Reason    string // "missing_equals" | "missing_bar" (at most one) | "unknown_key"
	Substring string
}

func (e *ParamsError) Error() string {
	return "MOONC_INTERNAL_PARAMS: " + e.Reason + ": " + e.Substring
}

// ParseMoonc parses the k=v,k=v|k=v grammar of spec §6.3. An empty string
// is valid and yields zero-value Params.
func ParseMoonc(raw string) (Params, error) {
	var p Params
	if raw == "" {
		return p, nil
	}

	groups := strings.Split(raw, "|")
	if len(groups) > 2 {
		return p, xerrors.Errorf("parse MOONC_INTERNAL_PARAMS %q: %w", raw,
			&ParamsError{Reason: "missing_bar", Substring: raw})
	}

	for _, group := range groups {
		if group == "" {
			continue
		}
		for _, kv := range strings.Split(group, ",") {
			if kv == "" {
				continue
			}
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return p, xerrors.Errorf("parse MOONC_INTERNAL_PARAMS %q: %w", raw,
					&ParamsError{Reason: "missing_equals", Substring: kv})
			}
			switch k {
			case "plain_wat":
				p.PlainWat = v == "1"
			case "dedup_wasm":
				p.DedupWasm = v == "1"
			default:
				return p, xerrors.Errorf("parse MOONC_INTERNAL_PARAMS %q: %w", raw,
					&ParamsError{Reason: "unknown_key", Substring: k})
			}
		}
	}
	return p, nil
}
