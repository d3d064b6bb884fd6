// Package taut is the framework's front door: the two process-level
// error kinds named in spec.md §7 live here so both the runner and
// cmd/taut can name them without an import cycle back into runner.
package taut

import "github.com/taut-go/taut/override"

// HardError is a framework-level condition the runner cannot recover
// from by failing the current test and moving on — generator
// non-determinism discovered on an otherwise-passing repetition, or a
// generator site declared empty without opting into a silent
// interrupt. Encountering one aborts the run (spec.md §7).
type HardError struct {
	Message    string
	Diagnostic *override.Diagnostic
}

func (e *HardError) Error() string {
	if e.Diagnostic != nil {
		return e.Diagnostic.Error()
	}
	return "taut: " + e.Message
}

// UserError is a misuse of the framework surfaced at its boundary
// rather than inside a test body — a malformed --generate argument,
// an invalid --include/--exclude pattern, an override rule that never
// matched or was never applied. cmd/taut prints it and exits non-zero
// without running anything (spec.md §7).
type UserError struct {
	Message    string
	Diagnostic *override.Diagnostic
}

func (e *UserError) Error() string {
	if e.Diagnostic != nil {
		return e.Diagnostic.Error()
	}
	return "taut: " + e.Message
}
