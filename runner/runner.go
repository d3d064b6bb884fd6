// Package runner implements the filter/sort/run driver described in
// spec.md §4.8: it owns the registry snapshot, the per-test
// generator-cross-product loop, and the panic-classification that
// turns a test body's control-flow exceptions into the three-tier
// error model of spec.md §7.
//
// Grounded directly on spec.md §4.8's step list; CLI flag plumbing is
// grounded on opal-lang-opal's runtime/cli/harness.go
// (--dry-run/--no-color persistent-flag idiom) and cmd/devcmd/main.go
// (exit-code constants block).
package runner

import (
	"fmt"
	"log/slog"
	"regexp"
	"runtime"
	"strings"

	taut "github.com/taut-go/taut"
	"github.com/taut-go/taut/assert"
	"github.com/taut-go/taut/bus"
	"github.com/taut-go/taut/generate"
	"github.com/taut-go/taut/override"
	"github.com/taut-go/taut/registry"
)

// OverrideProvider is implemented by the built-in generator-override
// listener: the runner calls SetProgram before every test with the
// merged override program whose pattern matched that test's name, or
// nil when none matched.
type OverrideProvider interface {
	SetProgram(p *override.Program)
}

// GenerateDirective is one parsed --generate PAT//PROG argument.
type GenerateDirective struct {
	Raw     string
	Pattern *regexp.Regexp
	Program *override.Program
}

// ParseGenerateDirectives compiles every --generate argument's PAT
// pattern and parses its PROG with override.Parse. A malformed
// argument is a user error (spec.md §7), not a panic.
func ParseGenerateDirectives(args []string) ([]GenerateDirective, error) {
	out := make([]GenerateDirective, 0, len(args))
	for _, raw := range args {
		idx := strings.Index(raw, "//")
		if idx < 0 {
			return nil, &taut.UserError{Message: fmt.Sprintf("--generate argument %q is missing its '//' separator", raw)}
		}
		patSrc, progSrc := raw[:idx], raw[idx+2:]
		pat, err := regexp.Compile(patSrc)
		if err != nil {
			return nil, &taut.UserError{Message: fmt.Sprintf("--generate pattern %q: %v", patSrc, err)}
		}
		prog, err := override.Parse(progSrc)
		if err != nil {
			return nil, &taut.UserError{Message: err.Error()}
		}
		out = append(out, GenerateDirective{Raw: raw, Pattern: pat, Program: prog})
	}
	return out, nil
}

// programsForTest returns every directive's Program whose Pattern
// matches name, in the order the directives were declared on the
// command line — override.Merge expects that order and walks it
// back-to-front itself (see override/merge.go).
func programsForTest(name string, directives []GenerateDirective) []*override.Program {
	var matched []*override.Program
	for _, d := range directives {
		if matchesName(d.Pattern, name) {
			matched = append(matched, d.Program)
		}
	}
	return matched
}

// Runner drives one run of the filtered, canonically-ordered test
// list. Bus is the precomputed listener dispatch table; Overrider may
// be nil if no --generate directives were given.
type Runner struct {
	Bus       *bus.Bus
	Logger    *slog.Logger
	Overrider OverrideProvider
	Catch     bool
	Break     bool
}

// compilePatterns compiles a set of --include/--exclude patterns,
// reporting the first malformed one as a user error.
func compilePatterns(pats []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(pats))
	for _, p := range pats {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &taut.UserError{Message: fmt.Sprintf("invalid pattern %q: %v", p, err)}
		}
		out = append(out, re)
	}
	return out, nil
}

// FilterTests applies spec.md §4.8 step 1: any include pattern makes
// tests disabled by default, every include pattern is applied, then
// every exclude pattern, so an -e match disables a test whatever the
// command-line order of -i and -e; the result is then offered to every
// on_filter_test listener.
func (r *Runner) FilterTests(tests []*registry.Test, flags *Flags) ([]*registry.Test, error) {
	incRe, err := compilePatterns(flags.Include)
	if err != nil {
		return nil, err
	}
	excRe, err := compilePatterns(flags.Exclude)
	if err != nil {
		return nil, err
	}

	defaultEnabled := len(incRe) == 0
	out := make([]*registry.Test, 0, len(tests))
	for _, tc := range tests {
		state := bus.Disabled
		if defaultEnabled && !tc.Disabled {
			state = bus.Enabled
		}
		for _, re := range incRe {
			if matchesName(re, tc.Name) {
				state = bus.Enabled
			}
		}
		for _, re := range excRe {
			if matchesName(re, tc.Name) {
				state = bus.Disabled
			}
		}
		if r.Bus.FilterTest(bus.FilterableTest{Name: tc.Name, State: state}) == bus.Enabled {
			out = append(out, tc)
		}
	}
	return out, nil
}

// Run executes tests (already filtered and in registry.All's canonical
// order) and returns the process exit code (spec.md §4.8 steps 2-5).
// A *taut.HardError reaching here from a test repetition aborts the
// run immediately rather than being folded into that test's result.
func (r *Runner) Run(tests []*registry.Test, directives []GenerateDirective) (exitCode int, err error) {
	r.Bus.PreRunTests()

	summary := bus.Summary{}
	var validationErrs []error

	for _, tc := range tests {
		merged := r.installOverrides(tc.Name, directives)

		result, runErr := r.runOne(tc)
		if runErr != nil {
			return ExitBadArguments, runErr
		}

		summary.NumTests++
		summary.NumAsserts += result.NumChecksTotal
		summary.NumAssertsFailed += result.NumChecksFailed
		if !result.Passed {
			summary.NumTestsFailed++
		}

		if merged != nil {
			validationErrs = append(validationErrs, override.Validate(merged)...)
		}
	}

	r.Bus.PostRunTests(summary)

	if len(validationErrs) > 0 {
		msgs := make([]string, len(validationErrs))
		for i, e := range validationErrs {
			msgs[i] = e.Error()
		}
		return ExitBadArguments, &taut.UserError{Message: strings.Join(msgs, "\n")}
	}

	if summary.NumTestsFailed > 0 {
		return ExitTestFailed, nil
	}
	return ExitOK, nil
}

// installOverrides merges every directive whose pattern matches name
// and hands the result to the runner's override listener, returning it
// so the caller can validate rule usage once the test has run. Returns
// nil when no directive matched (the common case).
func (r *Runner) installOverrides(name string, directives []GenerateDirective) *override.Program {
	progs := programsForTest(name, directives)
	var merged *override.Program
	if len(progs) > 0 {
		merged = override.Merge(progs)
	}
	if r.Overrider != nil {
		r.Overrider.SetProgram(merged)
	}
	return merged
}

// runOne drives the generator cross-product loop for a single test
// (spec.md §4.5/§4.8 step 4): repeat the body once per tuple in the
// cross-product, reporting each repetition and aggregating totals.
func (r *Runner) runOne(tc *registry.Test) (bus.TestResult, error) {
	t := newT(tc.Name, r.Bus)
	t.setRegisterHook(func(site generate.AnySite) {
		if ov := r.Bus.RegisterGeneratorOverride(site); ov != nil {
			site.SetOverrider(ov)
		}
	})
	info := bus.TestInfo{Name: tc.Name, File: tc.Loc.File, Line: tc.Loc.Line}

	aggregate := bus.TestResult{Passed: true}

	for {
		t.reset()
		t.stack.ResetForIteration()

		r.Bus.PreRunSingleTest(info)
		shouldCatch := r.Bus.PreTryCatch(info) && r.Catch

		if hardErr := r.invokeBody(t, tc, info, shouldCatch); hardErr != nil {
			return aggregate, hardErr
		}

		done := t.stack.PruneAfterIteration()

		aggregate.NumChecksTotal += t.numChecks
		aggregate.NumChecksFailed += t.numChecksFailed
		if t.failed {
			aggregate.Passed = false
		}

		r.Bus.PostRunSingleTest(info, bus.TestResult{
			Passed:                !t.failed,
			NumChecksTotal:        t.numChecks,
			NumChecksFailed:       t.numChecksFailed,
			IsLastGeneratorRepeat: done,
		})

		if done {
			break
		}
	}

	return aggregate, nil
}

// invokeBody runs one repetition of tc.Body, classifying whatever it
// recovers per spec.md §7's three-tier error model:
//
//   - assert.InterruptTest unwinds silently — a Require already
//     reported the failure before throwing.
//   - *generate.ErrGeneratorEmpty with Interrupt set behaves the same
//     way; with Interrupt unset it escalates to a hard error.
//   - *generate.ErrNonDeterministic escalates to a hard error unless
//     this repetition had already failed an assertion before the
//     mismatch was detected, in which case it is logged as a warning,
//     the repetition is marked failed and the test's remaining
//     repetitions are not run (spec.md §8 S5: "a
//     warning rather than a hard error" when the test otherwise fails).
//   - anything else is an uncaught exception: converted to a test
//     failure via OnUncaughtException when shouldCatch is true,
//     otherwise re-panicked so the process aborts as spec.md §7
//     requires for an uncatchable run.
func (r *Runner) invokeBody(t *T, tc *registry.Test, info bus.TestInfo, shouldCatch bool) (hardErr error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		switch v := recovered.(type) {
		case assert.InterruptTest:
			return
		case *generate.ErrGeneratorEmpty:
			if v.Interrupt {
				return
			}
			hardErr = &taut.HardError{Message: v.Error()}
		case *generate.ErrNonDeterministic:
			if t.failed {
				r.logger().Warn("non-deterministic generator use on a failing test",
					"expected", v.Expected.String(), "got", v.Got.String())
				t.failDirectly()
				// The stack no longer matches the body, so it is dropped
				// and no further repetition of this test runs.
				t.stack = generate.NewStack()
				return
			}
			hardErr = &taut.HardError{Message: v.Error()}
		default:
			if !shouldCatch {
				panic(recovered)
			}
			t.failDirectly()
			r.Bus.PreFailTest(info)
			r.Bus.OnUncaughtException(&assert.Record{RawText: tc.Name}, recovered)
			if r.Break {
				breakpoint()
			}
		}
	}()

	tc.Body(t)
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// breakpoint mirrors assert's own unexported helper (assert/check.go)
// for the uncaught-exception path, which the runner handles itself
// rather than through assert.diagnose.
func breakpoint() { runtime.Breakpoint() }
