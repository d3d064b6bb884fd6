package runner

import (
	"github.com/taut-go/taut/assert"
	"github.com/taut-go/taut/generate"
)

// T is the concrete TestingT handed to every test body: it satisfies
// assert.TestingT and registry.TestingT with the identical
// {Fail, Reporter} method set, and additionally exposes the
// generate.Stack the body drives its GENERATE-equivalent calls
// through and the optional checkCounter capability assert.run looks
// for via a type assertion (see assert/check.go).
type T struct {
	name     string
	reporter assert.Reporter
	stack    *generate.Stack

	registerOverride func(generate.AnySite)

	failed          bool
	numChecks       int
	numChecksFailed int
}

func newT(name string, reporter assert.Reporter) *T {
	return &T{name: name, reporter: reporter, stack: generate.NewStack()}
}

// Register offers a newly-reached generator site to the runner's
// generator-override listeners (spec.md §4.5 step 1) — test bodies pass
// this as generate.Use's register argument. A no-op until the runner
// wires setRegisterHook.
func (t *T) Register(site generate.AnySite) {
	if t.registerOverride != nil {
		t.registerOverride(site)
	}
}

// setRegisterHook installs the callback Register forwards to; called
// once by the runner after constructing T.
func (t *T) setRegisterHook(fn func(generate.AnySite)) {
	t.registerOverride = fn
}

// Fail satisfies assert.TestingT / registry.TestingT — called once per
// failing Check/Require.
func (t *T) Fail() {
	t.failed = true
	t.numChecksFailed++
}

// Reporter satisfies assert.TestingT / registry.TestingT.
func (t *T) Reporter() assert.Reporter { return t.reporter }

// IncChecks satisfies the optional checkCounter capability assert.run
// looks for, letting the runner tally bus.TestResult.NumChecksTotal.
func (t *T) IncChecks() { t.numChecks++ }

// Name is this repetition's owning test name.
func (t *T) Name() string { return t.name }

// Stack is the generator cross-product stack for this test,
// threaded through every GENERATE-equivalent call in the body.
func (t *T) Stack() *generate.Stack { return t.stack }

// failDirectly marks the test failed without going through the
// checkCounter/Fail bookkeeping meant for assertions — used for
// uncaught exceptions, which are not a Check/Require call.
func (t *T) failDirectly() { t.failed = true }

// reset clears the per-repetition failure bookkeeping before the next
// pass through the test body; the generate.Stack persists across
// repetitions (it is what drives the odometer), everything else does
// not.
func (t *T) reset() {
	t.failed = false
	t.numChecks = 0
	t.numChecksFailed = 0
}
