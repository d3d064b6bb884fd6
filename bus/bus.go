// Package bus implements the module/event bus (spec.md §4.9): a
// registry of listeners, each declaring via a statically-computed
// capability bitmask which events it cares about. At construction time
// the bus precomputes, for every event kind, the ordered list of
// listeners that override it, so a call site dispatches only to that
// list instead of probing every listener on every event.
//
// Grounded on the teacher's decorator registry
// (opal-lang-opal/pkgs/decorators/registry.go): type-indexed maps
// populated once and read many times, generalized here from decorator
// name lookup to a capability-bitmask event index.
package bus

import (
	"github.com/taut-go/taut/assert"
	tcontext "github.com/taut-go/taut/context"
	"github.com/taut-go/taut/generate"
)

// Capability is the bitmask a Listener declares: which events it
// overrides. Listeners that leave a bit unset are never placed in that
// event's dispatch list, so the overwhelming majority of no-op
// listeners cost nothing at the call site.
type Capability uint32

const (
	CapFilterTest Capability = 1 << iota
	CapPreRunTests
	CapPostRunTests
	CapPreRunSingleTest
	CapPostRunSingleTest
	CapPreTryCatch
	CapPreFailTest
	CapAssertionFailed
	CapUncaughtException
	CapRegisterGeneratorOverride
	CapPrintContextFrame
	CapPrintLogEntry
)

// Listener is implemented by every built-in or user-supplied bus
// participant. Embedding BaseListener gives a no-op default for every
// method, so a concrete listener only needs to override the handful it
// declares in Capabilities.
type Listener interface {
	Capabilities() Capability

	OnFilterTest(t FilterableTest) TestState
	OnPreRunTests()
	OnPostRunTests(summary Summary)
	OnPreRunSingleTest(test TestInfo)
	OnPostRunSingleTest(test TestInfo, result TestResult)
	OnPreTryCatch(test TestInfo) (shouldCatch bool)
	OnPreFailTest(test TestInfo)
	OnAssertionFailed(rec *assert.Record)
	OnUncaughtException(rec *assert.Record, recovered any)
	OnRegisterGeneratorOverride(site generate.AnySite) (claimed generate.Overrider)
	OnPrintContextFrame(f tcontext.Frame) (handled bool)
	OnPrintLogEntry(f tcontext.Frame) (handled bool)
}

// TestState is the enabled/disabled state a test carries into, and out
// of, the filter pass (spec.md §4.8 step 1).
type TestState int

const (
	Disabled TestState = iota
	Enabled
)

// FilterableTest is the minimal view of a registered test the filter
// pass needs.
type FilterableTest struct {
	Name     string
	State    TestState
}

// TestInfo identifies the test currently running, for lifecycle events.
type TestInfo struct {
	Name string
	File string
	Line int
}

// TestResult is the per-repetition outcome reported after a test body
// runs (spec.md §4.8 step 4).
type TestResult struct {
	Passed                bool
	NumChecksTotal        int
	NumChecksFailed       int
	IsLastGeneratorRepeat bool
}

// Summary is the aggregate result reported at on_post_run_tests.
type Summary struct {
	NumTests       int
	NumTestsFailed int
	NumAsserts     int
	NumAssertsFailed int
}

// BaseListener is embedded by concrete listeners to satisfy Listener
// with no-op defaults; override only the methods your Capabilities bit
// set calls for.
type BaseListener struct{}

func (BaseListener) Capabilities() Capability { return 0 }
func (BaseListener) OnFilterTest(t FilterableTest) TestState {
	return t.State
}
func (BaseListener) OnPreRunTests()                                   {}
func (BaseListener) OnPostRunTests(Summary)                           {}
func (BaseListener) OnPreRunSingleTest(TestInfo)                      {}
func (BaseListener) OnPostRunSingleTest(TestInfo, TestResult)         {}
func (BaseListener) OnPreTryCatch(TestInfo) bool                      { return true }
func (BaseListener) OnPreFailTest(TestInfo)                           {}
func (BaseListener) OnAssertionFailed(*assert.Record)                 {}
func (BaseListener) OnUncaughtException(*assert.Record, any)          {}
func (BaseListener) OnRegisterGeneratorOverride(generate.AnySite) generate.Overrider {
	return nil
}
func (BaseListener) OnPrintContextFrame(tcontext.Frame) bool { return false }
func (BaseListener) OnPrintLogEntry(tcontext.Frame) bool     { return false }

// Bus is the precomputed dispatch table.
type Bus struct {
	filterTest               []Listener
	preRunTests              []Listener
	postRunTests             []Listener
	preRunSingleTest         []Listener
	postRunSingleTest        []Listener
	preTryCatch              []Listener
	preFailTest              []Listener
	assertionFailed          []Listener
	uncaughtException        []Listener
	registerGeneratorOverride []Listener
	printContextFrame        []Listener
	printLogEntry            []Listener

	shouldBreak bool
}

// New builds a Bus and precomputes every event's dispatch list from
// each listener's declared Capability bitmask (spec.md §4.9).
func New(listeners ...Listener) *Bus {
	b := &Bus{}
	for _, l := range listeners {
		caps := l.Capabilities()
		if caps&CapFilterTest != 0 {
			b.filterTest = append(b.filterTest, l)
		}
		if caps&CapPreRunTests != 0 {
			b.preRunTests = append(b.preRunTests, l)
		}
		if caps&CapPostRunTests != 0 {
			b.postRunTests = append(b.postRunTests, l)
		}
		if caps&CapPreRunSingleTest != 0 {
			b.preRunSingleTest = append(b.preRunSingleTest, l)
		}
		if caps&CapPostRunSingleTest != 0 {
			b.postRunSingleTest = append(b.postRunSingleTest, l)
		}
		if caps&CapPreTryCatch != 0 {
			b.preTryCatch = append(b.preTryCatch, l)
		}
		if caps&CapPreFailTest != 0 {
			b.preFailTest = append(b.preFailTest, l)
		}
		if caps&CapAssertionFailed != 0 {
			b.assertionFailed = append(b.assertionFailed, l)
		}
		if caps&CapUncaughtException != 0 {
			b.uncaughtException = append(b.uncaughtException, l)
		}
		if caps&CapRegisterGeneratorOverride != 0 {
			b.registerGeneratorOverride = append(b.registerGeneratorOverride, l)
		}
		if caps&CapPrintContextFrame != 0 {
			b.printContextFrame = append(b.printContextFrame, l)
		}
		if caps&CapPrintLogEntry != 0 {
			b.printLogEntry = append(b.printLogEntry, l)
		}
	}
	return b
}

func (b *Bus) FilterTest(t FilterableTest) TestState {
	state := t.State
	for _, l := range b.filterTest {
		t.State = state
		state = l.OnFilterTest(t)
	}
	return state
}

func (b *Bus) PreRunTests() {
	for _, l := range b.preRunTests {
		l.OnPreRunTests()
	}
}

func (b *Bus) PostRunTests(s Summary) {
	for _, l := range b.postRunTests {
		l.OnPostRunTests(s)
	}
}

func (b *Bus) PreRunSingleTest(t TestInfo) {
	for _, l := range b.preRunSingleTest {
		l.OnPreRunSingleTest(t)
	}
}

func (b *Bus) PostRunSingleTest(t TestInfo, r TestResult) {
	for _, l := range b.postRunSingleTest {
		l.OnPostRunSingleTest(t, r)
	}
}

// PreTryCatch returns whether the runner should catch exceptions
// raised inside the test body; the last listener to answer wins, as
// there is ordinarily at most one (the runner's own flag-driven
// listener).
func (b *Bus) PreTryCatch(t TestInfo) bool {
	should := true
	for _, l := range b.preTryCatch {
		should = l.OnPreTryCatch(t)
	}
	return should
}

func (b *Bus) PreFailTest(t TestInfo) {
	for _, l := range b.preFailTest {
		l.OnPreFailTest(t)
	}
}

// OnPreFailTest satisfies assert.Reporter.
func (b *Bus) OnPreFailTest() { b.PreFailTest(TestInfo{}) }

// OnAssertionFailed satisfies assert.Reporter.
func (b *Bus) OnAssertionFailed(rec *assert.Record) {
	for _, l := range b.assertionFailed {
		l.OnAssertionFailed(rec)
	}
	if rec.ShouldBreak {
		b.shouldBreak = true
	}
	b.printTrail()
}

// OnUncaughtException satisfies assert.Reporter.
func (b *Bus) OnUncaughtException(rec *assert.Record, recovered any) {
	for _, l := range b.uncaughtException {
		l.OnUncaughtException(rec, recovered)
	}
	b.printTrail()
}

// printTrail walks the calling goroutine's context stack newest to
// oldest (spec.md §4.7: "printing walks from newest to oldest") after
// an assertion failure or uncaught exception, routing each frame to
// PrintLogEntry or PrintContextFrame depending on its concrete kind.
func (b *Bus) printTrail() {
	frames := tcontext.Snapshot()
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		if _, ok := f.(*tcontext.LogEntry); ok {
			b.PrintLogEntry(f)
			continue
		}
		b.PrintContextFrame(f)
	}
}

// ShouldBreak satisfies assert.Reporter; it is polled and reset after
// each assertion diagnosis.
func (b *Bus) ShouldBreak() bool {
	v := b.shouldBreak
	b.shouldBreak = false
	return v
}

// RegisterGeneratorOverride offers site to every listener declaring
// CapRegisterGeneratorOverride in registration order; the first to
// claim it (a non-nil return) wins (spec.md §4.5 step 1).
func (b *Bus) RegisterGeneratorOverride(site generate.AnySite) generate.Overrider {
	for _, l := range b.registerGeneratorOverride {
		if ov := l.OnRegisterGeneratorOverride(site); ov != nil {
			return ov
		}
	}
	return nil
}

// PrintContextFrame dispatches to context-frame printers in the order
// they were registered until one reports handled (spec.md §4.7:
// "the first to claim consumes the frame").
func (b *Bus) PrintContextFrame(f tcontext.Frame) {
	for _, l := range b.printContextFrame {
		if l.OnPrintContextFrame(f) {
			return
		}
	}
}

// PrintLogEntry dispatches a log frame the same way PrintContextFrame
// does: first listener to claim it wins.
func (b *Bus) PrintLogEntry(f tcontext.Frame) {
	for _, l := range b.printLogEntry {
		if l.OnPrintLogEntry(f) {
			return
		}
	}
}
