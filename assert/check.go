package assert

import (
	"fmt"
	"runtime"
	"sort"

	tcontext "github.com/taut-go/taut/context"
	"github.com/taut-go/taut/internal/srcexpr"
)

// InterruptTest is the sentinel thrown (via panic) to unwind a hard
// failure back to the runner, exactly matching spec.md §5/§7's
// "exception for control flow." It is recovered only by the runner.
type InterruptTest struct{}

func (InterruptTest) Error() string { return "taut: test interrupted" }

// Check evaluates cond and reports a soft failure (the test continues)
// if it is false. It returns the condition's value.
func Check(t TestingT, cond func() bool, opts ...Options) bool {
	return run(t, cond, FlagSoft, "Check", opts)
}

// Require evaluates cond and, on failure, throws InterruptTest after
// reporting — the test body does not continue past this line.
func Require(t TestingT, cond func() bool, opts ...Options) bool {
	return run(t, cond, FlagHard, "Require", opts)
}

func run(t TestingT, cond func() bool, defaultFlags Flags, calleeName string, opts []Options) bool {
	pc, file, line, ok := runtime.Caller(2) // skip run -> Check/Require -> caller
	var rec *Record
	if ok {
		rec = newRecord(pc, file, line, calleeName)
	} else {
		rec = &Record{}
	}
	for _, o := range opts {
		if o.Flags != 0 {
			rec.Flags = o.Flags
		}
		if o.Message != nil {
			rec.Message = o.Message
		}
	}
	if rec.Flags == 0 {
		rec.Flags = defaultFlags
	}

	s := stateFor()
	s.mu.Lock()
	if len(s.stack) > 0 {
		rec.Enclosing = s.stack[len(s.stack)-1]
	}
	s.stack = append(s.stack, rec)
	s.mu.Unlock()

	guard := tcontext.NewGuard(rec)

	value := cond()

	s.mu.Lock()
	if len(s.stack) == 0 || s.stack[len(s.stack)-1] != rec {
		s.mu.Unlock()
		guard.Release()
		panic("assert: assertion stack corrupted — did a condition resume across a suspension point?")
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.mu.Unlock()
	guard.Release()

	rec.Result = &value
	if cc, ok := t.(checkCounter); ok {
		cc.IncChecks()
	}
	if !value {
		diagnose(t, rec)
	}
	return value
}

// checkCounter is an optional capability a TestingT may implement to
// track how many Check/Require calls a test made, independent of
// pass/fail — the runner's *runner.T implements it for
// bus.TestResult's NumChecksTotal; nothing requires it, so fakes in
// tests of this package are unaffected.
type checkCounter interface {
	IncChecks()
}

// CheckSimple is the degraded, position-losing fallback named in
// spec.md's Design Notes for sites internal/srcexpr cannot parse
// (non-.go callers, reflection-driven calls): values are recorded in
// call order with no diagram.
func CheckSimple(t TestingT, rawText string, cond bool, values ...any) bool {
	rec := &Record{RawText: rawText}
	for _, v := range values {
		rec.Slots = append(rec.Slots, StoredArg{State: Done, Value: sprint(v)})
	}
	rec.Result = &cond
	rec.Flags = FlagSoft
	if !cond {
		diagnose(t, rec)
	}
	return cond
}

func newRecord(pc uintptr, file string, line int, calleeName string) *Record {
	site, err := srcexpr.Lookup(pc, file, line, calleeName)
	rec := &Record{file: file, line: line}
	if err != nil {
		rec.RawText = "<unavailable>"
		return rec
	}
	rec.RawText = site.RawText
	rec.Slots = make([]StoredArg, len(site.Markers))
	rec.Args = make([]ArgInfo, len(site.Markers))
	for i, m := range site.Markers {
		rec.Args[i] = ArgInfo{
			IdentOffset: m.IdentOffset, IdentLength: m.IdentLength,
			ExprOffset: m.ExprOffset, ExprLength: m.ExprLength,
			NeedBracket: m.NeedBracket,
			Line:        m.Line,
		}
	}
	rec.DrawOrder = drawOrder(rec.Args)
	return rec
}

// drawOrder computes the innermost-first permutation used when
// filling in the diagram, ties broken by source position (spec.md §3).
func drawOrder(args []ArgInfo) []int {
	order := make([]int, len(args))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := args[order[i]], args[order[j]]
		if a.ExprLength != b.ExprLength {
			return a.ExprLength < b.ExprLength // shorter (more nested) span draws first
		}
		return a.ExprOffset < b.ExprOffset
	})
	return order
}

func diagnose(t TestingT, rec *Record) {
	r := t.Reporter()
	r.OnPreFailTest()
	t.Fail()
	r.OnAssertionFailed(rec)
	if r.ShouldBreak() {
		breakpoint()
	}
	if rec.Flags&FlagHard != 0 {
		panic(InterruptTest{})
	}
}

// breakpoint is a variable so tests can observe the call without
// raising a real SIGTRAP, which ends a process with no debugger.
var breakpoint = func() { runtime.Breakpoint() }

func sprint(v any) string {
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
