package runner

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taut-go/taut/assert"
	"github.com/taut-go/taut/bus"
	"github.com/taut-go/taut/generate"
	"github.com/taut-go/taut/listeners"
	"github.com/taut-go/taut/registry"
)

// e2eListener captures exactly the observable surface scenarios S1-S6
// describe: pass/fail counters and whatever an OnAssertionFailed
// listener was handed.
type e2eListener struct {
	bus.BaseListener
	summary bus.Summary
	failed  []*assert.Record
}

func (l *e2eListener) Capabilities() bus.Capability {
	return bus.CapPostRunTests | bus.CapAssertionFailed
}
func (l *e2eListener) OnPostRunTests(s bus.Summary)         { l.summary = s }
func (l *e2eListener) OnAssertionFailed(rec *assert.Record) { l.failed = append(l.failed, rec) }

// S1 — simple failing check: sum($[a], $[b]) == 7 with a=2, b=3.
func TestE2ES1SimpleFailingCheck(t *testing.T) {
	l := &e2eListener{}
	r := &Runner{Bus: bus.New(l), Catch: true}
	tc := &registry.Test{Name: "math/sum", Body: failingBody}

	code, err := r.Run(tests(tc), nil)
	require.NoError(t, err)
	require.NotEqual(t, ExitOK, code)
	require.Len(t, l.failed, 1)
	// TODO: once the listeners package's assertion diagrammer is wired
	// into this run, assert the rendered diagram text directly instead
	// of only the raw Record it would draw from.
	rec := l.failed[0]
	require.Contains(t, rec.RawText, "assert.V(a)+assert.V(b) == 7")
	require.Len(t, rec.Slots, 2)
	require.Equal(t, "2", rec.Slots[0].Value)
	require.Equal(t, "3", rec.Slots[1].Value)
}

// S2 — passing test, no output apart from progress: a=2, b=5.
func TestE2ES2PassingTestReportsExactCounters(t *testing.T) {
	l := &e2eListener{}
	r := &Runner{Bus: bus.New(l), Catch: true}
	body := func(rt registry.TestingT) {
		a, b := 2, 5
		assert.Check(rt, func() bool { return assert.V(a)+assert.V(b) == 7 })
	}
	tc := &registry.Test{Name: "math/sum", Body: body}

	code, err := r.Run(tests(tc), nil)
	require.NoError(t, err)
	require.Equal(t, ExitOK, code)
	require.Equal(t, 1, l.summary.NumTests)
	require.Equal(t, 0, l.summary.NumTestsFailed)
	require.Equal(t, 1, l.summary.NumAsserts)
	require.Equal(t, 0, l.summary.NumAssertsFailed)
}

// S3 — generator cross-product: x in {10,20,30}, y in {"a","b"}, visited
// in odometer order with the table holding at every tuple.
func TestE2ES3GeneratorCrossProduct(t *testing.T) {
	r, _ := newTestRunner()
	var visited [][2]any
	body := func(rt registry.TestingT) {
		rn := rt.(*T)
		stack := rn.Stack()
		xSite, err := generate.Use(stack, generate.Loc{File: "e2e", Line: 1}, func() *generate.Site[int] {
			return generate.New(generate.Loc{File: "e2e", Line: 1}, intSeq(10, 20, 30))
		}, nil)
		if err != nil {
			panic(err)
		}
		ySite, err := generate.Use(stack, generate.Loc{File: "e2e", Line: 2}, func() *generate.Site[string] {
			return generate.New(generate.Loc{File: "e2e", Line: 2}, strSeq("a", "b"))
		}, nil)
		if err != nil {
			panic(err)
		}
		visited = append(visited, [2]any{xSite.Current(), ySite.Current()})

		table := map[[2]any]bool{
			{10, "a"}: true, {10, "b"}: true,
			{20, "a"}: true, {20, "b"}: true,
			{30, "a"}: true, {30, "b"}: true,
		}
		assert.Check(rt, func() bool { return table[[2]any{assert.V(xSite.Current()), assert.V(ySite.Current())}] })
	}
	tc := &registry.Test{Name: "cross/product", Body: body}

	code, err := r.Run(tests(tc), nil)
	require.NoError(t, err)
	require.Equal(t, ExitOK, code)
	require.Len(t, visited, 6)
	require.Equal(t, [][2]any{
		{10, "a"}, {10, "b"}, {20, "a"}, {20, "b"}, {30, "a"}, {30, "b"},
	}, visited)
}

// S5 — non-determinism detection: the same skipped-generator body fails
// a warning-only path when the test has already failed an assertion,
// and escalates to a hard error when it would otherwise pass (covered
// separately by TestRunEscalatesNonDeterminismToHardErrorWhenTestWouldOtherwisePass).
func TestE2ES5NonDeterminismWarnsRatherThanHardErrorsOnAFailingTest(t *testing.T) {
	r, _ := newTestRunner()
	iteration := 0
	body := func(rt registry.TestingT) {
		rn := rt.(*T)
		stack := rn.Stack()
		iteration++

		assert.Check(rt, func() bool { return false }) // this repetition already fails

		if iteration == 1 {
			_, err := generate.Use(stack, generate.Loc{File: "f", Line: 1}, func() *generate.Site[int] {
				return generate.New(generate.Loc{File: "f", Line: 1}, intSeq(1, 2))
			}, nil)
			if err != nil {
				panic(err)
			}
			return
		}
		_, err := generate.Use(stack, generate.Loc{File: "f", Line: 99}, func() *generate.Site[int] {
			return generate.New(generate.Loc{File: "f", Line: 99}, intSeq(1))
		}, nil)
		if err != nil {
			panic(err)
		}
	}
	tc := &registry.Test{Name: "nondeterministic", Body: body}

	code, err := r.Run(tests(tc), nil)
	require.NoError(t, err, "a non-determinism mismatch on an already-failing repetition must warn, not hard-error")
	require.Equal(t, ExitTestFailed, code)
}

// S4 — `--generate` override: x{#1,=42} keeps only x's first natural
// value (10) then appends the custom value 42; y-=a removes "a" from
// y's natural sequence, leaving only "b". Expected repetitions:
// (10,b), (42,b).
func TestE2ES4GeneratorOverrideDrainsNaturalThenCustom(t *testing.T) {
	overrider := listeners.NewGeneratorOverrider()
	b := bus.New(overrider)
	r := &Runner{Bus: b, Overrider: overrider, Catch: true}

	directives, err := ParseGenerateDirectives([]string{"the_test//x{#1,=42},y-=a"})
	require.NoError(t, err)

	var visited [][2]any
	body := func(rt registry.TestingT) {
		rn := rt.(*T)
		stack := rn.Stack()

		xSite, err := generate.Use(stack, generate.Loc{File: "e2e", Line: 10}, func() *generate.Site[int] {
			return generate.New(generate.Loc{File: "e2e", Line: 10}, intSeq(10, 20, 30)).
				WithName("x").
				WithParser(func(s string) (int, bool) {
					v, err := strconv.Atoi(s)
					return v, err == nil
				})
		}, rn.Register)
		if err != nil {
			panic(err)
		}

		ySite, err := generate.Use(stack, generate.Loc{File: "e2e", Line: 11}, func() *generate.Site[string] {
			return generate.New(generate.Loc{File: "e2e", Line: 11}, strSeq("a", "b")).WithName("y")
		}, rn.Register)
		if err != nil {
			panic(err)
		}

		visited = append(visited, [2]any{xSite.Current(), ySite.Current()})
		assert.Check(rt, func() bool { return true })
	}
	tc := &registry.Test{Name: "the_test", Body: body}

	code, err := r.Run(tests(tc), directives)
	require.NoError(t, err)
	require.Equal(t, ExitOK, code)
	require.Equal(t, [][2]any{
		{10, "b"}, {42, "b"},
	}, visited)
}
