package listeners

import (
	"github.com/taut-go/taut/bus"
	"github.com/taut-go/taut/term"
)

// ResultsSummary answers on_post_run_tests with the final tally line
// spec.md §3's RunTestsProgress aggregates across a run: tests passed
// vs. total, and checks passed vs. total.
type ResultsSummary struct {
	bus.BaseListener

	Term term.Terminal
}

// NewResultsSummary builds a summary printer writing through t.
func NewResultsSummary(t term.Terminal) *ResultsSummary {
	return &ResultsSummary{Term: t}
}

func (s *ResultsSummary) Capabilities() bus.Capability { return bus.CapPostRunTests }

func (s *ResultsSummary) OnPostRunTests(summary bus.Summary) {
	style := term.StyleSuccess
	if summary.NumTestsFailed > 0 {
		style = term.StyleError
	}
	delta := s.Term.AnsiDelta(term.StyleDefault, style)
	reset := s.Term.ResetString()
	s.Term.Print("%s%d/%d tests passed%s, %d/%d checks passed\n",
		delta, summary.NumTests-summary.NumTestsFailed, summary.NumTests, reset,
		summary.NumAsserts-summary.NumAssertsFailed, summary.NumAsserts)
}
