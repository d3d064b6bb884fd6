package listeners

import (
	"github.com/taut-go/taut/bus"
	"github.com/taut-go/taut/term"
)

// ProgressPrinter answers on_pre_run_single_test/on_post_run_single_test
// with one line per test, the `--[no-]progress` surface named in
// spec.md §6 — cmd/taut only registers it when progress printing is
// enabled, so the listener itself carries no on/off flag.
type ProgressPrinter struct {
	bus.BaseListener

	Term term.Terminal
}

// NewProgressPrinter builds a progress printer writing through t.
func NewProgressPrinter(t term.Terminal) *ProgressPrinter {
	return &ProgressPrinter{Term: t}
}

func (p *ProgressPrinter) Capabilities() bus.Capability {
	return bus.CapPreRunSingleTest | bus.CapPostRunSingleTest
}

func (p *ProgressPrinter) OnPreRunSingleTest(test bus.TestInfo) {
	p.Term.Print("RUN  %s\n", test.Name)
}

func (p *ProgressPrinter) OnPostRunSingleTest(test bus.TestInfo, result bus.TestResult) {
	if !result.IsLastGeneratorRepeat {
		return
	}
	status := "PASS"
	style := term.StyleSuccess
	if !result.Passed {
		status = "FAIL"
		style = term.StyleError
	}
	delta := p.Term.AnsiDelta(term.StyleDefault, style)
	reset := p.Term.ResetString()
	p.Term.Print("%s%s%s %s\n", delta, status, reset, test.Name)
}
