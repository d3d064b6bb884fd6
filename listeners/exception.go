package listeners

import (
	"errors"
	"fmt"

	"github.com/taut-go/taut/assert"
	"github.com/taut-go/taut/bus"
	"github.com/taut-go/taut/term"
)

// ExceptionFrame is one record in an exception's cause chain —
// spec.md §6's Exception analyser collaborator contract
// ({type_name, message, nested?}).
type ExceptionFrame struct {
	TypeName string
	Message  string
}

// ExceptionAnalyser turns a recovered panic value into its chain of
// causes, outermost first. The core only ever consumes this sequence;
// it never inspects the recovered value itself.
type ExceptionAnalyser interface {
	Analyse(recovered any) []ExceptionFrame
}

// DefaultAnalyser walks Go's own error-wrapping chain via
// errors.Unwrap; a recovered value that isn't an error becomes a
// single frame naming its dynamic type.
type DefaultAnalyser struct{}

func (DefaultAnalyser) Analyse(recovered any) []ExceptionFrame {
	err, ok := recovered.(error)
	if !ok {
		return []ExceptionFrame{{TypeName: fmt.Sprintf("%T", recovered), Message: fmt.Sprint(recovered)}}
	}
	var frames []ExceptionFrame
	for err != nil {
		frames = append(frames, ExceptionFrame{TypeName: fmt.Sprintf("%T", err), Message: err.Error()})
		err = errors.Unwrap(err)
	}
	return frames
}

// ExceptionPrinter answers on_uncaught_exception, printing the record's
// RawText (the runner puts the test name there) and the analyser's
// cause chain nested from outermost to innermost. No source location
// is printed.
type ExceptionPrinter struct {
	bus.BaseListener

	Term     term.Terminal
	Analyser ExceptionAnalyser
}

// NewExceptionPrinter builds a printer using DefaultAnalyser unless a
// richer one is assigned afterward.
func NewExceptionPrinter(t term.Terminal) *ExceptionPrinter {
	return &ExceptionPrinter{Term: t, Analyser: DefaultAnalyser{}}
}

func (p *ExceptionPrinter) Capabilities() bus.Capability { return bus.CapUncaughtException }

func (p *ExceptionPrinter) OnUncaughtException(rec *assert.Record, recovered any) {
	delta := p.Term.AnsiDelta(term.StyleDefault, term.StyleError)
	reset := p.Term.ResetString()
	p.Term.Print("%sUncaught exception%s in %s\n", delta, reset, rec.RawText)

	analyser := p.Analyser
	if analyser == nil {
		analyser = DefaultAnalyser{}
	}
	for i, frame := range analyser.Analyse(recovered) {
		indent := ""
		for j := 0; j < i; j++ {
			indent += "  "
		}
		p.Term.Print("%s%s: %s\n", indent, frame.TypeName, frame.Message)
	}
}
