package listeners

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taut-go/taut/assert"
	"github.com/taut-go/taut/bus"
)

func TestDefaultAnalyserWalksErrorUnwrapChain(t *testing.T) {
	root := errors.New("disk full")
	wrapped := fmt.Errorf("write failed: %w", root)

	frames := DefaultAnalyser{}.Analyse(wrapped)

	require.Len(t, frames, 2)
	require.Equal(t, "write failed: disk full", frames[0].Message)
	require.Equal(t, "disk full", frames[1].Message)
}

func TestDefaultAnalyserFallsBackToDynamicTypeForNonErrors(t *testing.T) {
	frames := DefaultAnalyser{}.Analyse("boom")
	require.Equal(t, []ExceptionFrame{{TypeName: "string", Message: "boom"}}, frames)
}

func TestExceptionPrinterPrintsTestAndCauseChain(t *testing.T) {
	term := &fakeTerminal{}
	p := NewExceptionPrinter(term)
	rec := &assert.Record{RawText: "do_thing()"}

	p.OnUncaughtException(rec, errors.New("kaboom"))

	require.Equal(t, []string{
		"Uncaught exception in do_thing()\n",
		"*errors.errorString: kaboom\n",
	}, term.lines)
}

func TestExceptionPrinterUsesAssignedAnalyser(t *testing.T) {
	term := &fakeTerminal{}
	p := NewExceptionPrinter(term)
	p.Analyser = stubAnalyser{frames: []ExceptionFrame{{TypeName: "custom", Message: "m1"}, {TypeName: "nested", Message: "m2"}}}
	rec := &assert.Record{RawText: "x()"}

	p.OnUncaughtException(rec, nil)

	require.Equal(t, []string{
		"Uncaught exception in x()\n",
		"custom: m1\n",
		"  nested: m2\n",
	}, term.lines)
}

func TestExceptionPrinterDeclaresUncaughtExceptionCapability(t *testing.T) {
	p := NewExceptionPrinter(&fakeTerminal{})
	require.Equal(t, bus.CapUncaughtException, p.Capabilities())
}

type stubAnalyser struct {
	frames []ExceptionFrame
}

func (s stubAnalyser) Analyse(any) []ExceptionFrame { return s.frames }
