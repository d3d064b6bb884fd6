package listeners

import (
	"fmt"
	"strings"

	"github.com/taut-go/taut/internal/canvas"
)

// fakeTerminal is a plain-text term.Terminal for listener tests: no
// colour, so assertions can match printed text directly instead of
// decoding ANSI escapes.
type fakeTerminal struct {
	lines []string
}

func (f *fakeTerminal) Print(format string, args ...any) {
	f.lines = append(f.lines, fmt.Sprintf(format, args...))
}

func (f *fakeTerminal) AnsiDelta(cur, next canvas.Style) string { return "" }
func (f *fakeTerminal) ResetString() string                    { return "" }
func (f *fakeTerminal) IsTTY() bool                             { return false }

func (f *fakeTerminal) output() string { return strings.Join(f.lines, "") }
