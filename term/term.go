// Package term is the Terminal collaborator named in spec.md §6: a
// print sink, an ANSI-delta producer, and a TTY probe. The core never
// touches the byte stream directly — every diagnostic is composed on
// an internal/canvas.Canvas using canvas.Style tags, and term is the
// only package that knows how to turn a Style into real ANSI codes.
//
// Grounded on the teacher's colour/no-color branching in
// runtime/cli/harness.go, generalized from a single noColor bool into
// a full terminal collaborator wired to the real colour/TTY libraries
// named in SPEC_FULL.md's domain stack: fatih/color for SGR sequences,
// mattn/go-isatty for the TTY probe, mattn/go-colorable for a Windows-
// safe stdout writer.
package term

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/taut-go/taut/internal/canvas"
)

// Style constants used throughout the diagrammer and pretty-printer;
// canvas.Style is an opaque int so canvas itself never imports term.
const (
	StyleDefault        canvas.Style = canvas.StyleDefault
	StyleString         canvas.Style = 1
	StyleChar           canvas.Style = 2
	StyleRawString      canvas.Style = 3
	StyleNumber         canvas.Style = 4
	StyleKeywordGeneric canvas.Style = 5
	StyleKeywordValue   canvas.Style = 6
	StyleKeywordOp      canvas.Style = 7
	StyleError          canvas.Style = 8
	StyleSuccess        canvas.Style = 9
	StyleDim            canvas.Style = 10
	StyleArgValue       canvas.Style = 11
	StyleBracket        canvas.Style = 12
)

// Terminal is the sink every diagnostic is ultimately printed through.
type Terminal interface {
	Print(format string, args ...any)
	AnsiDelta(cur, next canvas.Style) string
	ResetString() string
	IsTTY() bool
}

// Options configures a Default terminal; zero value auto-detects.
type Options struct {
	Writer       io.Writer
	ForceColor   *bool // nil: auto (TTY-detected); non-nil: --[no-]color
	UseUnicode   bool
}

// Default is the real terminal: colour via fatih/color, TTY detection
// via mattn/go-isatty, Windows-safe writing via mattn/go-colorable.
type Default struct {
	w       io.Writer
	colored bool
	isTTY   bool
}

// New builds the default terminal collaborator. If opts.Writer is nil,
// stdout is wrapped with go-colorable so ANSI codes render correctly
// on legacy Windows consoles too.
func New(opts Options) *Default {
	w := opts.Writer
	isTTY := false
	if w == nil {
		isTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		w = colorable.NewColorable(os.Stdout)
	}

	colored := isTTY
	if opts.ForceColor != nil {
		colored = *opts.ForceColor
	}

	return &Default{w: w, colored: colored, isTTY: isTTY}
}

func (d *Default) Print(format string, args ...any) {
	fmt.Fprintf(d.w, format, args...)
}

func (d *Default) IsTTY() bool { return d.isTTY }

// AnsiDelta returns the escape sequence to transition from cur to
// next, or "" if no change is needed or colour is disabled. The
// listeners package's diagram renderer calls this once per style
// region, not once per glyph, so output stays dense when colour
// doesn't change.
func (d *Default) AnsiDelta(cur, next canvas.Style) string {
	if !d.colored || cur == next {
		return ""
	}
	attrs := attrsFor(next)
	if len(attrs) == 0 {
		return d.ResetString()
	}
	codes := make([]string, len(attrs))
	for i, a := range attrs {
		codes[i] = strconv.Itoa(int(a))
	}
	return fmt.Sprintf("\x1b[%sm", strings.Join(codes, ";"))
}

func (d *Default) ResetString() string {
	if !d.colored {
		return ""
	}
	return fmt.Sprintf("\x1b[%dm", color.Reset)
}

// attrsFor maps a canvas.Style to the fatih/color SGR attributes that
// render it; the color package's exported Attribute constants are used
// directly so the mapping stays in lock-step with whatever terminal
// profile color.New would have produced.
func attrsFor(s canvas.Style) []color.Attribute {
	switch s {
	case StyleString, StyleRawString:
		return []color.Attribute{color.FgGreen}
	case StyleChar:
		return []color.Attribute{color.FgYellow}
	case StyleNumber:
		return []color.Attribute{color.FgCyan}
	case StyleKeywordGeneric, StyleKeywordOp:
		return []color.Attribute{color.FgMagenta, color.Bold}
	case StyleKeywordValue:
		return []color.Attribute{color.FgBlue, color.Bold}
	case StyleError:
		return []color.Attribute{color.FgRed, color.Bold}
	case StyleSuccess:
		return []color.Attribute{color.FgGreen, color.Bold}
	case StyleDim:
		return []color.Attribute{color.Faint}
	case StyleArgValue:
		return []color.Attribute{color.FgYellow, color.Bold}
	case StyleBracket:
		return []color.Attribute{color.FgCyan, color.Bold}
	default:
		return nil
	}
}
