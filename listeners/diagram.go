package listeners

import (
	"fmt"
	"strings"

	"github.com/taut-go/taut/assert"
	"github.com/taut-go/taut/bus"
	"github.com/taut-go/taut/internal/canvas"
	"github.com/taut-go/taut/internal/highlight"
	"github.com/taut-go/taut/term"
)

// highlightStyles maps internal/highlight's role palette onto term's
// concrete canvas.Style constants, so the diagrammer's pretty-printed
// expression line uses the same colours as every other diagnostic.
var highlightStyles = highlight.Styles{
	Normal:         term.StyleDefault,
	String:         term.StyleString,
	Number:         term.StyleNumber,
	KeywordGeneric: term.StyleKeywordGeneric,
	KeywordValue:   term.StyleKeywordValue,
	KeywordOp:      term.StyleKeywordOp,
}

// AssertionDiagrammer answers on_assertion_failed by composing a 2-D
// canvas that connects every $[...] marker's source position to the
// value it captured (spec.md §1, §4.4's failure diagnosis, S1's worked
// example), then prints it through a term.Terminal.
type AssertionDiagrammer struct {
	bus.BaseListener

	Term     term.Terminal
	Classify highlight.Classifier // identifier -> keyword kind, optional

	// Unicode selects box-drawing bracket glyphs over the ASCII
	// fallback (`--[no-]unicode`). The zero value selects the ASCII set;
	// NewAssertionDiagrammer turns Unicode on.
	Unicode bool
}

// NewAssertionDiagrammer builds a diagrammer printing through t, using
// unicode box-drawing glyphs for brackets.
func NewAssertionDiagrammer(t term.Terminal) *AssertionDiagrammer {
	return &AssertionDiagrammer{Term: t, Unicode: true}
}

func (d *AssertionDiagrammer) Capabilities() bus.Capability {
	return bus.CapAssertionFailed
}

func (d *AssertionDiagrammer) OnAssertionFailed(rec *assert.Record) {
	d.print("Assertion failed", rec)
}

// print renders header, the highlighted expression source, and one
// value per marker beneath its token, innermost markers first
// (rec.DrawOrder) so a nested marker's connector never gets drawn over
// by an enclosing one.
func (d *AssertionDiagrammer) print(header string, rec *assert.Record) {
	c := canvas.New()
	c.DrawString(0, 0, header, term.StyleError)
	if loc := rec.File(); loc != "" {
		c.DrawString(0, len(header)+1, fmt.Sprintf("(%s:%d)", loc, rec.Line()), term.StyleDim)
	}

	const exprLine = 2
	if rec.RawText != "" {
		highlight.Draw(c, exprLine, 0, rec.RawText, highlightStyles, d.Classify)
	}

	nextFree := exprLine + 2
	for _, idx := range rec.DrawOrder {
		arg := rec.Args[idx]
		slot := rec.Slots[idx]
		if slot.State != assert.Done {
			continue
		}
		nextFree = d.drawSlot(c, exprLine, arg, slot.Value, nextFree)
	}

	if msg := rec.ResolvedMessage(); msg != "" {
		c.DrawString(nextFree+1, 0, msg, term.StyleDim)
	}

	d.render(c)
}

var (
	unicodeBracketGlyphs = canvas.BracketGlyphs{Left: '│', Right: '│', Bottom: '─', CornerLeft: '└', CornerRight: '┘'}
	asciiBracketGlyphs   = canvas.BracketGlyphs{Left: '|', Right: '|', Bottom: '-', CornerLeft: '+', CornerRight: '+'}
)

// drawSlot places one marker's value below the expression line,
// connected by a vertical bar under its identifier, or by a bracket
// spanning the whole sub-expression when it needs one (spec.md §3's
// need_bracket flag). Returns the next free line for the caller's
// following slot.
func (d *AssertionDiagrammer) drawSlot(c *canvas.Canvas, exprLine int, arg assert.ArgInfo, value string, startLine int) int {
	width := max(len(value), arg.ExprLength)

	if arg.NeedBracket {
		glyphs := asciiBracketGlyphs
		if d.Unicode {
			glyphs = unicodeBracketGlyphs
		}
		top := c.FindFreeSpace(startLine, arg.ExprOffset, 2, width, 1, 1)
		c.DrawHorizontalBracket(exprLine+1, arg.ExprOffset, top-exprLine-1, arg.ExprLength, term.StyleBracket, glyphs)
		c.DrawString(top, arg.ExprOffset, value, term.StyleArgValue)
		return top + 1
	}

	top := c.FindFreeSpace(startLine, arg.IdentOffset, 1, width, 1, 1)
	c.DrawColumn(exprLine+1, arg.IdentOffset, top-exprLine-1, '|', term.StyleDim, true)
	c.DrawString(top, arg.IdentOffset, value, term.StyleArgValue)
	return top + 1
}

// render walks the canvas cell by cell, asking Term for an ANSI delta
// only when the style changes between adjacent cells (spec.md §4.2:
// "emits a colour delta only before the first non-space run in each
// style region"), and trims trailing blank columns per line.
func (d *AssertionDiagrammer) render(c *canvas.Canvas) {
	for _, line := range c.Lines() {
		var b strings.Builder
		cur := canvas.StyleDefault
		for _, cell := range line {
			if cell.Style != cur {
				b.WriteString(d.Term.AnsiDelta(cur, cell.Style))
				cur = cell.Style
			}
			b.WriteRune(cell.Glyph)
		}
		if cur != canvas.StyleDefault {
			b.WriteString(d.Term.ResetString())
		}
		d.Term.Print("%s\n", strings.TrimRight(b.String(), " "))
	}
}
