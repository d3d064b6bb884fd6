// Package canvas implements the sparse 2-D glyph grid that backs every
// rendered diagnostic (failed-assertion diagrams, DSL caret errors).
package canvas

import "strings"

// Style is an opaque style tag; the term package knows how to turn one
// into an ANSI delta. Kept as a small value type so canvas never
// imports term.
type Style int

const StyleDefault Style = 0

// Cell is one glyph position on the canvas.
type Cell struct {
	Glyph     rune
	Style     Style
	Important bool // occupied by something that must not be overdrawn by a later free-space search
}

// Canvas is a vector of lines, each a vector of cells. Absent cells
// read as a space in StyleDefault.
type Canvas struct {
	lines [][]Cell
}

// New returns an empty canvas.
func New() *Canvas { return &Canvas{} }

// NumLines reports how many lines currently exist.
func (c *Canvas) NumLines() int { return len(c.lines) }

// EnsureLines grows the canvas to at least n lines.
func (c *Canvas) EnsureLines(n int) {
	for len(c.lines) < n {
		c.lines = append(c.lines, nil)
	}
}

// EnsureLineWidth grows line to at least n cells wide.
func (c *Canvas) EnsureLineWidth(line, n int) {
	c.EnsureLines(line + 1)
	for len(c.lines[line]) < n {
		c.lines[line] = append(c.lines[line], Cell{Glyph: ' '})
	}
}

// InsertLineBefore inserts a blank line at position n, shifting
// subsequent lines down.
func (c *Canvas) InsertLineBefore(n int) {
	c.EnsureLines(n)
	c.lines = append(c.lines, nil)
	copy(c.lines[n+1:], c.lines[n:])
	c.lines[n] = nil
}

// Cell returns the cell at (line, col), or a blank cell if out of range.
func (c *Canvas) Cell(line, col int) Cell {
	if line < 0 || line >= len(c.lines) || col < 0 || col >= len(c.lines[line]) {
		return Cell{Glyph: ' '}
	}
	return c.lines[line][col]
}

func (c *Canvas) setCell(line, col int, cell Cell, skipImportant bool) {
	c.EnsureLineWidth(line, col+1)
	if skipImportant && c.lines[line][col].Important {
		return
	}
	c.lines[line][col] = cell
}

// DrawString writes text starting at (line, col) in the given style,
// marking every written cell important.
func (c *Canvas) DrawString(line, col int, text string, style Style) {
	i := col
	for _, r := range text {
		c.setCell(line, i, Cell{Glyph: r, Style: style, Important: true}, false)
		i++
	}
}

// DrawRow draws width copies of ch starting at (line, col).
func (c *Canvas) DrawRow(line, col, width int, ch rune, style Style, skipImportant bool) {
	for i := 0; i < width; i++ {
		c.setCell(line, col+i, Cell{Glyph: ch, Style: style, Important: true}, skipImportant)
	}
}

// DrawColumn draws height copies of ch starting at (line, col), going down.
func (c *Canvas) DrawColumn(line, col, height int, ch rune, style Style, skipImportant bool) {
	for i := 0; i < height; i++ {
		c.setCell(line+i, col, Cell{Glyph: ch, Style: style, Important: true}, skipImportant)
	}
}

// BracketGlyphs names the glyphs used to draw a horizontal bracket.
type BracketGlyphs struct {
	Left, Right   rune
	Bottom        rune
	CornerLeft    rune
	CornerRight   rune
	Tail          rune // optional vertical tail dropped from the bottom-middle; 0 to omit
	TailHeight    int
}

// DrawHorizontalBracket draws a bracket spanning [col, col+width) whose
// sides extend down `height` lines from `line`, joined by a bottom bar,
// with an optional short tail descending from the middle.
func (c *Canvas) DrawHorizontalBracket(line, col, height, width int, style Style, glyphs BracketGlyphs) {
	c.DrawColumn(line, col, height, glyphs.Left, style, false)
	c.DrawColumn(line, col+width-1, height, glyphs.Right, style, false)
	bottom := line + height - 1
	c.setCell(bottom, col, Cell{Glyph: glyphs.CornerLeft, Style: style, Important: true}, false)
	c.setCell(bottom, col+width-1, Cell{Glyph: glyphs.CornerRight, Style: style, Important: true}, false)
	if width > 2 {
		c.DrawRow(bottom, col+1, width-2, glyphs.Bottom, style, false)
	}
	if glyphs.Tail != 0 && glyphs.TailHeight > 0 {
		mid := col + width/2
		c.DrawColumn(bottom+1, mid, glyphs.TailHeight, glyphs.Tail, style, false)
	}
}

// DrawOverline draws width copies of an overline glyph on the given
// line; choosing (or inserting) the line above the text it marks is
// the caller's job.
func (c *Canvas) DrawOverline(line, col, width int, style Style) {
	c.DrawRow(line, col, width, '‾', style, true)
}

// FindFreeSpace searches downward from startLine, stepping by
// verticalStep until a contiguous run has begun (then by 1), for
// `height` consecutive lines where columns [col-gap, col+width+gap)
// contain no Important cell. Returns the top line of the first such run.
func (c *Canvas) FindFreeSpace(startLine, col, height, width, gap, verticalStep int) int {
	if verticalStep < 1 {
		verticalStep = 1
	}
	lo := col - gap
	hi := col + width + gap

	rowFree := func(line int) bool {
		for cc := lo; cc < hi; cc++ {
			if c.Cell(line, cc).Important {
				return false
			}
		}
		return true
	}

	line := startLine
	step := verticalStep
	for {
		run := 0
		for run < height && rowFree(line+run) {
			run++
		}
		if run >= height {
			return line
		}
		if run > 0 {
			// a contiguous (but insufficient) run has begun; narrow the step
			line += run + 1
			step = 1
		} else {
			line += step
		}
	}
}

// Render writes the canvas as plain text, one line per output line,
// ignoring style (callers wanting colour use the listeners package,
// which walks cells directly and asks term for ANSI deltas).
func (c *Canvas) Render() string {
	var b strings.Builder
	for i, line := range c.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		end := len(line)
		for end > 0 && line[end-1].Glyph == ' ' {
			end--
		}
		for _, cell := range line[:end] {
			b.WriteRune(cell.Glyph)
		}
	}
	return b.String()
}

// Lines exposes the raw cell rows for renderers needing per-cell style
// information (e.g. the ANSI-aware printer in listeners).
func (c *Canvas) Lines() [][]Cell { return c.lines }
