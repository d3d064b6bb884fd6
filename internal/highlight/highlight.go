// Package highlight drives internal/lexer to colour an expression
// snippet onto an internal/canvas.Canvas: strings, characters, raw
// strings, numeric literals (including `_`-prefixed suffixes distinct
// from integer-type suffixes), and keywords classified by a
// caller-supplied lookup into {generic, value, op}.
package highlight

import (
	"github.com/taut-go/taut/internal/canvas"
	"github.com/taut-go/taut/internal/lexer"
)

// KeywordKind classifies a keyword for colouring purposes.
type KeywordKind int

const (
	KeywordNone KeywordKind = iota
	KeywordGeneric
	KeywordValue // true, false, nil
	KeywordOp    // && || ! == etc. when spelled as words
)

// Styles names the canvas.Style values this package emits. Callers
// (typically term.Terminal) map each to an actual ANSI colour.
type Styles struct {
	Normal, String, Number, KeywordGeneric, KeywordValue, KeywordOp canvas.Style
}

// DefaultStyles assigns small distinct integers; term.Terminal is
// expected to interpret them via its own palette rather than relying
// on these exact values, but they are stable and safe to use directly
// when no terminal is available (e.g. plain-text rendering).
var DefaultStyles = Styles{
	Normal:         canvas.StyleDefault,
	String:         1,
	Number:         2,
	KeywordGeneric: 3,
	KeywordValue:   4,
	KeywordOp:      5,
}

// Classifier maps an identifier to a keyword kind; identifiers it
// doesn't recognise are not keywords.
type Classifier func(ident string) KeywordKind

// Draw colours expr onto c starting at (line, col) using styles and
// classify, returning the number of columns written (== len(expr)).
func Draw(c *canvas.Canvas, line, col int, expr string, styles Styles, classify Classifier) int {
	src := []byte(expr)
	runStart := 0
	runStyle := styles.Normal
	var identBuf []byte
	identStart := -1

	flushIdent := func(end int) {
		if identStart < 0 {
			return
		}
		ident := string(identBuf)
		kind := KeywordNone
		if classify != nil {
			kind = classify(ident)
		}
		style := styles.Normal
		switch kind {
		case KeywordGeneric:
			style = styles.KeywordGeneric
		case KeywordValue:
			style = styles.KeywordValue
		case KeywordOp:
			style = styles.KeywordOp
		}
		for i := identStart; i < end; i++ {
			c.DrawString(line, col+i, string(expr[i]), style)
		}
		identBuf = nil
		identStart = -1
	}

	kinds := make([]lexer.Kind, len(src))
	lexer.Scan(src, func(offset int, _ byte, k lexer.Kind, _ lexer.State) {
		kinds[offset] = k
	}, nil)

	for i := 0; i < len(src); i++ {
		kind := kinds[i]
		style := styles.Normal
		switch kind {
		case lexer.KindString:
			style = styles.String
		case lexer.KindNumber:
			style = styles.Number
		}

		if kind == lexer.KindNormal && isIdentByte(src[i]) {
			if identStart < 0 {
				identStart = i
			}
			identBuf = append(identBuf, src[i])
			continue
		}
		flushIdent(i)

		c.DrawString(line, col+i, string(expr[i]), style)
	}
	flushIdent(len(src))

	_ = runStart
	_ = runStyle
	return len(src)
}

func isIdentByte(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// IsNumericSuffix reports whether suffix (the trailing run of an
// identifier attached to a numeric literal, e.g. "i64" or "_custom")
// is a user-defined literal suffix (leading `_`) as opposed to a
// built-in integer-type suffix.
func IsNumericSuffix(suffix string) bool {
	return len(suffix) > 0 && suffix[0] == '_'
}
