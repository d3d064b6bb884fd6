// Package override implements the recursive-descent parser for the
// `--generate` override DSL (spec.md §4.6): a small grammar describing
// which generator values a run should accept, reject, or substitute.
//
// Grounded on the teacher's hand-written recursive-descent parser
// (opal-lang-opal/pkgs/parser/parser.go): a cursor struct walking a
// token/byte stream with current()/advance() helpers, synchronising
// past bad input instead of aborting the whole parse on one error.
// Diagnostic formatting is grounded on pkgs/parser/errors.go's
// "--> line:col / | / caret" layout, reused here for a byte offset
// into the argument string rather than a source file.
package override

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taut-go/taut/internal/lexer"
)

// RuleKind distinguishes the five rule forms in spec.md §4.6's grammar.
type RuleKind int

const (
	RuleCustomValue RuleKind = iota // "=value"
	RuleRemoveValue                 // "-=value"
	RuleAcceptRange                 // "#range"
	RuleRemoveRange                 // "-#range"
	RuleJoined                      // "&rule", sharing one Scope with its siblings
)

// Range is a half-open, 0-based index range parsed from the 1-based
// syntax described in spec.md §4.6. NoEnd means "open to infinity".
type Range struct {
	Start int
	End   int // exclusive; NoEnd if the syntax omitted the upper bound
}

const NoEnd = -1

// Contains reports whether 0-based index i falls in the range.
func (r Range) Contains(i int) bool {
	if i < r.Start {
		return false
	}
	return r.End == NoEnd || i < r.End
}

// Rule is one parsed rule attached to an Entry.
type Rule struct {
	Kind  RuleKind
	Value string // RuleCustomValue / RuleRemoveValue
	Range Range  // RuleAcceptRange / RuleRemoveRange
	Scope *Program
	// Joined holds sibling positive rules '&'-joined to share one
	// Scope; only set on the first rule of the joined group.
	Joined []Rule

	Span Span

	// WasUsed and MaxIndexAffected are filled in during a run for the
	// post-run validation described in spec.md §4.6: every rule that
	// matched at least one test must have been used, and a range rule's
	// declared upper bound must not exceed the highest index it
	// actually affected.
	WasUsed          bool
	MaxIndexAffected int
}

// IsPositive reports whether this rule's default effect is to accept
// (as opposed to remove) a value — used to decide the program's
// default acceptance per spec.md §4.6 ("the first rule decides the
// default acceptance").
func (r Rule) IsPositive() bool {
	switch r.Kind {
	case RuleCustomValue, RuleAcceptRange, RuleJoined:
		return true
	default:
		return false
	}
}

// Entry is one generator's worth of rules, named by the identifier
// preceding them in the program text.
type Entry struct {
	Name  string
	Rules []Rule

	// WasMatched records whether this entry matched at least one test
	// during the run (spec.md §4.6: "entries that matched no tests at
	// all also fail" post-run validation).
	WasMatched bool
}

// DefaultAccept reports the program-wide default for natural
// (non-custom) values, decided literally by this entry's first rule's
// form (spec.md §4.6: "if it is '=' or '#', the default is reject;
// otherwise accept") — not by whether that rule is positive, since a
// leading '&'-joined rule defaults to accept even though it always
// wraps a positive inner rule.
func (e Entry) DefaultAccept() bool {
	if len(e.Rules) == 0 {
		return true
	}
	switch e.Rules[0].Kind {
	case RuleCustomValue, RuleAcceptRange:
		return false
	default:
		return true
	}
}

// Program is a parsed `--generate` argument: a sequence of entries.
type Program struct {
	Entries []Entry
}

// Span is a byte range within the original argument string, used to
// underline the offending text in a Diagnostic.
type Span struct {
	Start, End int
}

// Parse parses raw (the text following the `//` in `-g PAT//PROG`, or
// the whole argument when no pattern precedes it) into a Program.
func Parse(raw string) (*Program, error) {
	p := &parser{input: raw}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.input) {
		return nil, p.errorAt(p.pos, p.pos, "unexpected trailing input")
	}
	return prog, nil
}

type parser struct {
	input string
	pos   int
}

// parseProgram parses `Entry ("," Entry)*` up to the end of input or a
// closing ")" that belongs to an enclosing Scope.
func (p *parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for {
		p.skipSpace()
		if p.atEnd() || p.peek() == ')' {
			break
		}
		entry, err := p.parseEntry()
		if err != nil {
			return nil, err
		}
		prog.Entries = append(prog.Entries, *entry)
		p.skipSpace()
		if p.atEnd() || p.peek() != ',' {
			break
		}
		p.pos++ // consume ','
	}
	return prog, nil
}

func (p *parser) parseEntry() (*Entry, error) {
	start := p.pos
	name, err := p.parseName()
	if err != nil {
		return nil, err
	}
	entry := &Entry{Name: name}

	p.skipSpace()
	if !p.atEnd() && p.peek() == '{' {
		p.pos++
		for {
			p.skipSpace()
			rule, err := p.parseRule()
			if err != nil {
				return nil, err
			}
			entry.Rules = append(entry.Rules, *rule)
			p.skipSpace()
			if p.atEnd() {
				return nil, p.errorAt(start, p.pos, "unterminated '{' in override entry")
			}
			if p.peek() == ',' {
				p.pos++
				continue
			}
			break
		}
		if p.atEnd() || p.peek() != '}' {
			return nil, p.errorAt(start, p.pos, "expected '}' to close override entry")
		}
		p.pos++
	} else {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		entry.Rules = append(entry.Rules, *rule)
	}
	return entry, nil
}

func (p *parser) parseName() (string, error) {
	start := p.pos
	for p.pos < len(p.input) && isNameByte(p.input[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorAt(start, p.pos+1, "expected a generator name")
	}
	return p.input[start:p.pos], nil
}

func isNameByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (p *parser) parseRule() (*Rule, error) {
	start := p.pos
	if p.atEnd() {
		return nil, p.errorAt(start, start+1, "expected a rule")
	}

	switch {
	case p.peek() == '&':
		p.pos++
		inner, err := p.parseSingleRule(start)
		if err != nil {
			return nil, err
		}
		if !inner.IsPositive() {
			return nil, p.errorAt(start, p.pos, "'&' may only join positive (accept) rules")
		}
		joined := &Rule{Kind: RuleJoined, Joined: []Rule{*inner}, Span: Span{start, p.pos}}
		scope, err := p.maybeParseScope()
		if err != nil {
			return nil, err
		}
		joined.Scope = scope
		return joined, nil
	default:
		rule, err := p.parseSingleRule(start)
		if err != nil {
			return nil, err
		}
		if rule.IsPositive() {
			scope, err := p.maybeParseScope()
			if err != nil {
				return nil, err
			}
			rule.Scope = scope
		}
		return rule, nil
	}
}

// parseSingleRule parses one of "=value", "-=value", "#range", "-#range"
// without consuming a trailing Scope — the caller decides whether a
// Scope may follow.
func (p *parser) parseSingleRule(start int) (*Rule, error) {
	switch {
	case p.consumeLiteral("-="):
		val, vspan := p.parseValue()
		return &Rule{Kind: RuleRemoveValue, Value: val, Span: Span{start, vspan.End}}, nil
	case p.consumeLiteral("-#"):
		r, rspan, err := p.parseRange(start)
		if err != nil {
			return nil, err
		}
		return &Rule{Kind: RuleRemoveRange, Range: r, Span: Span{start, rspan.End}}, nil
	case p.consumeLiteral("="):
		val, vspan := p.parseValue()
		return &Rule{Kind: RuleCustomValue, Value: val, Span: Span{start, vspan.End}}, nil
	case p.consumeLiteral("#"):
		r, rspan, err := p.parseRange(start)
		if err != nil {
			return nil, err
		}
		return &Rule{Kind: RuleAcceptRange, Range: r, Span: Span{start, rspan.End}}, nil
	default:
		return nil, p.errorAt(start, p.pos+1, "expected '=', '-=', '#', or '-#'")
	}
}

func (p *parser) consumeLiteral(lit string) bool {
	if strings.HasPrefix(p.input[p.pos:], lit) {
		p.pos += len(lit)
		return true
	}
	return false
}

// parseValue consumes bytes up to the next top-level separator in
// {',', '&', '('}, per spec.md §4.6's Value production, delegating the
// actual scan to internal/lexer.FindUnprotectedSeparator so quoted and
// bracketed content inside a custom value is not mistaken for a
// delimiter.
func (p *parser) parseValue() (string, Span) {
	rest := p.input[p.pos:]
	n := lexer.FindUnprotectedSeparator(rest, ",&(")
	start := p.pos
	p.pos += n
	return rest[:n], Span{start, p.pos}
}

// parseRange parses `Num | Num ".." | ".." Num | Num ".." Num`.
func (p *parser) parseRange(start int) (Range, Span, error) {
	rangeStart := p.pos
	hasFirst, first := p.parseNum()
	if p.consumeLiteral("..") {
		hasSecond, second := p.parseNum()
		switch {
		case hasFirst && hasSecond:
			return Range{Start: first - 1, End: second}, Span{rangeStart, p.pos}, nil
		case hasFirst:
			return Range{Start: first - 1, End: NoEnd}, Span{rangeStart, p.pos}, nil
		case hasSecond:
			return Range{Start: 0, End: second}, Span{rangeStart, p.pos}, nil
		default:
			return Range{Start: 0, End: NoEnd}, Span{rangeStart, p.pos}, nil
		}
	}
	if !hasFirst {
		return Range{}, Span{}, p.errorAt(rangeStart, p.pos+1, "expected an index or a range")
	}
	return Range{Start: first - 1, End: first}, Span{rangeStart, p.pos}, nil
}

func (p *parser) parseNum() (bool, int) {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return false, 0
	}
	n, _ := strconv.Atoi(p.input[start:p.pos])
	return true, n
}

// maybeParseScope parses an optional `"(" Program? ")"` following a
// positive rule.
func (p *parser) maybeParseScope() (*Program, error) {
	p.skipSpace()
	if p.atEnd() || p.peek() != '(' {
		return nil, nil
	}
	p.pos++
	inner, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.atEnd() || p.peek() != ')' {
		return nil, p.errorAt(p.pos, p.pos+1, "expected ')' to close scope")
	}
	p.pos++
	return inner, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) atEnd() bool { return p.pos >= len(p.input) }
func (p *parser) peek() byte  { return p.input[p.pos] }

func (p *parser) errorAt(start, end int, msg string) error {
	return &Diagnostic{Message: msg, Span: Span{start, end}, Input: p.input}
}

// Diagnostic is a user error at the framework boundary (spec.md §7):
// a parse failure printed with a caret underlining the offending span
// of the original `--generate` argument string.
type Diagnostic struct {
	Message string
	Span    Span
	Input   string
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "override: %s\n", d.Message)
	fmt.Fprintf(&b, "  --> column %d\n", d.Span.Start+1)
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "   | %s\n", d.Input)
	b.WriteString("   | ")
	b.WriteString(strings.Repeat(" ", d.Span.Start))
	width := d.Span.End - d.Span.Start
	if width < 1 {
		width = 1
	}
	b.WriteString(strings.Repeat("^", width))
	return b.String()
}
