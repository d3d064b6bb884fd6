// Package generate implements parameterised-test value generation:
// one Site per `GENERATE`-equivalent call in a test body, advanced by
// the runner in a right-to-left odometer order across repeated
// invocations of the test body (spec.md §4.5).
package generate

import "fmt"

// Loc identifies a generator call site.
type Loc struct {
	File string
	Line int
}

func (l Loc) String() string { return fmt.Sprintf("%s:%d", l.File, l.Line) }

// Overrider is implemented by a listener that wants to replace or
// filter the natural sequence of values for a Site (the built-in
// generator-override listener in package listeners).
type Overrider interface {
	// Advance is called instead of the user callback when this site
	// has an active override. It returns the next value, whether the
	// override considers it the last value, and whether the site is
	// exhausted (no value produced).
	Advance(site AnySite) (value any, isLast bool, exhausted bool)
}

// AnySite is the type-erased view of a Site that listeners operate on.
type AnySite interface {
	Loc() Loc
	// Name is the identifier a `--generate` override program's Entry.Name
	// must match to claim this site (spec.md §4.6) — set by WithName at
	// the call site, independent of Loc.
	Name() string
	NumGenerated() int
	NumCustom() int
	CurrentString() string
	// CurrentValue is the boxed current value, used by an Overrider to
	// hand a freshly pulled natural value back through Site.Advance.
	CurrentValue() any
	// ParseReplacement attempts to parse s as a replacement value,
	// returning ok=false if the underlying type has no ValueFromString
	// capability or s does not parse.
	ParseReplacement(s string) (ok bool)
	// EqualsString reports whether the current value prints as s,
	// when the underlying type has an EqualsString capability;
	// otherwise it falls back to comparing CurrentString().
	EqualsString(s string) bool
	// SetOverrider installs the first listener to claim this site.
	SetOverrider(o Overrider)
	Overridden() bool
	// AdvanceNatural pulls the next value directly from the underlying
	// generator function, bypassing any installed Overrider. An
	// Overrider uses this itself to drain natural values for filtering;
	// it returns false once the natural sequence is exhausted.
	AdvanceNatural() bool
	// Advance produces the next value (via the overrider if claimed,
	// else the user callback) and updates bookkeeping.
	Advance() error
	IsLastValue() bool
	Exhausted() bool
	// IsEmpty reports whether this site has no natural values at all,
	// knowable before the first Advance (e.g. an empty range) — used
	// by Stack.Visit to short-circuit before offering the site to any
	// generator-override listener (spec.md §4.5 step 1).
	IsEmpty() bool
	// InterruptIfEmpty reports whether an empty site should unwind the
	// test silently (InterruptTest) rather than raise a hard error.
	InterruptIfEmpty() bool
}

// Site is a single GENERATE call site of type T.
type Site[T any] struct {
	loc  Loc
	name string

	generate    func() (T, bool) // returns next value and whether more values may follow
	empty       bool             // true: this site never had any natural values
	naturalDone bool             // true once generate has reported no more values

	current          T
	numGen           int
	numCustom        int
	isLastFlag       bool
	naturalLast      bool
	exhausted        bool
	interruptIfEmpty bool

	overrider Overrider

	// Optional capabilities, filled in by constructors in this
	// package when T supports them.
	toString    func(T) string
	fromString  func(string) (T, bool)
	equalString func(T, string) bool
}

// New constructs a Site at loc whose natural values come from next,
// which must return (value, hasMore) pairs; hasMore=false on the call
// that returns the last value.
func New[T any](loc Loc, next func() (T, bool)) *Site[T] {
	return &Site[T]{loc: loc, generate: next}
}

// NewEmpty constructs a Site at loc with no natural values at all —
// the Go equivalent of a GENERATE call over an empty range. Advancing
// it never calls a user callback; it is exhausted immediately.
func NewEmpty[T any](loc Loc) *Site[T] {
	return &Site[T]{loc: loc, empty: true}
}

// WithStringer attaches a value-to-string capability (used for
// diagram/printing and for override diagnostics).
func (s *Site[T]) WithStringer(f func(T) string) *Site[T] {
	s.toString = f
	return s
}

// WithParser attaches a value-from-string capability (used to parse
// `=value` custom values out of an override program).
func (s *Site[T]) WithParser(f func(string) (T, bool)) *Site[T] {
	s.fromString = f
	return s
}

// WithEquals attaches an equals-to-string capability (used to match
// `-=value` and `=value` rules against natural values without a full
// round trip through the parser).
func (s *Site[T]) WithEquals(f func(T, string) bool) *Site[T] {
	s.equalString = f
	return s
}

// WithName gives this site the identifier a `--generate` override
// program's Entry.Name matches against (spec.md §4.6). Sites without a
// name can never be claimed by an override.
func (s *Site[T]) WithName(name string) *Site[T] {
	s.name = name
	return s
}

func (s *Site[T]) Loc() Loc          { return s.loc }
func (s *Site[T]) Name() string      { return s.name }
func (s *Site[T]) NumGenerated() int { return s.numGen }
func (s *Site[T]) NumCustom() int    { return s.numCustom }
func (s *Site[T]) Current() T        { return s.current }
func (s *Site[T]) CurrentValue() any { return s.current }

func (s *Site[T]) CurrentString() string {
	if s.toString != nil {
		return s.toString(s.current)
	}
	return fmt.Sprint(s.current)
}

// ParseReplacement installs str as the site's current value via its
// from-string capability, bumping NumCustom — this is the only path by
// which a custom override value is consumed.
func (s *Site[T]) ParseReplacement(str string) bool {
	if s.fromString == nil {
		return false
	}
	v, ok := s.fromString(str)
	if !ok {
		return false
	}
	s.current = v
	s.numCustom++
	return true
}

func (s *Site[T]) EqualsString(str string) bool {
	if s.equalString != nil {
		return s.equalString(s.current, str)
	}
	return s.CurrentString() == str
}

// SetOverrider installs the listener that will drive Advance instead
// of the user callback. Only the first caller to claim a site wins
// (spec.md §4.5 step 1); later calls are no-ops.
func (s *Site[T]) SetOverrider(o Overrider) {
	if s.overrider == nil {
		s.overrider = o
	}
}

// Overridden reports whether a listener has claimed this site.
func (s *Site[T]) Overridden() bool { return s.overrider != nil }

// IsEmpty reports whether this site was constructed via NewEmpty — it
// has no natural values at all, regardless of overriding.
func (s *Site[T]) IsEmpty() bool { return s.empty }

// WithInterruptIfEmpty marks the site so that reaching it with no
// natural values unwinds the test silently via InterruptTest instead
// of raising a hard error (spec.md §4.5 step 1).
func (s *Site[T]) WithInterruptIfEmpty() *Site[T] {
	s.interruptIfEmpty = true
	return s
}

// InterruptIfEmpty reports whether WithInterruptIfEmpty was set.
func (s *Site[T]) InterruptIfEmpty() bool { return s.interruptIfEmpty }

// Advance produces the next value, either via the overrider or the
// user callback, and updates bookkeeping (spec.md §4.5 step 3).
func (s *Site[T]) Advance() error {
	if s.empty {
		s.exhausted = true
		return nil
	}

	if s.overrider != nil {
		v, isLast, exhausted := s.overrider.Advance(s)
		if exhausted {
			s.exhausted = true
			return nil
		}
		tv, ok := v.(T)
		if !ok {
			return fmt.Errorf("generate: overrider for %s produced a value of the wrong type", s.loc)
		}
		s.current = tv
		s.isLastFlag = isLast
		return nil
	}

	if !s.AdvanceNatural() {
		s.exhausted = true
		return nil
	}
	s.isLastFlag = s.naturalLast
	return nil
}

// AdvanceNatural pulls the next value straight from the underlying
// generator function, ignoring any installed overrider. An Overrider's
// own Advance calls this itself to drain natural values for filtering
// (spec.md §4.6); it is also what the non-overridden path above uses.
func (s *Site[T]) AdvanceNatural() bool {
	if s.naturalDone {
		return false
	}
	v, hasMore := s.generate()
	s.current = v
	s.naturalLast = !hasMore
	s.numGen++
	if !hasMore {
		s.naturalDone = true
	}
	return true
}

// IsLastValue reports whether the current value is the last one this
// site will produce.
func (s *Site[T]) IsLastValue() bool { return s.isLastFlag || s.exhausted }

// Exhausted reports whether the site produced no value on the last
// Advance (used for the empty-generator hard-error/interrupt path).
func (s *Site[T]) Exhausted() bool { return s.exhausted }
