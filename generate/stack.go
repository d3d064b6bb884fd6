package generate

import "fmt"

// Stack drives the per-test generator cross-product described in
// spec.md §4.5: the runner holds one Stack per test and replays it on
// every repetition, appending newly-reached sites and pruning
// exhausted ones between iterations.
type Stack struct {
	entries []AnySite
	index   int
}

// NewStack returns an empty generator stack for a fresh test.
func NewStack() *Stack { return &Stack{} }

// Len is the number of live generators from the previous iteration.
func (s *Stack) Len() int { return len(s.entries) }

// Index is the position to be visited next.
func (s *Stack) Index() int { return s.index }

// ResetForIteration rewinds the visit cursor to the start of the
// stack; called once at the top of every repetition.
func (s *Stack) ResetForIteration() { s.index = 0 }

// ErrGeneratorEmpty signals a newly-reached site with no natural
// values at all (spec.md §4.5 step 1). Interrupt reports whether the
// site was declared WithInterruptIfEmpty: the runner unwinds silently
// via InterruptTest when true, or raises a hard error when false.
type ErrGeneratorEmpty struct {
	Loc       Loc
	Interrupt bool
}

func (e *ErrGeneratorEmpty) Error() string {
	return fmt.Sprintf("generate: %s produced no values", e.Loc)
}

// ErrNonDeterministic signals that the site visited at this step does
// not match the stack entry recorded for the same position in a
// previous iteration (spec.md §4.5 step 2 / §8 determinism invariant).
type ErrNonDeterministic struct {
	Expected, Got Loc
}

func (e *ErrNonDeterministic) Error() string {
	return fmt.Sprintf("generate: non-deterministic generator use: expected %s, got %s", e.Expected, e.Got)
}

// Visit is called by a GENERATE call site on every pass through the
// test body. loc identifies the call site. newSite constructs the
// AnySite lazily if this is a newly reached position. register is called exactly once,
// the first time a site is newly constructed, so the runner can offer
// it to listeners for an override claim.
//
// Returns the site to use for this visit (it may be the pre-existing
// stack entry, which callers must then re-wrap as their concrete
// *Site[T] — see generate.Use for the typed convenience wrapper).
func (s *Stack) Visit(loc Loc, newSite func() AnySite, register func(AnySite)) (AnySite, error) {
	if s.index == len(s.entries) {
		site := newSite()
		// The empty check fires before the site is offered to any
		// override listener (DESIGN.md Open Question decision): a
		// site with no natural values at all short-circuits
		// unconditionally, even though an override might otherwise
		// have supplied some.
		if site.IsEmpty() {
			return nil, &ErrGeneratorEmpty{Loc: loc, Interrupt: site.InterruptIfEmpty()}
		}
		s.entries = append(s.entries, site)
		if register != nil {
			register(site)
		}
		if err := s.advanceTop(); err != nil {
			return nil, err
		}
		s.index++
		return site, nil
	}

	existing := s.entries[s.index]
	if existing.Loc() != loc {
		err := &ErrNonDeterministic{Expected: existing.Loc(), Got: loc}
		return nil, err
	}

	if s.index+1 == len(s.entries) {
		if err := s.advanceTop(); err != nil {
			return nil, err
		}
	}

	s.index++
	return existing, nil
}

func (s *Stack) advanceTop() error {
	top := s.entries[len(s.entries)-1]
	return top.Advance()
}

// PruneAfterIteration implements spec.md §4.5's between-iterations
// protocol: drop any site whose callback threw (callers remove those
// before calling this, since Go surfaces that as an error from Visit);
// then pop exhausted sites from the top, advancing past any remaining
// non-exhausted site below. Returns true if the stack is now empty
// (the test is done).
func (s *Stack) PruneAfterIteration() (done bool) {
	for len(s.entries) > 0 {
		top := s.entries[len(s.entries)-1]
		if top.IsLastValue() || top.Exhausted() {
			s.entries = s.entries[:len(s.entries)-1]
			continue
		}
		break
	}
	return len(s.entries) == 0
}

// Use is a typed convenience wrapper around Visit for call sites that
// already hold a concrete *Site[T]: it registers a new site the first
// time this location is reached, or returns the existing one
// re-asserted to *Site[T] on later visits.
func Use[T any](stack *Stack, loc Loc, construct func() *Site[T], register func(AnySite)) (*Site[T], error) {
	site, err := stack.Visit(loc, func() AnySite { return construct() }, register)
	if err != nil {
		return nil, err
	}
	typed, ok := site.(*Site[T])
	if !ok {
		return nil, fmt.Errorf("generate: site at %s changed type between iterations", loc)
	}
	return typed, nil
}
