// Package tcontext implements the per-goroutine context stack: the
// structured trail of "in-flight" frames (assertion in progress,
// must-throw site, caught-exception element, user-pushed trace, log
// entry) printed on failure. Frames are owned by their declaring
// scope; the stack stores non-owning references and a parallel set for
// O(1) duplicate detection, matching spec.md §3's `{|set| == |sequence|}`
// invariant.
//
// The push/pop discipline mirrors the teacher's own context-stack idiom
// in pkgs/lexer/lexer_state.go (StateMachine.PushContext/PopContext),
// generalized here from lexer contexts to assertion-diagnostic frames.
package tcontext

import (
	"sync"

	"github.com/taut-go/taut/internal/gls"
)

// Frame is any value that can sit on the context stack. Concrete frame
// kinds (assertion, must-throw, caught-exception element, trace, log
// entry) live in the assert and listeners packages and satisfy this
// via a marker method to avoid an import cycle back into tcontext.
type Frame interface {
	contextFrame()
}

// BasicTrace is a user-pushed breadcrumb: "doing X" pushed before a
// helper call and popped on return.
type BasicTrace struct {
	Message string
}

func (BasicTrace) contextFrame() {}

type perGoroutine struct {
	mu        sync.Mutex
	sequence  []Frame
	set       map[Frame]struct{}
	nextLogID int64
}

var (
	registryMu sync.Mutex
	registry   = map[int64]*perGoroutine{}
)

func stackFor(id int64) *perGoroutine {
	registryMu.Lock()
	defer registryMu.Unlock()
	s, ok := registry[id]
	if !ok {
		s = &perGoroutine{set: map[Frame]struct{}{}}
		registry[id] = s
	}
	return s
}

// current returns this goroutine's stack, creating it on first use.
func current() *perGoroutine {
	return stackFor(gls.ID())
}

// Push adds f to the current goroutine's context stack if it is not
// already present, returning true if it was added. Mirrors
// spec.md §4.7's "FrameGuard pushes if not already present."
func Push(f Frame) bool {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[f]; ok {
		return false
	}
	s.set[f] = struct{}{}
	s.sequence = append(s.sequence, f)
	return true
}

// Pop removes f from the current goroutine's context stack, wherever
// it is in the sequence (guards may be released out of LIFO order if a
// panic unwound past an intermediate guard first — the set membership
// check, not position, is authoritative).
func Pop(f Frame) {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.set[f]; !ok {
		return
	}
	delete(s.set, f)
	for i, got := range s.sequence {
		if got == f {
			s.sequence = append(s.sequence[:i], s.sequence[i+1:]...)
			break
		}
	}
}

// Snapshot returns the current goroutine's frames, newest last.
func Snapshot() []Frame {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.sequence))
	copy(out, s.sequence)
	return out
}

// Len reports the number of frames currently on this goroutine's
// stack — used by the runner's stack-balance check (spec.md §8
// property 1).
func Len() int {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sequence)
}

// Invariant reports whether |set| == |sequence| currently holds for
// this goroutine — exposed for the property test in spec.md §8 #2.
func Invariant() bool {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set) == len(s.sequence)
}

// LogEntry is a log breadcrumb (spec.md §3): `ID` is this goroutine's
// monotonically increasing log counter (spec.md §8 property 3),
// `Message` computed lazily on demand by a printing listener.
type LogEntry struct {
	ID      int64
	Message func() string
}

func (*LogEntry) contextFrame() {}

// NextLogID returns the next strictly increasing log id for the
// calling goroutine, used to order unscoped and scoped log entries
// chronologically when merging for display.
func NextLogID() int64 {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextLogID++
	return s.nextLogID
}

// Guard is a scoped push: construction pushes f, Release pops it.
// Implementations must call Release exactly once, including on panic
// paths (typically via defer), and must not call it twice even if the
// scope is re-entered after a move — Release is idempotent against
// double-release because Pop no-ops when f is absent from the set.
type Guard struct {
	frame    Frame
	released bool
}

// NewGuard pushes f and returns a Guard that will pop it on Release.
func NewGuard(f Frame) *Guard {
	Push(f)
	return &Guard{frame: f}
}

// Release pops the guarded frame. Safe to call multiple times.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	Pop(g.frame)
}
