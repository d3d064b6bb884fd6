// Package registry is the test registry (spec.md §3/§4.8 step 2): the
// process-wide collection of registered tests, populated exclusively
// during static initialisation and read-only during a run.
//
// Grounded on the teacher's decorator registry
// (opal-lang-opal/pkgs/decorators/registry.go): a package-level
// singleton guarded by sync.RWMutex, with package-level convenience
// wrappers, generalized here from decorator lookup to test
// registration and canonical ordering.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/taut-go/taut/assert"
)

// Loc is a test's declaration site.
type Loc struct {
	File string
	Line int
}

func (l Loc) String() string { return fmt.Sprintf("%s:%d", l.File, l.Line) }

// Test is one registered test singleton: a slash-separated hierarchical
// name, its declaration site, and its body.
type Test struct {
	Name string
	Loc  Loc
	Body func(t TestingT)

	// Disabled records whether the source marked this test
	// disabled_in_source; on_filter_test listeners may still flip it.
	Disabled bool

	segments    []string
	firstOrder  int
}

// TestingT is the minimal surface a test body receives; runner.T
// satisfies it. Its method set matches assert.TestingT's exactly so a
// Body can pass its TestingT argument straight into assert.Check/
// Require without a type assertion at every call site.
type TestingT interface {
	Fail()
	Reporter() assert.Reporter
}

type Registry struct {
	mu          sync.RWMutex
	tests       map[string]*Test
	order       []string       // registration order, for segment tie-breaking
	prefixOrder map[string]int // slash-joined prefix -> order of the test that first touched it
}

var global = New()

func New() *Registry {
	return &Registry{tests: make(map[string]*Test), prefixOrder: make(map[string]int)}
}

// Register adds t to the registry. It panics on a duplicate name or a
// prefix violation (spec.md §3: "no test name may also be a strict
// prefix of another ending at a slash boundary") — both are
// programming errors caught at static-initialisation time, not runtime
// conditions a caller can recover from.
func (r *Registry) Register(t *Test) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tests[t.Name]; exists {
		panic(fmt.Sprintf("registry: test %q registered twice", t.Name))
	}
	for existing := range r.tests {
		if isSlashPrefix(existing, t.Name) || isSlashPrefix(t.Name, existing) {
			panic(fmt.Sprintf("registry: test name %q conflicts with %q (one is a slash-boundary prefix of the other)", t.Name, existing))
		}
	}

	t.segments = strings.Split(t.Name, "/")
	t.firstOrder = len(r.order)
	r.tests[t.Name] = t
	r.order = append(r.order, t.Name)

	prefix := ""
	for _, seg := range t.segments {
		if prefix == "" {
			prefix = seg
		} else {
			prefix = prefix + "/" + seg
		}
		if _, ok := r.prefixOrder[prefix]; !ok {
			r.prefixOrder[prefix] = t.firstOrder
		}
	}
}

// isSlashPrefix reports whether prefix is a strict prefix of s ending
// exactly at a slash boundary (e.g. "group" is a prefix of "group/sub"
// but not of "groupish").
func isSlashPrefix(prefix, s string) bool {
	if prefix == s || !strings.HasPrefix(s, prefix) {
		return false
	}
	return s[len(prefix)] == '/'
}

// All returns every registered test in canonical declaration order
// (spec.md §3: lexical order per slash segment, siblings ordered by
// first registration).
func (r *Registry) All() []*Test {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Test, 0, len(r.tests))
	for _, name := range r.order {
		out = append(out, r.tests[name])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i].segments, out[j].segments, r.prefixOrder)
	})
	return out
}

// less implements the canonical segment-wise ordering: walk segments
// until two tests diverge, then order by which branch's prefix was
// registered first. Sibling order is first-registration order, not
// alphabetical — per spec.md §3 and the original's
// SortTestListInExecutionOrder (testlib.cpp), which keys sibling order
// on name_prefixes_to_order, the order each slash prefix was first
// discovered, never on the segment text itself.
func less(a, b []string, prefixOrder map[string]int) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return prefixOrder[strings.Join(a[:i+1], "/")] < prefixOrder[strings.Join(b[:i+1], "/")]
		}
	}
	// Register forbids one test's segments from being a slash-boundary
	// prefix of another's, so two distinct tests always diverge above;
	// this is an unreachable defensive fallback.
	return len(a) < len(b)
}

// Lookup returns the test named name, if registered.
func (r *Registry) Lookup(name string) (*Test, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tests[name]
	return t, ok
}

// Register adds t to the global registry.
func Register(t *Test) { global.Register(t) }

// All returns every test in the global registry, canonically ordered.
func All() []*Test { return global.All() }

// Lookup returns the named test from the global registry.
func Lookup(name string) (*Test, bool) { return global.Lookup(name) }

// ResetForTesting clears the global registry; test code (for example
// cmd/taut's tests) calls this to keep cases independent.
func ResetForTesting() { global = New() }
