// Package listeners holds the built-in bus.Listener implementations
// cmd/taut wires up by default: the generator overrider that answers
// on_register_generator_override for `--generate` (this file), plus
// the progress/diagram/log/exception/summary printers that render a
// run to a term.Terminal.
//
// Grounded on opal-lang-opal/pkgs/decorators's registry-driven listener
// shape generalized to the bus's capability bitmask dispatch, and on
// the original C++ implementation's modules::GeneratorOverrider
// (testlib.cpp) for the match-by-name and drain-then-substitute
// algorithm below.
package listeners

import (
	"github.com/taut-go/taut/bus"
	"github.com/taut-go/taut/generate"
	"github.com/taut-go/taut/override"
)

// GeneratorOverrider answers on_register_generator_override for every
// `--generate` directive whose merged override.Program is currently
// installed (spec.md §4.5 step 1, §4.6). The runner calls SetProgram
// before every test with that test's own merged program, or nil.
type GeneratorOverrider struct {
	bus.BaseListener

	program *override.Program
	states  map[generate.AnySite]*siteState
}

// NewGeneratorOverrider constructs an overrider with no program
// installed; SetProgram must be called before it can claim anything.
func NewGeneratorOverrider() *GeneratorOverrider {
	return &GeneratorOverrider{}
}

func (g *GeneratorOverrider) Capabilities() bus.Capability {
	return bus.CapRegisterGeneratorOverride
}

// SetProgram implements runner.OverrideProvider: installs the merged
// program for the test about to run and drops all per-site state from
// the previous test.
func (g *GeneratorOverrider) SetProgram(p *override.Program) {
	g.program = p
	g.states = nil
}

// siteState is the per-site cursor an override keeps between repeated
// Advance calls for the same generator across a test's repetitions.
type siteState struct {
	entry       *override.Entry
	customRules []*override.Rule // entry.Rules filtered to RuleCustomValue, in declared order

	customIdx int

	// pending is one value of lookahead: produceNext is called eagerly
	// so Advance can report an accurate isLast without ever peeking a
	// generator twice per call (generators are single-pass).
	pending   any
	pendingOK bool
}

// OnRegisterGeneratorOverride claims site if its Name matches an entry
// in the currently installed program (spec.md §4.6: match by the
// generator's declared name, not its source location).
func (g *GeneratorOverrider) OnRegisterGeneratorOverride(site generate.AnySite) generate.Overrider {
	if g.program == nil {
		return nil
	}
	name := site.Name()
	for i := range g.program.Entries {
		entry := &g.program.Entries[i]
		if entry.Name != name {
			continue
		}
		entry.WasMatched = true

		st := &siteState{entry: entry}
		for j := range entry.Rules {
			if entry.Rules[j].Kind == override.RuleCustomValue {
				st.customRules = append(st.customRules, &entry.Rules[j])
			}
		}
		if g.states == nil {
			g.states = map[generate.AnySite]*siteState{}
		}
		g.states[site] = st

		st.pending, st.pendingOK = g.produceNext(site, st)
		return g
	}
	return nil
}

// Advance implements generate.Overrider. Every call returns the value
// primed by the previous call (or by OnRegisterGeneratorOverride for
// the first one) and primes the next, so isLast is always exact.
func (g *GeneratorOverrider) Advance(site generate.AnySite) (value any, isLast bool, exhausted bool) {
	st := g.states[site]
	if st == nil || !st.pendingOK {
		return nil, true, true
	}
	cur := st.pending
	st.pending, st.pendingOK = g.produceNext(site, st)
	return cur, !st.pendingOK, false
}

// produceNext implements the override's value stream for one entry
// (spec.md §4.6): natural values are drained first, each checked
// against the entry's range/remove rules in declared order starting
// from the entry's default acceptance; once the natural generator is
// exhausted, any custom values are emitted in declared order. A
// natural value that prints equal to an as-yet-unconsumed custom value
// is skipped, so `=V` never produces a duplicate of a value the
// natural sequence would have produced anyway.
//
// DESIGN.md Open Question: this drains naturals before customs,
// the reverse of the DSL's own prose ("custom values are inserted in
// order before any natural generation") — the worked example's
// expected repetition order, `(10,b), (42,b)` for `x{#1,=42}`, only
// holds under drain-then-substitute, so the example wins over the
// prose.
func (g *GeneratorOverrider) produceNext(site generate.AnySite, st *siteState) (any, bool) {
	entry := st.entry

	for {
		if site.AdvanceNatural() {
			idx := site.NumGenerated() - 1
			passes := entry.DefaultAccept()
			dup := false

			for i := range entry.Rules {
				rule := &entry.Rules[i]
				switch rule.Kind {
				case override.RuleAcceptRange:
					if rule.Range.Contains(idx) {
						passes = true
						rule.WasUsed = true
						if idx+1 > rule.MaxIndexAffected {
							rule.MaxIndexAffected = idx + 1
						}
					}
				case override.RuleRemoveRange:
					if rule.Range.Contains(idx) {
						passes = false
						rule.WasUsed = true
						if idx+1 > rule.MaxIndexAffected {
							rule.MaxIndexAffected = idx + 1
						}
					}
				case override.RuleRemoveValue:
					if site.EqualsString(rule.Value) {
						passes = false
						rule.WasUsed = true
					}
				case override.RuleCustomValue:
					if site.EqualsString(rule.Value) {
						dup = true
					}
				}
			}

			if !passes || dup {
				continue
			}
			return site.CurrentValue(), true
		}

		if st.customIdx < len(st.customRules) {
			cv := st.customRules[st.customIdx]
			st.customIdx++
			cv.WasUsed = true
			if !site.ParseReplacement(cv.Value) {
				continue
			}
			return site.CurrentValue(), true
		}

		return nil, false
	}
}
