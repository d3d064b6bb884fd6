package listeners

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taut-go/taut/generate"
	"github.com/taut-go/taut/override"
)

func intParser(s string) (int, bool) {
	v, err := strconv.Atoi(s)
	return v, err == nil
}

func intSeq(values ...int) func() (int, bool) {
	i := 0
	return func() (int, bool) {
		v := values[i]
		i++
		return v, i < len(values)
	}
}

func strSeq(values ...string) func() (string, bool) {
	i := 0
	return func() (string, bool) {
		v := values[i]
		i++
		return v, i < len(values)
	}
}

// drive pulls every value a claimed overrider produces for site,
// mirroring generate.Site.Advance's own overridden-branch loop.
func drive[T any](t *testing.T, site *generate.Site[T]) []T {
	t.Helper()
	var out []T
	for {
		require.NoError(t, site.Advance())
		if site.Exhausted() {
			return out
		}
		out = append(out, site.Current())
		if site.IsLastValue() {
			return out
		}
	}
}

func TestGeneratorOverriderMatchesByNameNotLocation(t *testing.T) {
	prog, err := override.Parse("x{#1,=42}")
	require.NoError(t, err)

	g := NewGeneratorOverrider()
	g.SetProgram(prog)

	unnamed := generate.New(generate.Loc{File: "t", Line: 1}, intSeq(10, 20, 30))
	require.Nil(t, g.OnRegisterGeneratorOverride(unnamed), "a site with no matching name must not be claimed")

	named := generate.New(generate.Loc{File: "t", Line: 99}, intSeq(10, 20, 30)).
		WithName("x").WithParser(intParser)
	ov := g.OnRegisterGeneratorOverride(named)
	require.NotNil(t, ov, "location is irrelevant — only Entry.Name must match")
}

// S4 — x{#1,=42} keeps only x's first natural value, then appends the
// custom value; y-=a removes "a" from y's natural sequence.
func TestGeneratorOverriderDrainsNaturalBeforeCustomValues(t *testing.T) {
	prog, err := override.Parse("x{#1,=42},y-=a")
	require.NoError(t, err)

	g := NewGeneratorOverrider()
	g.SetProgram(prog)

	x := generate.New(generate.Loc{File: "t", Line: 1}, intSeq(10, 20, 30)).
		WithName("x").WithParser(intParser)
	xov := g.OnRegisterGeneratorOverride(x)
	require.NotNil(t, xov)
	x.SetOverrider(xov)

	y := generate.New(generate.Loc{File: "t", Line: 2}, strSeq("a", "b")).WithName("y")
	yov := g.OnRegisterGeneratorOverride(y)
	require.NotNil(t, yov)
	y.SetOverrider(yov)

	require.Equal(t, []int{10, 42}, drive(t, x))
	require.Equal(t, []string{"b"}, drive(t, y))
}

func TestGeneratorOverriderMarksRulesAndEntriesUsed(t *testing.T) {
	prog, err := override.Parse("x{#1,=42}")
	require.NoError(t, err)

	g := NewGeneratorOverrider()
	g.SetProgram(prog)

	x := generate.New(generate.Loc{File: "t", Line: 1}, intSeq(10, 20, 30)).
		WithName("x").WithParser(intParser)
	ov := g.OnRegisterGeneratorOverride(x)
	x.SetOverrider(ov)
	drive(t, x)

	require.Empty(t, override.Validate(prog), "every rule was exercised and the entry matched")
}

func TestGeneratorOverriderSetProgramDropsPriorTestState(t *testing.T) {
	prog, err := override.Parse("x=99")
	require.NoError(t, err)

	g := NewGeneratorOverrider()
	g.SetProgram(prog)
	first := generate.New(generate.Loc{File: "t", Line: 1}, intSeq(1)).WithName("x").WithParser(intParser)
	require.NotNil(t, g.OnRegisterGeneratorOverride(first))

	g.SetProgram(nil)
	second := generate.New(generate.Loc{File: "t", Line: 1}, intSeq(1)).WithName("x").WithParser(intParser)
	require.Nil(t, g.OnRegisterGeneratorOverride(second), "no program installed means nothing can be claimed")
}
