package generate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func intSeq(values ...int) func() (int, bool) {
	i := 0
	return func() (int, bool) {
		v := values[i]
		i++
		return v, i < len(values)
	}
}

func TestOdometerCrossProduct(t *testing.T) {
	// mirrors scenario S3: x in {10,20,30}, y in {"a","b"}
	stack := NewStack()
	var visited [][2]any

	runOnce := func() {
		xSite, err := Use(stack, Loc{File: "f", Line: 1}, func() *Site[int] {
			return New(Loc{File: "f", Line: 1}, intSeq(10, 20, 30))
		}, nil)
		require.NoError(t, err)

		ySite, err := Use(stack, Loc{File: "f", Line: 2}, func() *Site[string] {
			return New(Loc{File: "f", Line: 2}, func() func() (string, bool) {
				values := []string{"a", "b"}
				i := 0
				return func() (string, bool) {
					v := values[i]
					i++
					return v, i < len(values)
				}
			}())
		}, nil)
		require.NoError(t, err)

		visited = append(visited, [2]any{xSite.Current(), ySite.Current()})
	}

	for {
		stack.ResetForIteration()
		runOnce()
		if stack.PruneAfterIteration() {
			break
		}
	}

	require.Equal(t, [][2]any{
		{10, "a"}, {10, "b"}, {20, "a"}, {20, "b"}, {30, "a"}, {30, "b"},
	}, visited)
}

func TestVisitDetectsNonDeterminism(t *testing.T) {
	stack := NewStack()
	site, err := Use(stack, Loc{File: "f", Line: 1}, func() *Site[int] {
		return New(Loc{File: "f", Line: 1}, intSeq(1, 2))
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, site.Current())

	stack.ResetForIteration()
	_, err = stack.Visit(Loc{File: "f", Line: 99}, func() AnySite {
		return New(Loc{File: "f", Line: 99}, intSeq(1))
	}, nil)
	var nd *ErrNonDeterministic
	require.ErrorAs(t, err, &nd)
}

func TestOverriddenSiteDrivesAdvanceInstead(t *testing.T) {
	stack := NewStack()
	ov := &fakeOverrider{values: []int{100, 200}}
	construct := func() *Site[int] {
		s := New(Loc{File: "f", Line: 1}, intSeq(1, 2, 3))
		s.SetOverrider(ov)
		return s
	}

	var values []int
	for {
		stack.ResetForIteration()
		site, err := Use(stack, Loc{File: "f", Line: 1}, construct, nil)
		require.NoError(t, err)
		values = append(values, site.Current())
		if stack.PruneAfterIteration() {
			break
		}
	}
	require.Equal(t, []int{100, 200}, values)
}

type fakeOverrider struct {
	values []int
	i      int
}

func (o *fakeOverrider) Advance(site AnySite) (any, bool, bool) {
	if o.i >= len(o.values) {
		return nil, true, true
	}
	v := o.values[o.i]
	o.i++
	isLast := o.i == len(o.values)
	return v, isLast, false
}

func TestVisitReturnsErrGeneratorEmptyForEmptySiteBeforeRegistering(t *testing.T) {
	stack := NewStack()
	registered := false
	_, err := stack.Visit(Loc{File: "f", Line: 1}, func() AnySite {
		return NewEmpty[int](Loc{File: "f", Line: 1})
	}, func(AnySite) { registered = true })

	var empty *ErrGeneratorEmpty
	require.ErrorAs(t, err, &empty)
	require.False(t, empty.Interrupt)
	require.False(t, registered, "an empty site must never reach a generator-override listener")
	require.Equal(t, 0, stack.Len(), "an empty site must not occupy a stack slot")
}

func TestVisitReportsInterruptWhenEmptySiteOptsIn(t *testing.T) {
	stack := NewStack()
	_, err := stack.Visit(Loc{File: "f", Line: 1}, func() AnySite {
		return NewEmpty[int](Loc{File: "f", Line: 1}).WithInterruptIfEmpty()
	}, nil)

	var empty *ErrGeneratorEmpty
	require.ErrorAs(t, err, &empty)
	require.True(t, empty.Interrupt)
}
