package tcontext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeFrame struct{ name string }

func (*fakeFrame) contextFrame() {}

func TestGuardPushPopBalancesAndKeepsInvariant(t *testing.T) {
	require.Equal(t, 0, Len())
	f := &fakeFrame{name: "a"}
	g := NewGuard(f)
	require.Equal(t, 1, Len())
	require.True(t, Invariant())
	g.Release()
	require.Equal(t, 0, Len())
	require.True(t, Invariant())
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	f := &fakeFrame{name: "b"}
	g := NewGuard(f)
	g.Release()
	require.NotPanics(t, func() { g.Release() })
	require.Equal(t, 0, Len())
}

func TestPushRejectsDuplicateFrame(t *testing.T) {
	f := &fakeFrame{name: "c"}
	require.True(t, Push(f))
	require.False(t, Push(f), "same frame pushed twice must not duplicate")
	require.Equal(t, 1, Len())
	Pop(f)
	require.Equal(t, 0, Len())
}

func TestNestedGuardsPopInAnyOrderPreserveInvariant(t *testing.T) {
	outer := NewGuard(&fakeFrame{name: "outer"})
	inner := NewGuard(&fakeFrame{name: "inner"})
	require.Equal(t, 2, Len())
	outer.Release()
	require.Equal(t, 1, Len())
	require.True(t, Invariant())
	inner.Release()
	require.Equal(t, 0, Len())
}

func TestSnapshotOrderedNewestLast(t *testing.T) {
	a := NewGuard(&fakeFrame{name: "a"})
	b := NewGuard(&fakeFrame{name: "b"})
	defer b.Release()
	defer a.Release()

	snap := Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, "a", snap[0].(*fakeFrame).name)
	require.Equal(t, "b", snap[1].(*fakeFrame).name)
}
