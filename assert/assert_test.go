package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVPanicsWithoutEnclosingAssertion(t *testing.T) {
	require.Panics(t, func() {
		V(1)
	})
}

func TestVReturnsItsArgumentUnchanged(t *testing.T) {
	ft := newFakeT()
	Check(ft, func() bool {
		require.Equal(t, 42, V(42))
		return true
	})
}

func TestResolvedMessageComputesOnce(t *testing.T) {
	calls := 0
	rec := &Record{Message: func() string {
		calls++
		return "boom"
	}}
	require.Equal(t, "boom", rec.ResolvedMessage())
	require.Equal(t, "boom", rec.ResolvedMessage())
	require.Equal(t, 1, calls)
}

func TestResolvedMessageEmptyWithoutMessage(t *testing.T) {
	rec := &Record{}
	require.Equal(t, "", rec.ResolvedMessage())
}

func TestNextSlotReturnsNilPastParsedMarkerCount(t *testing.T) {
	rec := &Record{Slots: make([]StoredArg, 1)}
	first := rec.nextSlot()
	require.NotNil(t, first)
	second := rec.nextSlot()
	require.Nil(t, second)
}
