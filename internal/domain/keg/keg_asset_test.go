package keg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeg(t *testing.T) *KegAsset {
	t.Helper()
	k, err := NewKegAsset("DB-0001", SizeFifty)
	require.NoError(t, err)
	k.ClearDomainEvents()
	return k
}

// walk applies a sequence of transitions, failing the test on any rejection
func walk(t *testing.T, k *KegAsset, states ...State) {
	t.Helper()
	for _, s := range states {
		_, err := k.Transition(s, TransitionContext{Actor: "test"})
		require.NoError(t, err, "transition to %s from %s", s, k.CurrentState)
	}
}

func TestNewKegAsset(t *testing.T) {
	t.Run("registers in EMPTY with a scan code", func(t *testing.T) {
		k, err := NewKegAsset("DB-0042", SizeThirty)
		require.NoError(t, err)

		assert.Equal(t, StateEmpty, k.CurrentState)
		assert.Equal(t, 0, k.CycleCount)
		assert.True(t, k.IsActive)
		assert.True(t, strings.HasPrefix(k.ScanCode, "KEG-"))
		assert.Len(t, k.ScanCode, 16)

		events := k.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeKegRegistered, events[0].EventType())
	})

	t.Run("rejects blank serial", func(t *testing.T) {
		_, err := NewKegAsset("  ", SizeFifty)
		assert.Error(t, err)
	})

	t.Run("rejects non-standard size", func(t *testing.T) {
		_, err := NewKegAsset("DB-0001", Size(42))
		assert.Error(t, err)
	})
}

func TestKegAsset_Transition(t *testing.T) {
	t.Run("legal move appends one transition row", func(t *testing.T) {
		k := newTestKeg(t)
		tr, err := k.Transition(StateDirty, TransitionContext{Actor: "washer", Location: "wash-bay"})
		require.NoError(t, err)

		assert.Equal(t, StateDirty, k.CurrentState)
		assert.Equal(t, StateEmpty, tr.FromState)
		assert.Equal(t, StateDirty, tr.ToState)
		assert.Equal(t, "washer", tr.Actor)
		assert.Equal(t, "wash-bay", tr.Location)

		events := k.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeKegTransitioned, events[0].EventType())
	})

	t.Run("illegal move is rejected without side effects", func(t *testing.T) {
		k := newTestKeg(t)
		_, err := k.Transition(StateFull, TransitionContext{})
		require.Error(t, err)
		assert.Equal(t, StateEmpty, k.CurrentState)
		assert.Empty(t, k.GetDomainEvents())
	})

	t.Run("unknown state is rejected", func(t *testing.T) {
		k := newTestKeg(t)
		_, err := k.Transition(State("MELTED"), TransitionContext{})
		assert.Error(t, err)
	})

	t.Run("clean records wash time and clears batch", func(t *testing.T) {
		k := newTestKeg(t)
		walk(t, k, StateDirty, StateClean)
		assert.NotNil(t, k.LastCleanedAt)
		assert.Empty(t, k.BatchRef)
	})

	t.Run("fill stamps batch reference", func(t *testing.T) {
		k := newTestKeg(t)
		walk(t, k, StateDirty, StateClean, StateFilling)
		_, err := k.Transition(StateFull, TransitionContext{BatchRef: "BREW-042"})
		require.NoError(t, err)
		assert.Equal(t, "BREW-042", k.BatchRef)
		assert.NotNil(t, k.LastFilledAt)
	})

	t.Run("delivery assigns holder, drain clears it", func(t *testing.T) {
		k := newTestKeg(t)
		walk(t, k, StateDirty, StateClean, StateFilling, StateFull, StateInTransit)
		_, err := k.Transition(StateInClient, TransitionContext{HolderRef: "CLIENT-9"})
		require.NoError(t, err)
		assert.Equal(t, "CLIENT-9", k.CurrentHolder)

		// on-site drain
		walk(t, k, StateEmpty)
		assert.Empty(t, k.CurrentHolder)
		assert.Empty(t, k.BatchRef)
	})

	t.Run("undelivered return keeps original fill", func(t *testing.T) {
		k := newTestKeg(t)
		walk(t, k, StateDirty, StateClean, StateFilling)
		_, err := k.Transition(StateFull, TransitionContext{BatchRef: "BREW-001"})
		require.NoError(t, err)
		filledAt := k.LastFilledAt

		walk(t, k, StateInTransit, StateFull)
		assert.Equal(t, "BREW-001", k.BatchRef)
		assert.Equal(t, filledAt, k.LastFilledAt)
		assert.Equal(t, 0, k.CycleCount)
	})

	t.Run("retire deactivates and is terminal", func(t *testing.T) {
		k := newTestKeg(t)
		walk(t, k, StateRetired)
		assert.False(t, k.IsActive)
		_, err := k.Transition(StateDirty, TransitionContext{})
		assert.Error(t, err)
	})
}

func TestKegAsset_CycleCount(t *testing.T) {
	k := newTestKeg(t)

	// one full taproom serving cycle
	walk(t, k, StateDirty, StateClean, StateFilling)
	_, err := k.Transition(StateFull, TransitionContext{BatchRef: "BREW-001"})
	require.NoError(t, err)
	walk(t, k, StateTapped)
	assert.Equal(t, 0, k.CycleCount, "cycle completes only on TAPPED -> EMPTY")

	walk(t, k, StateEmpty)
	assert.Equal(t, 1, k.CycleCount)

	// client delivery drains on site: no TAPPED, no cycle increment
	walk(t, k, StateDirty, StateClean, StateFilling, StateFull, StateInTransit)
	_, err = k.Transition(StateInClient, TransitionContext{HolderRef: "CLIENT-1"})
	require.NoError(t, err)
	walk(t, k, StateEmpty)
	assert.Equal(t, 1, k.CycleCount)
}

func TestKegAsset_ReturnTripCyclePolicy(t *testing.T) {
	t.Run("return keeps the tally by default", func(t *testing.T) {
		k := newTestKeg(t)
		k.CycleCount = 3
		walk(t, k, StateDirty, StateClean, StateFilling, StateFull, StateInTransit)
		_, err := k.Transition(StateFull, TransitionContext{})
		require.NoError(t, err)
		assert.Equal(t, 3, k.CycleCount)
	})

	t.Run("reset policy zeroes on return", func(t *testing.T) {
		k := newTestKeg(t)
		k.CycleCount = 3
		walk(t, k, StateDirty, StateClean, StateFilling, StateFull, StateInTransit)
		_, err := k.Transition(StateFull, TransitionContext{ResetCycleOnReturn: true})
		require.NoError(t, err)
		assert.Equal(t, 0, k.CycleCount)
	})
}
