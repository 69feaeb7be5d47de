package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignAndLookup(t *testing.T) {
	g := Grid{}

	g.Assign(0, 0, 0, "7")
	id, ok := g.Lookup(0, 0, 0)
	require.True(t, ok)
	assert.Equal(t, "7", id)

	_, ok = g.Lookup(0, 0, 1)
	assert.False(t, ok)
	_, ok = g.Lookup(3, 0, 0)
	assert.False(t, ok)
}

func TestAssignOverwritesSlot(t *testing.T) {
	g := Grid{}
	g.Assign(1, 2, 3, "7")
	g.Assign(1, 2, 3, "9")

	id, ok := g.Lookup(1, 2, 3)
	require.True(t, ok)
	assert.Equal(t, "9", id)

	_, scheduled := g.ScheduledIDs()["7"]
	assert.False(t, scheduled)
}

func TestScheduledAndUnscheduled(t *testing.T) {
	g := Grid{}
	g.Assign(0, 0, 0, "1")
	g.Assign(0, 1, 0, "3")

	ids := g.ScheduledIDs()
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "1")
	assert.Contains(t, ids, "3")

	assert.Equal(t, []string{"0", "2"}, g.Unscheduled([]string{"0", "1", "2", "3"}))
}

func TestSwap(t *testing.T) {
	g := Grid{}
	g.Assign(0, 0, 0, "7")
	g.Assign(0, 1, 1, "9")
	original := g.Clone()

	require.NoError(t, g.Swap("7", "9"))

	id, _ := g.Lookup(0, 0, 0)
	assert.Equal(t, "9", id)
	id, _ = g.Lookup(0, 1, 1)
	assert.Equal(t, "7", id)

	// Swapping again restores the original grid.
	require.NoError(t, g.Swap("7", "9"))
	assert.Equal(t, original, g)
}

func TestSwapWithDuplicatedOccupant(t *testing.T) {
	// The same id in several slots must not be clobbered by the swap; the
	// sentinel pass keeps both directions correct.
	g := Grid{}
	g.Assign(0, 0, 0, "7")
	g.Assign(1, 0, 0, "7")
	g.Assign(0, 1, 0, "9")

	require.NoError(t, g.Swap("7", "9"))

	id, _ := g.Lookup(0, 0, 0)
	assert.Equal(t, "9", id)
	id, _ = g.Lookup(1, 0, 0)
	assert.Equal(t, "9", id)
	id, _ = g.Lookup(0, 1, 0)
	assert.Equal(t, "7", id)
}

func TestSwapRequiresBothScheduled(t *testing.T) {
	g := Grid{}
	g.Assign(0, 0, 0, "7")
	original := g.Clone()

	err := g.Swap("7", "9")
	require.ErrorIs(t, err, ErrNotScheduled)
	assert.Equal(t, original, g, "a failed swap must leave the grid unchanged")

	err = g.Swap("5", "7")
	require.ErrorIs(t, err, ErrNotScheduled)
	assert.Equal(t, original, g)
}

func TestNextAndParallel(t *testing.T) {
	level3 := []string{"09:00", "10:00"}

	g := Grid{}
	g.Assign(0, 0, 0, "1") // RoomA 09:00
	g.Assign(0, 0, 1, "2") // RoomA 10:00
	g.Assign(0, 1, 1, "3") // RoomB 10:00

	next, nextIndex, parallel, ok := g.NextAndParallel(0, 0, level3, "09:30")
	require.True(t, ok)
	assert.Equal(t, "2", next)
	assert.Equal(t, 1, nextIndex)
	require.Len(t, parallel, 1)
	assert.Equal(t, Parallel{Level2Index: 1, Contribution: "3"}, parallel[0])
}

func TestNextAndParallelPicksEarliestUpcoming(t *testing.T) {
	level3 := []string{"09:00", "10:00", "11:00"}

	g := Grid{}
	g.Assign(0, 0, 2, "5") // 11:00 scheduled first in map order is irrelevant
	g.Assign(0, 0, 1, "4") // 10:00

	next, nextIndex, _, ok := g.NextAndParallel(0, 0, level3, "09:30")
	require.True(t, ok)
	assert.Equal(t, "4", next)
	assert.Equal(t, 1, nextIndex)
}

func TestNextAndParallelNothingLeft(t *testing.T) {
	level3 := []string{"09:00", "10:00"}

	g := Grid{}
	g.Assign(0, 0, 0, "1")
	g.Assign(0, 0, 1, "2")

	_, _, _, ok := g.NextAndParallel(0, 0, level3, "10:00")
	assert.False(t, ok, "a slot at exactly 'now' is not strictly greater")

	_, _, _, ok = g.NextAndParallel(0, 1, level3, "08:00")
	assert.False(t, ok, "an empty track has no next session")
}

func TestClone(t *testing.T) {
	g := Grid{}
	g.Assign(0, 0, 0, "1")

	c := g.Clone()
	require.Equal(t, g, c)

	c.Assign(0, 0, 0, "2")
	id, _ := g.Lookup(0, 0, 0)
	assert.Equal(t, "1", id)
}
