package dimension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSet(t *testing.T) Set {
	t.Helper()
	return New(
		[]string{"Mon", "Tue"},
		[][]string{{"RoomA", "RoomB"}, {"RoomC"}},
		[][]string{{"09:00", "10:00"}, {"11:00"}},
		3,
	)
}

func TestNewOffsetLayout(t *testing.T) {
	set := sampleSet(t)

	// 1 level-1 list + 2 level-2 axes + 2 level-3 axes.
	require.Len(t, set, 5)
	assert.Equal(t, []string{"Mon", "Tue"}, set[0])

	// Level-2 axis for level-1 index i lives at offset 1+i.
	assert.Equal(t, []string{"RoomA", "RoomB"}, set[1+0])
	assert.Equal(t, []string{"RoomC"}, set[1+1])

	// Level-3 axis for level-1 index i lives at offset 1+len(level1)+i.
	assert.Equal(t, []string{"09:00", "10:00"}, set[1+2+0])
	assert.Equal(t, []string{"11:00"}, set[1+2+1])
}

func TestAxisAccessorsRoundTrip(t *testing.T) {
	set := sampleSet(t)

	for i := range set.Level1() {
		l2, err := set.Level2Axis(i)
		require.NoError(t, err)
		assert.Equal(t, set[1+i], l2)

		l3, err := set.Level3Axis(i)
		require.NoError(t, err)
		assert.Equal(t, set[1+len(set.Level1())+i], l3)
	}
}

func TestNewIsIdempotent(t *testing.T) {
	a := sampleSet(t)
	b := sampleSet(t)
	assert.Equal(t, a, b)
}

func TestNewDropsEmptyLevel1Entries(t *testing.T) {
	set := New(
		[]string{"Mon", "   ", "Tue"},
		[][]string{{"RoomA"}, {"Ghost"}, {"RoomC"}},
		[][]string{{"09:00"}, {"66:66"}, {"11:00"}},
		3,
	)

	require.Equal(t, []string{"Mon", "Tue"}, set.Level1())

	// The dropped category takes its sub-axes with it.
	l2, err := set.Level2Axis(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"RoomC"}, l2)
}

func TestNewEnforcesMaxLevel1(t *testing.T) {
	set := New(
		[]string{"A", "B", "C", "D"},
		[][]string{{"1"}, {"2"}, {"3"}, {"4"}},
		[][]string{{"x"}, {"y"}, {"z"}, {"w"}},
		2,
	)
	assert.Equal(t, []string{"A", "B"}, set.Level1())
	require.Len(t, set, 5)
}

func TestNewTrimsAxisNames(t *testing.T) {
	set := New(
		[]string{" Mon "},
		[][]string{{"  RoomA ", "", "RoomB"}},
		[][]string{{" 09:00"}},
		0,
	)
	assert.Equal(t, []string{"Mon"}, set.Level1())
	l2, err := set.Level2Axis(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"RoomA", "RoomB"}, l2)
}

func TestOutOfRangeIsAnError(t *testing.T) {
	set := sampleSet(t)

	_, err := set.Level2Axis(2)
	assert.Error(t, err)
	_, err = set.Level2Axis(-1)
	assert.Error(t, err)
	_, err = set.Level3Axis(2)
	assert.Error(t, err)

	var empty Set
	_, err = empty.Level2Axis(0)
	assert.Error(t, err)
}

func TestNameLookup(t *testing.T) {
	set := sampleSet(t)

	i, err := set.Level2Index(0, "RoomB")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	i, err = set.Level3Index(1, "11:00")
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	// A name from another category's axis must not resolve.
	_, err = set.Level2Index(1, "RoomA")
	assert.Error(t, err)
	_, err = set.Level3Index(0, "nope")
	assert.Error(t, err)
}

func TestSplitLines(t *testing.T) {
	lines := SplitLines("RoomA\n\n  RoomB  \nOne name per line\nRoomC\n", "One name per line")
	assert.Equal(t, []string{"RoomA", "RoomB", "RoomC"}, lines)

	assert.Empty(t, SplitLines("", "hint"))
	assert.Empty(t, SplitLines("hint\nhint", "hint"))
}

func TestClone(t *testing.T) {
	set := sampleSet(t)
	clone := set.Clone()
	require.Equal(t, set, clone)

	clone[0][0] = "changed"
	assert.Equal(t, "Mon", set[0][0])
}
