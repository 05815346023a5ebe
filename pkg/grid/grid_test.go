package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellArithmetic(t *testing.T) {
	a := C(3, -2)
	b := C(-1, 5)

	assert.Equal(t, C(2, 3), a.Add(b))
	assert.Equal(t, C(4, -7), a.Sub(b))
	assert.InDelta(t, math.Hypot(4, 7), a.Distance(b), 1e-9)
	assert.Equal(t, a.Distance(b), b.Distance(a))
}

func TestCellNeighbours(t *testing.T) {
	n := C(0, 0).Neighbours()
	assert.ElementsMatch(t, []Cell{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}, n[:])
	for _, c := range n {
		assert.True(t, c.Adjacent(C(0, 0)))
	}
	assert.False(t, C(0, 0).Adjacent(C(1, 1)))
	assert.False(t, C(0, 0).Adjacent(C(0, 0)))
}

func TestCellKeyRoundTrip(t *testing.T) {
	for _, c := range []Cell{{0, 0}, {12, -4}, {-7, 99}} {
		parsed, err := ParseKey(c.Key())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseKey("nope")
	assert.Error(t, err)
}

func TestOccupancy(t *testing.T) {
	t.Run("rejects empty", func(t *testing.T) {
		_, err := NewOccupancy(nil)
		assert.ErrorIs(t, err, ErrEmptyGrid)
	})

	t.Run("rejects ragged columns", func(t *testing.T) {
		_, err := NewOccupancy([][]bool{{true, true}, {true}})
		assert.Error(t, err)
	})

	t.Run("out of bounds is blocked", func(t *testing.T) {
		occ, err := NewOccupancy([][]bool{{true, false}, {true, true}})
		require.NoError(t, err)

		assert.True(t, occ.Pathable(C(0, 0)))
		assert.False(t, occ.Pathable(C(0, 1)))
		assert.False(t, occ.Pathable(C(-1, 0)))
		assert.False(t, occ.Pathable(C(2, 0)))
		assert.Equal(t, 3, occ.PathableCount())
	})

	t.Run("reachable stops at walls", func(t *testing.T) {
		// Column 1 is a wall; column 2 is cut off from the start.
		occ, err := NewOccupancy([][]bool{{true, true}, {false, false}, {true, true}})
		require.NoError(t, err)

		assert.Equal(t, []Cell{C(0, 0), C(0, 1)}, occ.Reachable(C(0, 0)).Sorted())
		assert.Len(t, occ.Reachable(C(2, 1)), 2)
		assert.Empty(t, occ.Reachable(C(1, 0)))
		assert.Empty(t, occ.Reachable(C(5, 5)))
	})

	t.Run("copies input", func(t *testing.T) {
		src := [][]bool{{true}}
		occ, err := NewOccupancy(src)
		require.NoError(t, err)
		src[0][0] = false
		assert.True(t, occ.Pathable(C(0, 0)))
	})
}

func TestKnowledge(t *testing.T) {
	k := Knowledge{C(0, 0): true, C(1, 0): false}

	assert.True(t, k.Pathable(C(0, 0)))
	assert.True(t, k.Blocked(C(1, 0)))
	assert.False(t, k.Blocked(C(2, 0)))
	assert.True(t, k.HasUnknownNeighbour(C(0, 0)))

	added := k.Merge(Knowledge{C(0, 0): true, C(0, 1): true})
	assert.Equal(t, []Cell{C(0, 1)}, added)
	assert.Len(t, k, 3)

	clone := k.Clone()
	clone[C(5, 5)] = true
	assert.False(t, k.Known(C(5, 5)))
}

func TestSet(t *testing.T) {
	s := NewSet(C(2, 0), C(0, 0))
	assert.True(t, s.Has(C(0, 0)))
	assert.True(t, s.AnyWithin(C(0, 3), 3))
	assert.False(t, s.AnyWithin(C(0, 4), 3))
	assert.Equal(t, []Cell{C(0, 0), C(2, 0)}, s.Sorted())

	s.Remove(C(0, 0))
	assert.False(t, s.Has(C(0, 0)))
}
