package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAlloc(t *testing.T) {
	a := NewArena(0)
	require.NoError(t, a.Init(6))
	assert.Equal(t, 6, a.Cap())

	first, err := a.Alloc(3)
	require.NoError(t, err)
	second, err := a.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, 6, a.Used())
	assert.Equal(t, 3, cap(first))

	second[0] = 7
	first = append(first, 99)
	assert.Equal(t, ItemID(7), second[0], "append on a full slice must not spill into its neighbour")
	assert.Len(t, first, 4)

	_, err = a.Alloc(1)
	assert.ErrorIs(t, err, ErrArenaExhausted)
}

func TestArenaInitReusesBuffer(t *testing.T) {
	a := NewArena(0)
	require.NoError(t, a.Init(10))
	s, err := a.Alloc(10)
	require.NoError(t, err)
	base := &s[0]

	require.NoError(t, a.Init(4))
	assert.Equal(t, 0, a.Used())
	assert.Equal(t, 4, a.Cap())
	s, err = a.Alloc(4)
	require.NoError(t, err)
	assert.Same(t, base, &s[0])
}

func TestArenaTooLarge(t *testing.T) {
	a := NewArena(8)
	assert.ErrorIs(t, a.Init(9), ErrArenaTooLarge)
	assert.NoError(t, a.Init(8))
}

func TestCounts(t *testing.T) {
	tests := []struct {
		n, k       int
		perm, comb int
	}{
		{5, 2, 20, 10},
		{6, 3, 120, 20},
		{10, 0, 1, 1},
		{4, 4, 24, 1},
		{12, 12, 479001600, 1},
	}
	for _, tt := range tests {
		p, err := PermutationCount(tt.n, tt.k)
		require.NoError(t, err)
		assert.Equal(t, tt.perm, p, "P(%d,%d)", tt.n, tt.k)

		c, err := CombinationCount(tt.n, tt.k)
		require.NoError(t, err)
		assert.Equal(t, tt.comb, c, "C(%d,%d)", tt.n, tt.k)
	}
}

func TestCountErrors(t *testing.T) {
	_, err := PermutationCount(3, 5)
	assert.ErrorIs(t, err, ErrPoolTooSmall)
	_, err = CombinationCount(3, 5)
	assert.ErrorIs(t, err, ErrPoolTooSmall)

	_, err = PermutationCount(100, 50)
	assert.ErrorIs(t, err, ErrCountOverflow)
	_, err = CombinationCount(200, 100)
	assert.ErrorIs(t, err, ErrCountOverflow)

	_, err = arenaEntries(1<<62, 8)
	assert.ErrorIs(t, err, ErrCountOverflow)
}
