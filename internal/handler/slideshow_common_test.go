package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelov/photo-share-gallery/internal/repository"
)

func positions(members []repository.Member) map[uint64]int {
	out := make(map[uint64]int, len(members))
	for _, m := range members {
		out[m.PhotoID] = m.Position
	}
	return out
}

// assertDense checks the core ordering invariant: N members occupy positions
// exactly 0..N-1.
func assertDense(t *testing.T, members []repository.Member) {
	t.Helper()
	seen := make(map[int]bool, len(members))
	for _, m := range members {
		assert.GreaterOrEqual(t, m.Position, 0)
		assert.Less(t, m.Position, len(members))
		assert.False(t, seen[m.Position], "duplicate position %d", m.Position)
		seen[m.Position] = true
	}
}

func TestAssignPositionsFollowsSubmittedOrder(t *testing.T) {
	members := assignPositions([]uint64{7, 3, 9})
	require.Len(t, members, 3)
	assert.Equal(t, map[uint64]int{7: 0, 3: 1, 9: 2}, positions(members))
	assertDense(t, members)
}

func TestAssignPositionsEmpty(t *testing.T) {
	assert.Empty(t, assignPositions(nil))
}

func TestDuplicateID(t *testing.T) {
	assert.Equal(t, uint64(0), duplicateID([]uint64{1, 2, 3}))
	assert.Equal(t, uint64(2), duplicateID([]uint64{1, 2, 3, 2}))
	assert.Equal(t, uint64(5), duplicateID([]uint64{5, 5}))
	assert.Equal(t, uint64(0), duplicateID(nil))
}

func TestFilterNewPhotosSkipsExistingMembers(t *testing.T) {
	current := assignPositions([]uint64{7, 3, 9})

	fresh := filterNewPhotos([]uint64{3, 5}, current)
	assert.Equal(t, []uint64{5}, fresh)

	// All already present: nothing to add.
	assert.Empty(t, filterNewPhotos([]uint64{7, 9}, current))

	// Order of the remainder follows the request, not the slideshow.
	assert.Equal(t, []uint64{11, 5}, filterNewPhotos([]uint64{11, 9, 5}, current))
}

func TestNextPosition(t *testing.T) {
	assert.Equal(t, 0, nextPosition(nil))
	assert.Equal(t, 3, nextPosition(assignPositions([]uint64{7, 3, 9})))
}

func TestAppendThenRemoveKeepsPositionsDense(t *testing.T) {
	// Start with [7 3 9], append [3 5], then remove 3.
	current := assignPositions([]uint64{7, 3, 9})

	fresh := filterNewPhotos([]uint64{3, 5}, current)
	start := nextPosition(current)
	for i, id := range fresh {
		current = append(current, repository.Member{PhotoID: id, Position: start + i})
	}
	assert.Equal(t, map[uint64]int{7: 0, 3: 1, 9: 2, 5: 3}, positions(current))
	assertDense(t, current)

	// Simulate the removal shift the store performs: delete 3 (position 1)
	// and move everything above it down one.
	removedPos := positions(current)[3]
	next := current[:0]
	for _, m := range current {
		if m.PhotoID == 3 {
			continue
		}
		if m.Position > removedPos {
			m.Position--
		}
		next = append(next, m)
	}
	assert.Equal(t, map[uint64]int{7: 0, 9: 1, 5: 2}, positions(next))
	assertDense(t, next)
}

func TestValidateReorderAcceptsExactPermutation(t *testing.T) {
	current := assignPositions([]uint64{7, 9, 5})
	require.NoError(t, validateReorder(current, []uint64{5, 7, 9}))
	require.NoError(t, validateReorder(current, []uint64{7, 9, 5}))
	require.NoError(t, validateReorder(nil, nil))
}

func TestValidateReorderRejectsBadLists(t *testing.T) {
	current := assignPositions([]uint64{7, 9, 5})

	cases := map[string][]uint64{
		"too short":   {5, 7},
		"too long":    {5, 7, 9, 11},
		"foreign id":  {5, 7, 11},
		"duplicated":  {5, 7, 7},
		"empty list":  {},
		"all foreign": {1, 2, 3},
	}
	for name, proposed := range cases {
		assert.ErrorIs(t, validateReorder(current, proposed), repository.ErrOrderMismatch, name)
	}
}
