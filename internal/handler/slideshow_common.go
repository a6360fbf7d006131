package handler

import "github.com/avelov/photo-share-gallery/internal/repository"

// assignPositions turns an ordered photo id list into membership rows with
// positions 0..len-1, matching the submitted order.
func assignPositions(photoIDs []uint64) []repository.Member {
	members := make([]repository.Member, 0, len(photoIDs))
	for i, id := range photoIDs {
		members = append(members, repository.Member{PhotoID: id, Position: i})
	}
	return members
}

// duplicateID returns the first photo id that appears more than once, or 0.
func duplicateID(photoIDs []uint64) uint64 {
	seen := make(map[uint64]struct{}, len(photoIDs))
	for _, id := range photoIDs {
		if _, ok := seen[id]; ok {
			return id
		}
		seen[id] = struct{}{}
	}
	return 0
}

// filterNewPhotos drops ids already present in the slideshow, preserving the
// submitted order of the remainder. Re-appending an existing member is a
// no-op rather than an error.
func filterNewPhotos(requested []uint64, current []repository.Member) []uint64 {
	existing := make(map[uint64]struct{}, len(current))
	for _, m := range current {
		existing[m.PhotoID] = struct{}{}
	}
	out := make([]uint64, 0, len(requested))
	for _, id := range requested {
		if _, ok := existing[id]; ok {
			continue
		}
		out = append(out, id)
	}
	return out
}

// nextPosition returns the position the next appended photo should take:
// one past the current maximum, or 0 for an empty slideshow.
func nextPosition(current []repository.Member) int {
	next := 0
	for _, m := range current {
		if m.Position >= next {
			next = m.Position + 1
		}
	}
	return next
}

// validateReorder checks that proposed is an exact permutation of the current
// membership: same length, no duplicates, no photo missing or foreign.
// Returns repository.ErrOrderMismatch when it is not.
func validateReorder(current []repository.Member, proposed []uint64) error {
	if len(proposed) != len(current) {
		return repository.ErrOrderMismatch
	}
	existing := make(map[uint64]struct{}, len(current))
	for _, m := range current {
		existing[m.PhotoID] = struct{}{}
	}
	seen := make(map[uint64]struct{}, len(proposed))
	for _, id := range proposed {
		if _, ok := existing[id]; !ok {
			return repository.ErrOrderMismatch
		}
		if _, ok := seen[id]; ok {
			return repository.ErrOrderMismatch
		}
		seen[id] = struct{}{}
	}
	return nil
}
