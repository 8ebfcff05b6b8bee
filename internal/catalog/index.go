package catalog

import (
	"context"
	"sort"

	"github.com/nevesb/romc-catalog/internal/domain"
	"github.com/nevesb/romc-catalog/internal/repository"
)

// SnapshotIndex orders the known dataset tags chronologically and answers
// "which snapshot came immediately before tag T". Absence of an earlier
// snapshot is a normal state, never a fault.
type SnapshotIndex struct {
	ordered  []domain.Snapshot
	position map[string]int
}

// NewSnapshotIndex builds an index over the given snapshots, newest first.
// Ties on the capture timestamp break on the tag, descending.
func NewSnapshotIndex(snapshots []domain.Snapshot) *SnapshotIndex {
	ordered := make([]domain.Snapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[j].Before(ordered[i])
	})

	position := make(map[string]int, len(ordered))
	for i, snapshot := range ordered {
		position[snapshot.Tag] = i
	}
	return &SnapshotIndex{ordered: ordered, position: position}
}

// LoadSnapshotIndex builds an index from the snapshot repository.
func LoadSnapshotIndex(ctx context.Context, snapshots repository.SnapshotRepository) (*SnapshotIndex, error) {
	list, err := snapshots.ListOrderedByTime(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshotIndex(list), nil
}

// Latest returns the most recent snapshot, if any.
func (x *SnapshotIndex) Latest() (domain.Snapshot, bool) {
	if len(x.ordered) == 0 {
		return domain.Snapshot{}, false
	}
	return x.ordered[0], true
}

// PreviousOf returns the snapshot immediately before the given tag. An empty
// tag asks for the snapshot before the most recent one. Unknown tags and
// first snapshots yield no result.
func (x *SnapshotIndex) PreviousOf(tag string) (domain.Snapshot, bool) {
	pos := 0
	if tag != "" {
		known, ok := x.position[tag]
		if !ok {
			return domain.Snapshot{}, false
		}
		pos = known
	}
	if pos+1 >= len(x.ordered) {
		return domain.Snapshot{}, false
	}
	return x.ordered[pos+1], true
}

// Ordered returns the indexed snapshots, newest first.
func (x *SnapshotIndex) Ordered() []domain.Snapshot {
	return x.ordered
}
