package snapshot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/stackvista/es-snapper/internal/elasticsearch"
)

// List returns all snapshots of the repository sorted by start time, oldest
// first unless descending is set.
func (m *Manager) List(ctx context.Context, descending bool) ([]elasticsearch.Snapshot, error) {
	if err := m.EnsureRepository(ctx); err != nil {
		return nil, err
	}

	snapshots, err := m.es.ListSnapshots(ctx, m.repo.Name)
	if err != nil {
		return nil, err
	}

	SortByStartTime(snapshots, descending)
	return snapshots, nil
}

// SortByStartTime sorts snapshots on the start time reported by Elasticsearch.
// Snapshots with equal start times keep their relative order.
func SortByStartTime(snapshots []elasticsearch.Snapshot, descending bool) {
	slices.SortStableFunc(snapshots, func(a, b elasticsearch.Snapshot) int {
		if descending {
			return strings.Compare(b.StartTime, a.StartTime)
		}
		return strings.Compare(a.StartTime, b.StartTime)
	})
}

// Cleanup deletes all but the keep most recent snapshots, one at a time.
// It stops at the first failed deletion and returns the snapshots deleted so far.
func (m *Manager) Cleanup(ctx context.Context, keep int) ([]elasticsearch.Snapshot, error) {
	if keep < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeep, keep)
	}

	snapshots, err := m.List(ctx, true)
	if err != nil {
		return nil, err
	}

	m.log.Infof("Cleaning up, will keep %d latest snapshot(s)", keep)
	if len(snapshots) <= keep {
		m.log.Infof("Found %d snapshot(s), nothing to delete", len(snapshots))
		return nil, nil
	}

	expired := snapshots[keep:]
	deleted := make([]elasticsearch.Snapshot, 0, len(expired))
	for _, snapshot := range expired {
		if err := m.es.DeleteSnapshot(ctx, m.repo.Name, snapshot.Snapshot); err != nil {
			return deleted, err
		}
		deleted = append(deleted, snapshot)
		m.log.Infof("Snapshot '%s' from %s deleted", snapshot.Snapshot, snapshot.StartTime)
	}

	m.log.Successf("Deleted %d snapshot(s)", len(deleted))
	return deleted, nil
}
