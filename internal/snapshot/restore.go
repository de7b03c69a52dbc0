package snapshot

import (
	"context"
	"fmt"

	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"k8s.io/apimachinery/pkg/util/wait"
)

// RestoreOptions controls a restore
type RestoreOptions struct {
	// Name of the snapshot to restore, or Latest
	Name string
	// IgnoreMissing turns a missing snapshot into a no-op instead of an error
	IgnoreMissing bool
	// WaitFor is the cluster health colour to wait for after the restore was
	// accepted. Empty or red returns right away.
	WaitFor string
}

// ValidateWaitFor checks a cluster health colour to wait for
func ValidateWaitFor(waitFor string) error {
	switch waitFor {
	case "", elasticsearch.HealthRed, elasticsearch.HealthYellow, elasticsearch.HealthGreen:
		return nil
	default:
		return fmt.Errorf("%w: %q (must be red, yellow or green)", ErrInvalidWaitFor, waitFor)
	}
}

// Restore resolves a snapshot, closes every index it covers, restores it and
// optionally waits for the cluster to reach the requested health colour.
func (m *Manager) Restore(ctx context.Context, opts RestoreOptions) error {
	if err := ValidateWaitFor(opts.WaitFor); err != nil {
		return err
	}

	// An existing bucket might already hold snapshots to restore from
	if err := m.EnsureRepository(ctx); err != nil {
		return err
	}

	name := opts.Name
	if name == "" {
		name = Latest
	}

	snapshot, err := m.resolve(ctx, name)
	if err != nil {
		return err
	}

	if snapshot == nil {
		if opts.IgnoreMissing {
			m.log.Warningf("No snapshot '%s' to restore in repository '%s', ignoring", name, m.repo.Name)
			return nil
		}
		return fmt.Errorf("%w: '%s' in repository '%s'", ErrNoSnapshotFound, name, m.repo.Name)
	}

	m.log.Infof("Restoring snapshot '%s' taken %s", snapshot.Snapshot, snapshot.StartTime)

	if err := m.closeIndices(ctx, snapshot.Indices); err != nil {
		return err
	}

	if err := m.es.RestoreSnapshot(ctx, m.repo.Name, snapshot.Snapshot); err != nil {
		return err
	}

	if opts.WaitFor == "" || opts.WaitFor == elasticsearch.HealthRed {
		m.log.Successf("Restore of snapshot '%s' started", snapshot.Snapshot)
		return nil
	}

	m.log.Infof("Waiting for cluster to become %s...", opts.WaitFor)
	if err := m.waitForHealth(ctx, opts.WaitFor); err != nil {
		return err
	}

	m.log.Successf("Done restoring from snapshot '%s'", snapshot.Snapshot)
	return nil
}

// resolve returns the named snapshot, the most recent one for Latest, or nil if there is none
func (m *Manager) resolve(ctx context.Context, name string) (*elasticsearch.Snapshot, error) {
	if name != Latest {
		return m.es.GetSnapshot(ctx, m.repo.Name, name)
	}

	snapshots, err := m.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[0], nil
}

func (m *Manager) closeIndices(ctx context.Context, indices []string) error {
	if len(indices) == 0 {
		m.log.Warningf("Snapshot contains no indices")
		return nil
	}

	m.log.Infof("Closing %d index(es) covered by the snapshot", len(indices))
	for _, index := range indices {
		closed, err := m.es.CloseIndex(ctx, index)
		if err != nil {
			return err
		}
		if closed {
			m.log.Debugf("  - %s closed", index)
		} else {
			m.log.Debugf("  - %s does not exist, skipped", index)
		}
	}
	return nil
}

func (m *Manager) waitForHealth(ctx context.Context, status string) error {
	return wait.PollUntilContextCancel(ctx, m.healthPollInterval, true, func(ctx context.Context) (bool, error) {
		health, err := m.es.ClusterHealth(ctx)
		if err != nil {
			return false, err
		}
		m.log.Debugf("Cluster status is %s", health.Status)
		return health.Status == status, nil
	})
}
