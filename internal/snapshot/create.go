package snapshot

import (
	"context"

	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"k8s.io/apimachinery/pkg/util/wait"
)

// Create takes a new snapshot under a generated unique name and blocks until
// Elasticsearch reports it as successful. It returns the snapshot name.
// There is no timeout: only cancelling ctx stops the wait.
func (m *Manager) Create(ctx context.Context) (string, error) {
	if err := m.EnsureRepository(ctx); err != nil {
		return "", err
	}

	name := m.newName()
	m.log.Infof("Creating snapshot '%s' in repository '%s'", name, m.repo.Name)

	if err := m.es.CreateSnapshot(ctx, m.repo.Name, name); err != nil {
		return "", err
	}

	m.log.Infof("Waiting for snapshot to complete...")
	if err := m.waitForSnapshot(ctx, name); err != nil {
		return name, err
	}

	m.log.Successf("Snapshot '%s' complete", name)
	return name, nil
}

func (m *Manager) waitForSnapshot(ctx context.Context, name string) error {
	return wait.PollUntilContextCancel(ctx, m.snapshotPollInterval, true, func(ctx context.Context) (bool, error) {
		snapshot, err := m.es.SnapshotStatus(ctx, m.repo.Name, name)
		if err != nil {
			return false, err
		}

		switch snapshot.State {
		case elasticsearch.StateInProgress:
			m.log.Debugf("Snapshot '%s' is still in progress", name)
			return false, nil
		case elasticsearch.StateSuccess:
			return true, nil
		default:
			return false, &UnexpectedStateError{Snapshot: name, State: snapshot.State}
		}
	})
}
