package snapshot

import (
	"context"
	"fmt"

	"github.com/stackvista/es-snapper/internal/elasticsearch"
)

// EnsureRepository makes sure the snapshot repository exists, creating it
// with the configured bucket and region when it does not. Safe to call repeatedly.
func (m *Manager) EnsureRepository(ctx context.Context) error {
	exists, err := m.es.RepositoryExists(ctx, m.repo.Name)
	if err != nil {
		return err
	}

	if exists {
		m.log.Debugf("Snapshot repository '%s' already exists", m.repo.Name)
		return nil
	}

	m.log.Infof("Snapshot repository '%s' does not exist, trying to create it", m.repo.Name)

	if m.repo.Bucket == "" {
		return fmt.Errorf("%w: value for bucket is not provided", ErrRepositoryConfig)
	}
	if m.repo.Region == "" {
		return fmt.Errorf("%w: value for region is not provided", ErrRepositoryConfig)
	}

	if err := m.es.CreateRepository(ctx, m.repo.Name, elasticsearch.RepositorySettings{
		Bucket: m.repo.Bucket,
		Region: m.repo.Region,
	}); err != nil {
		return err
	}

	m.log.Successf("Snapshot repository '%s' created (bucket: %s, region: %s)", m.repo.Name, m.repo.Bucket, m.repo.Region)
	return nil
}
