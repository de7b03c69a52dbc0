package elasticsearch

import (
	"context"
	"encoding/json"
)

// Interface defines the contract for Elasticsearch client operations
// This interface allows for easy mocking in tests
type Interface interface {
	// Repository operations
	RepositoryExists(ctx context.Context, repository string) (bool, error)
	CreateRepository(ctx context.Context, repository string, settings RepositorySettings) error

	// Snapshot operations
	CreateSnapshot(ctx context.Context, repository, snapshotName string) error
	GetSnapshot(ctx context.Context, repository, snapshotName string) (*Snapshot, error)
	SnapshotStatus(ctx context.Context, repository, snapshotName string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, repository string) ([]Snapshot, error)
	DeleteSnapshot(ctx context.Context, repository, snapshotName string) error
	RestoreSnapshot(ctx context.Context, repository, snapshotName string) error

	// Index operations
	CloseIndex(ctx context.Context, index string) (bool, error)

	// Cluster operations
	ClusterHealth(ctx context.Context) (*ClusterHealth, error)
	ClusterSettings(ctx context.Context, includeDefaults bool) (json.RawMessage, error)
	PutClusterSettings(ctx context.Context, transient bool, settings map[string]interface{}) (json.RawMessage, error)
}

// Ensure *Client implements Interface
var _ Interface = (*Client)(nil)
