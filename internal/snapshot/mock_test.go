package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"github.com/stackvista/es-snapper/internal/logger"
)

// mockESClient records calls made by the Manager and replays canned responses
type mockESClient struct {
	repositoryExists bool
	repositoryErr    error
	createRepoErr    error
	createdRepos     []elasticsearch.RepositorySettings
	repositoryReads  int

	createSnapshotErr error
	createdSnapshots  []string

	// states returned by successive SnapshotStatus calls while polling
	states        []string
	statusErr     error
	snapshotReads int

	snapshots      map[string]*elasticsearch.Snapshot
	getSnapshotErr error

	list       []elasticsearch.Snapshot
	listErr    error
	deleteErrs map[string]error
	deleted    []string

	closeResults map[string]error
	missing      map[string]bool
	closed       []string

	restoreErr error
	restored   []string

	healthStatuses []string
	healthReads    int

	calls []string
}

func (m *mockESClient) RepositoryExists(_ context.Context, repository string) (bool, error) {
	m.calls = append(m.calls, "RepositoryExists "+repository)
	m.repositoryReads++
	if m.repositoryErr != nil {
		return false, m.repositoryErr
	}
	return m.repositoryExists, nil
}

func (m *mockESClient) CreateRepository(_ context.Context, repository string, settings elasticsearch.RepositorySettings) error {
	m.calls = append(m.calls, "CreateRepository "+repository)
	if m.createRepoErr != nil {
		return m.createRepoErr
	}
	m.createdRepos = append(m.createdRepos, settings)
	m.repositoryExists = true
	return nil
}

func (m *mockESClient) CreateSnapshot(_ context.Context, _, snapshotName string) error {
	m.calls = append(m.calls, "CreateSnapshot "+snapshotName)
	if m.createSnapshotErr != nil {
		return m.createSnapshotErr
	}
	m.createdSnapshots = append(m.createdSnapshots, snapshotName)
	return nil
}

func (m *mockESClient) GetSnapshot(_ context.Context, _, snapshotName string) (*elasticsearch.Snapshot, error) {
	m.calls = append(m.calls, "GetSnapshot "+snapshotName)
	if m.getSnapshotErr != nil {
		return nil, m.getSnapshotErr
	}
	return m.snapshots[snapshotName], nil
}

func (m *mockESClient) SnapshotStatus(_ context.Context, _, snapshotName string) (*elasticsearch.Snapshot, error) {
	m.calls = append(m.calls, "SnapshotStatus "+snapshotName)
	m.snapshotReads++
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	if len(m.states) == 0 {
		return nil, fmt.Errorf("no snapshot state configured")
	}
	idx := m.snapshotReads - 1
	if idx >= len(m.states) {
		idx = len(m.states) - 1
	}
	return &elasticsearch.Snapshot{Snapshot: snapshotName, State: m.states[idx]}, nil
}

func (m *mockESClient) ListSnapshots(_ context.Context, _ string) ([]elasticsearch.Snapshot, error) {
	m.calls = append(m.calls, "ListSnapshots")
	if m.listErr != nil {
		return nil, m.listErr
	}
	// Return a copy so sorting does not change the fixture
	return append([]elasticsearch.Snapshot(nil), m.list...), nil
}

func (m *mockESClient) DeleteSnapshot(_ context.Context, _, snapshotName string) error {
	m.calls = append(m.calls, "DeleteSnapshot "+snapshotName)
	if err := m.deleteErrs[snapshotName]; err != nil {
		return err
	}
	m.deleted = append(m.deleted, snapshotName)
	return nil
}

func (m *mockESClient) RestoreSnapshot(_ context.Context, _, snapshotName string) error {
	m.calls = append(m.calls, "RestoreSnapshot "+snapshotName)
	if m.restoreErr != nil {
		return m.restoreErr
	}
	m.restored = append(m.restored, snapshotName)
	return nil
}

func (m *mockESClient) CloseIndex(_ context.Context, index string) (bool, error) {
	m.calls = append(m.calls, "CloseIndex "+index)
	if err := m.closeResults[index]; err != nil {
		return false, err
	}
	if m.missing[index] {
		return false, nil
	}
	m.closed = append(m.closed, index)
	return true, nil
}

func (m *mockESClient) ClusterHealth(_ context.Context) (*elasticsearch.ClusterHealth, error) {
	m.calls = append(m.calls, "ClusterHealth")
	m.healthReads++
	if len(m.healthStatuses) == 0 {
		return nil, fmt.Errorf("no health status configured")
	}
	idx := m.healthReads - 1
	if idx >= len(m.healthStatuses) {
		idx = len(m.healthStatuses) - 1
	}
	return &elasticsearch.ClusterHealth{Status: m.healthStatuses[idx]}, nil
}

func (m *mockESClient) ClusterSettings(_ context.Context, _ bool) (json.RawMessage, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockESClient) PutClusterSettings(_ context.Context, _ bool, _ map[string]interface{}) (json.RawMessage, error) {
	return nil, fmt.Errorf("not implemented")
}

// newTestManager creates a manager with millisecond poll intervals
func newTestManager(es elasticsearch.Interface, repo RepositoryConfig) *Manager {
	return NewManager(es, repo, logger.New(true, false),
		WithPollIntervals(time.Millisecond, time.Millisecond),
		WithNameGenerator(func() string { return "snap-test" }),
	)
}

func snap(name, startTime string, indices ...string) elasticsearch.Snapshot {
	return elasticsearch.Snapshot{
		Snapshot:  name,
		State:     elasticsearch.StateSuccess,
		StartTime: startTime,
		Indices:   indices,
	}
}

func names(snapshots []elasticsearch.Snapshot) []string {
	result := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		result = append(result, s.Snapshot)
	}
	return result
}
