// Package elasticsearch provides a client for interacting with Elasticsearch
// including snapshot repository management, snapshot operations, index closing
// and cluster health and settings.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/stackvista/es-snapper/internal/logger"
)

// Snapshot states reported by Elasticsearch
const (
	StateInProgress = "IN_PROGRESS"
	StateSuccess    = "SUCCESS"
)

// Cluster health colours
const (
	HealthRed    = "red"
	HealthYellow = "yellow"
	HealthGreen  = "green"
)

// Client represents an Elasticsearch client
type Client struct {
	transport *Transport
}

// Snapshot represents an Elasticsearch snapshot
type Snapshot struct {
	Snapshot         string   `json:"snapshot"`
	UUID             string   `json:"uuid"`
	Repository       string   `json:"repository"`
	Version          string   `json:"version"`
	State            string   `json:"state"`
	StartTime        string   `json:"start_time"`
	StartTimeMillis  int64    `json:"start_time_in_millis"`
	EndTime          string   `json:"end_time"`
	EndTimeMillis    int64    `json:"end_time_in_millis"`
	DurationInMillis int64    `json:"duration_in_millis"`
	Indices          []string `json:"indices"`
	Shards           struct {
		Total      int `json:"total"`
		Failed     int `json:"failed"`
		Successful int `json:"successful"`
	} `json:"shards"`
}

// SnapshotsResponse represents the response from Elasticsearch snapshots API
type SnapshotsResponse struct {
	Snapshots []Snapshot `json:"snapshots"`
	Total     int        `json:"total"`
	Remaining int        `json:"remaining"`
}

// RepositorySettings describes the S3 bucket backing a snapshot repository
type RepositorySettings struct {
	Bucket string `json:"bucket"`
	Region string `json:"region"`
}

// ClusterHealth represents the response of the cluster health API
type ClusterHealth struct {
	ClusterName             string `json:"cluster_name"`
	Status                  string `json:"status"`
	NumberOfNodes           int    `json:"number_of_nodes"`
	NumberOfDataNodes       int    `json:"number_of_data_nodes"`
	UnassignedShards        int    `json:"unassigned_shards"`
	DelayedUnassignedShards int    `json:"delayed_unassigned_shards"`
	NumberOfPendingTasks    int    `json:"number_of_pending_tasks"`
}

// NewClient creates a new Elasticsearch client
func NewClient(conn ConnectionConfig, retry RetryPolicy, log *logger.Logger) (*Client, error) {
	t, err := NewTransport(conn, retry, log)
	if err != nil {
		return nil, err
	}
	return &Client{transport: t}, nil
}

// RepositoryExists checks whether a snapshot repository is registered
func (c *Client) RepositoryExists(ctx context.Context, repository string) (bool, error) {
	res, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.SnapshotGetRepositoryRequest{Repository: []string{repository}}
	}, nil, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return false, fmt.Errorf("failed to get snapshot repository: %w", err)
	}
	return res.StatusCode == http.StatusOK, nil
}

// CreateRepository registers an S3 snapshot repository
func (c *Client) CreateRepository(ctx context.Context, repository string, settings RepositorySettings) error {
	body, err := json.Marshal(map[string]interface{}{
		"type":     "s3",
		"settings": settings,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	_, err = c.transport.Do(ctx, func() esapi.Request {
		return esapi.SnapshotCreateRepositoryRequest{
			Repository: repository,
			Body:       bytes.NewReader(body),
		}
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create snapshot repository: %w", err)
	}
	return nil
}

// CreateSnapshot starts a snapshot without waiting for it to complete
func (c *Client) CreateSnapshot(ctx context.Context, repository, snapshotName string) error {
	_, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.SnapshotCreateRequest{
			Repository: repository,
			Snapshot:   snapshotName,
		}
	}, nil, http.StatusOK)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves details of a specific snapshot including its indices.
// A nil snapshot is returned when it does not exist.
func (c *Client) GetSnapshot(ctx context.Context, repository, snapshotName string) (*Snapshot, error) {
	var snapshotsResp SnapshotsResponse
	res, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.SnapshotGetRequest{
			Repository: repository,
			Snapshot:   []string{snapshotName},
		}
	}, &snapshotsResp, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if res.StatusCode == http.StatusNotFound || len(snapshotsResp.Snapshots) == 0 {
		return nil, nil
	}

	return &snapshotsResp.Snapshots[0], nil
}

// SnapshotStatus reads the current state of a snapshot that is expected to
// exist. Unlike GetSnapshot a 404 is not accepted, so it is retried like any
// other unexpected status.
func (c *Client) SnapshotStatus(ctx context.Context, repository, snapshotName string) (*Snapshot, error) {
	var snapshotsResp SnapshotsResponse
	_, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.SnapshotGetRequest{
			Repository: repository,
			Snapshot:   []string{snapshotName},
		}
	}, &snapshotsResp, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot status: %w", err)
	}

	if len(snapshotsResp.Snapshots) == 0 {
		return nil, fmt.Errorf("no status returned for snapshot %s", snapshotName)
	}
	return &snapshotsResp.Snapshots[0], nil
}

// ListSnapshots retrieves all snapshots from a repository in the order reported by Elasticsearch
func (c *Client) ListSnapshots(ctx context.Context, repository string) ([]Snapshot, error) {
	var snapshotsResp SnapshotsResponse
	_, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.SnapshotGetRequest{
			Repository: repository,
			Snapshot:   []string{"_all"},
		}
	}, &snapshotsResp, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots: %w", err)
	}

	return snapshotsResp.Snapshots, nil
}

// DeleteSnapshot deletes a snapshot by name
func (c *Client) DeleteSnapshot(ctx context.Context, repository, snapshotName string) error {
	_, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.SnapshotDeleteRequest{
			Repository: repository,
			Snapshot:   []string{snapshotName},
		}
	}, nil, http.StatusOK)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", snapshotName, err)
	}
	return nil
}

// CloseIndex closes an index. It returns false when the index does not exist.
func (c *Client) CloseIndex(ctx context.Context, index string) (bool, error) {
	res, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.IndicesCloseRequest{Index: []string{index}}
	}, nil, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return false, fmt.Errorf("failed to close index %s: %w", index, err)
	}
	return res.StatusCode == http.StatusOK, nil
}

// RestoreSnapshot starts restoring a snapshot without waiting for it to complete
func (c *Client) RestoreSnapshot(ctx context.Context, repository, snapshotName string) error {
	_, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.SnapshotRestoreRequest{
			Repository: repository,
			Snapshot:   snapshotName,
		}
	}, nil, http.StatusOK, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return nil
}

// ClusterHealth fetches the current cluster health
func (c *Client) ClusterHealth(ctx context.Context) (*ClusterHealth, error) {
	var health ClusterHealth
	_, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.ClusterHealthRequest{}
	}, &health, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster health: %w", err)
	}
	return &health, nil
}

// ClusterSettings returns the raw cluster settings document using flat setting keys
func (c *Client) ClusterSettings(ctx context.Context, includeDefaults bool) (json.RawMessage, error) {
	flat := true
	res, err := c.transport.Do(ctx, func() esapi.Request {
		req := esapi.ClusterGetSettingsRequest{FlatSettings: &flat}
		if includeDefaults {
			req.IncludeDefaults = &includeDefaults
		}
		return req
	}, nil, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster settings: %w", err)
	}
	return json.RawMessage(res.Body), nil
}

// PutClusterSettings writes settings into the transient or persistent namespace
// and returns the acknowledged settings document. A nil value resets a setting.
func (c *Client) PutClusterSettings(ctx context.Context, transient bool, settings map[string]interface{}) (json.RawMessage, error) {
	scope := "persistent"
	if transient {
		scope = "transient"
	}
	body, err := json.Marshal(map[string]interface{}{scope: settings})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	res, err := c.transport.Do(ctx, func() esapi.Request {
		return esapi.ClusterPutSettingsRequest{Body: bytes.NewReader(body)}
	}, nil, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("failed to update cluster settings: %w", err)
	}
	return json.RawMessage(res.Body), nil
}
