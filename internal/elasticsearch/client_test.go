package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockESServer creates a test HTTP server with Elasticsearch headers
func mockESServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Add Elasticsearch headers for client validation
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
}

// newTestClient creates a client that gives up after a single attempt
func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	tr, _ := newTestTransport(t, ConnectionConfig{URL: url}, 1, true)
	return &Client{transport: tr}
}

func TestClient_RepositoryExists(t *testing.T) {
	tests := []struct {
		name           string
		responseStatus int
		expectedExists bool
		expectError    bool
	}{
		{name: "repository exists", responseStatus: http.StatusOK, expectedExists: true},
		{name: "repository missing", responseStatus: http.StatusNotFound, expectedExists: false},
		{name: "server error", responseStatus: http.StatusInternalServerError, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_snapshot/snapper-snapshots", r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tt.responseStatus)
				_, _ = w.Write([]byte(`{}`))
			})
			defer server.Close()

			client := newTestClient(t, server.URL)
			exists, err := client.RepositoryExists(context.Background(), "snapper-snapshots")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedExists, exists)
		})
	}
}

func TestClient_CreateRepository(t *testing.T) {
	server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_snapshot/snapper-snapshots", r.URL.Path)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"s3","settings":{"bucket":"backups","region":"eu-west-1"}}`, string(body))

		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.CreateRepository(context.Background(), "snapper-snapshots", RepositorySettings{
		Bucket: "backups",
		Region: "eu-west-1",
	})
	assert.NoError(t, err)
}

func TestClient_CreateSnapshot(t *testing.T) {
	tests := []struct {
		name           string
		responseStatus int
		expectError    bool
	}{
		{name: "snapshot accepted", responseStatus: http.StatusOK},
		{name: "created status is not accepted", responseStatus: http.StatusCreated, expectError: true},
		{name: "concurrent snapshot rejected", responseStatus: http.StatusServiceUnavailable, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_snapshot/repo/snap-1", r.URL.Path)
				assert.Equal(t, http.MethodPut, r.Method)
				w.WriteHeader(tt.responseStatus)
				_, _ = w.Write([]byte(`{"accepted":true}`))
			})
			defer server.Close()

			client := newTestClient(t, server.URL)
			err := client.CreateSnapshot(context.Background(), "repo", "snap-1")
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_GetSnapshot(t *testing.T) {
	tests := []struct {
		name           string
		snapshotName   string
		responseBody   string
		responseStatus int
		expectNil      bool
		expectError    bool
	}{
		{
			name:           "successful get snapshot",
			snapshotName:   "snapshot-2024-01-01",
			responseStatus: http.StatusOK,
			responseBody: `{
				"snapshots": [
					{
						"snapshot": "snapshot-2024-01-01",
						"uuid": "uuid-1",
						"repository": "test-repo",
						"version": "8.15.0",
						"state": "SUCCESS",
						"start_time": "2024-01-01T00:00:00.000Z",
						"indices": ["index-1", "index-2"]
					}
				]
			}`,
		},
		{
			name:           "snapshot not found",
			snapshotName:   "nonexistent",
			responseStatus: http.StatusNotFound,
			responseBody:   `{"error":{"type":"snapshot_missing_exception"},"status":404}`,
			expectNil:      true,
		},
		{
			name:           "empty snapshot list",
			snapshotName:   "nonexistent",
			responseStatus: http.StatusOK,
			responseBody:   `{"snapshots": []}`,
			expectNil:      true,
		},
		{
			name:           "server error",
			snapshotName:   "snapshot-2024-01-01",
			responseStatus: http.StatusInternalServerError,
			responseBody:   `{"error":"boom"}`,
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_snapshot/test-repo/"+tt.snapshotName, r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tt.responseStatus)
				_, _ = w.Write([]byte(tt.responseBody))
			})
			defer server.Close()

			client := newTestClient(t, server.URL)
			snapshot, err := client.GetSnapshot(context.Background(), "test-repo", tt.snapshotName)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.expectNil {
				assert.Nil(t, snapshot)
				return
			}
			require.NotNil(t, snapshot)
			assert.Equal(t, tt.snapshotName, snapshot.Snapshot)
			assert.Equal(t, "8.15.0", snapshot.Version)
			assert.Equal(t, []string{"index-1", "index-2"}, snapshot.Indices)
		})
	}
}

func TestClient_SnapshotStatus(t *testing.T) {
	tests := []struct {
		name          string
		failures      []int
		expectedState string
		expectError   bool
	}{
		{name: "in progress", expectedState: "IN_PROGRESS"},
		{name: "not visible yet", failures: []int{http.StatusNotFound}, expectedState: "SUCCESS"},
		{name: "conflict then not found", failures: []int{http.StatusConflict, http.StatusNotFound}, expectedState: "SUCCESS"},
		{name: "missing until the budget runs out", failures: []int{404, 404, 404}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_snapshot/test-repo/snap-1", r.URL.Path)
				n := int(atomic.AddInt32(&calls, 1))
				if n <= len(tt.failures) {
					w.WriteHeader(tt.failures[n-1])
					_, _ = w.Write([]byte(`{"error":{"type":"snapshot_missing_exception"}}`))
					return
				}
				_, _ = fmt.Fprintf(w, `{"snapshots":[{"snapshot":"snap-1","state":%q}]}`, tt.expectedState)
			})
			defer server.Close()

			tr, delays := newTestTransport(t, ConnectionConfig{URL: server.URL}, 3, true)
			client := &Client{transport: tr}

			snapshot, err := client.SnapshotStatus(context.Background(), "test-repo", "snap-1")
			if tt.expectError {
				var serr *StatusError
				require.True(t, errors.As(err, &serr))
				assert.Equal(t, http.StatusNotFound, serr.StatusCode)
				assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedState, snapshot.State)
			assert.Len(t, *delays, len(tt.failures))
		})
	}
}

func TestClient_ListSnapshotsRetriesConflict(t *testing.T) {
	var calls int32
	server := mockESServer(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":{"type":"concurrent_snapshot_execution_exception"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"snapshots":[{"snapshot":"snap-1","state":"SUCCESS"}]}`))
	})
	defer server.Close()

	tr, delays := newTestTransport(t, ConnectionConfig{URL: server.URL}, DefaultMaxAttempts, true)
	client := &Client{transport: tr}

	snapshots, err := client.ListSnapshots(context.Background(), "test-repo")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Len(t, *delays, 1)
}

func TestClient_ListSnapshots(t *testing.T) {
	tests := []struct {
		name           string
		responseBody   string
		responseStatus int
		expectedCount  int
		expectError    bool
	}{
		{
			name:           "successful list with multiple snapshots",
			responseStatus: http.StatusOK,
			responseBody: `{
				"snapshots": [
					{"snapshot": "snap-b", "state": "SUCCESS", "start_time": "2024-01-02T00:00:00.000Z"},
					{"snapshot": "snap-a", "state": "SUCCESS", "start_time": "2024-01-01T00:00:00.000Z"}
				],
				"total": 2,
				"remaining": 0
			}`,
			expectedCount: 2,
		},
		{
			name:           "empty snapshot list",
			responseStatus: http.StatusOK,
			responseBody:   `{"snapshots": [], "total": 0, "remaining": 0}`,
			expectedCount:  0,
		},
		{
			name:           "repository missing",
			responseStatus: http.StatusNotFound,
			responseBody:   `{"error": "repository not found"}`,
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_snapshot/test-repo/_all", r.URL.Path)
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tt.responseStatus)
				_, _ = w.Write([]byte(tt.responseBody))
			})
			defer server.Close()

			client := newTestClient(t, server.URL)
			snapshots, err := client.ListSnapshots(context.Background(), "test-repo")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, snapshots, tt.expectedCount)
			if tt.expectedCount > 0 {
				// Order is preserved as reported by the server
				assert.Equal(t, "snap-b", snapshots[0].Snapshot)
			}
		})
	}
}

func TestClient_DeleteSnapshot(t *testing.T) {
	server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_snapshot/repo/old-snap", r.URL.Path)
		assert.Equal(t, http.MethodDelete, r.Method)
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	assert.NoError(t, client.DeleteSnapshot(context.Background(), "repo", "old-snap"))
}

func TestClient_CloseIndex(t *testing.T) {
	tests := []struct {
		name           string
		responseStatus int
		expectedClosed bool
		expectError    bool
	}{
		{name: "index closed", responseStatus: http.StatusOK, expectedClosed: true},
		{name: "index missing", responseStatus: http.StatusNotFound, expectedClosed: false},
		{name: "server error", responseStatus: http.StatusInternalServerError, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/logs-2024/_close", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				w.WriteHeader(tt.responseStatus)
				_, _ = w.Write([]byte(`{}`))
			})
			defer server.Close()

			client := newTestClient(t, server.URL)
			closed, err := client.CloseIndex(context.Background(), "logs-2024")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedClosed, closed)
		})
	}
}

func TestClient_RestoreSnapshot(t *testing.T) {
	tests := []struct {
		name           string
		responseStatus int
		expectError    bool
	}{
		{name: "restore accepted", responseStatus: http.StatusOK},
		{name: "restore created", responseStatus: http.StatusCreated},
		{name: "snapshot not found", responseStatus: http.StatusNotFound, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_snapshot/test-repo/snapshot-2024-01-01/_restore", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				w.WriteHeader(tt.responseStatus)
				_, _ = w.Write([]byte(`{"accepted":true}`))
			})
			defer server.Close()

			client := newTestClient(t, server.URL)
			err := client.RestoreSnapshot(context.Background(), "test-repo", "snapshot-2024-01-01")
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_ClusterHealth(t *testing.T) {
	server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_cluster/health", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"cluster_name": "prod",
			"status": "yellow",
			"number_of_nodes": 3,
			"number_of_data_nodes": 2,
			"unassigned_shards": 4,
			"delayed_unassigned_shards": 1,
			"number_of_pending_tasks": 7
		}`))
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	health, err := client.ClusterHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ClusterHealth{
		ClusterName:             "prod",
		Status:                  "yellow",
		NumberOfNodes:           3,
		NumberOfDataNodes:       2,
		UnassignedShards:        4,
		DelayedUnassignedShards: 1,
		NumberOfPendingTasks:    7,
	}, health)
}

func TestClient_ClusterSettings(t *testing.T) {
	server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_cluster/settings", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "true", r.URL.Query().Get("flat_settings"))
		assert.Equal(t, "true", r.URL.Query().Get("include_defaults"))
		_, _ = w.Write([]byte(`{"persistent":{},"transient":{"cluster.routing.allocation.enable":"none"}}`))
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	settings, err := client.ClusterSettings(context.Background(), true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"persistent":{},"transient":{"cluster.routing.allocation.enable":"none"}}`, string(settings))
}

func TestClient_PutClusterSettings(t *testing.T) {
	tests := []struct {
		name         string
		transient    bool
		settings     map[string]interface{}
		expectedBody string
	}{
		{
			name:         "persistent setting",
			settings:     map[string]interface{}{"indices.recovery.max_bytes_per_sec": "50mb"},
			expectedBody: `{"persistent":{"indices.recovery.max_bytes_per_sec":"50mb"}}`,
		},
		{
			name:         "transient setting",
			transient:    true,
			settings:     map[string]interface{}{"cluster.routing.allocation.enable": "all"},
			expectedBody: `{"transient":{"cluster.routing.allocation.enable":"all"}}`,
		},
		{
			name:         "reset setting",
			settings:     map[string]interface{}{"cluster.routing.allocation.enable": nil},
			expectedBody: `{"persistent":{"cluster.routing.allocation.enable":null}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := mockESServer(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_cluster/settings", r.URL.Path)
				assert.Equal(t, http.MethodPut, r.Method)

				var got, want map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				require.NoError(t, json.Unmarshal([]byte(tt.expectedBody), &want))
				assert.Equal(t, want, got)

				_, _ = w.Write([]byte(`{"acknowledged":true}`))
			})
			defer server.Close()

			client := newTestClient(t, server.URL)
			res, err := client.PutClusterSettings(context.Background(), tt.transient, tt.settings)
			require.NoError(t, err)
			assert.JSONEq(t, `{"acknowledged":true}`, string(res))
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(ConnectionConfig{URL: "http://localhost:9200"}, DefaultRetryPolicy(), logger.New(true, false))
	require.NoError(t, err)
	assert.NotNil(t, client)
}
