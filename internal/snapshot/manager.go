// Package snapshot orchestrates the snapshot lifecycle against a single
// snapshot repository: making sure the repository exists, creating snapshots
// and waiting for them to finish, restoring them and applying retention.
package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"github.com/stackvista/es-snapper/internal/logger"
)

const (
	// DefaultRepository is the repository name used when none is configured
	DefaultRepository = "snapper-snapshots"
	// DefaultKeep is the number of snapshots retained by cleanup when not configured
	DefaultKeep = 5
	// Latest selects the most recent snapshot on restore
	Latest = "latest"

	// defaultSnapshotPollInterval is the time between two snapshot status reads
	defaultSnapshotPollInterval = 2 * time.Second
	// defaultHealthPollInterval is the time between two cluster health reads
	defaultHealthPollInterval = 5 * time.Second
)

var (
	// ErrRepositoryConfig is returned when the repository has to be created but bucket or region are missing
	ErrRepositoryConfig = errors.New("snapshot repository configuration incomplete")
	// ErrNoSnapshotFound is returned when a restore cannot resolve a snapshot
	ErrNoSnapshotFound = errors.New("no snapshot found")
	// ErrInvalidKeep is returned for a negative retention count
	ErrInvalidKeep = errors.New("number of snapshots to keep must not be negative")
	// ErrInvalidWaitFor is returned for an unknown cluster health colour
	ErrInvalidWaitFor = errors.New("invalid cluster health status to wait for")
)

// UnexpectedStateError is returned when a snapshot ends up in a state other
// than IN_PROGRESS or SUCCESS. Elasticsearch offers no recovery for it.
type UnexpectedStateError struct {
	Snapshot string
	State    string
}

func (e *UnexpectedStateError) Error() string {
	return fmt.Sprintf("unexpected state %s of snapshot %s", e.State, e.Snapshot)
}

// RepositoryConfig identifies the snapshot repository and the S3 bucket backing it.
// Bucket and Region are only needed when the repository has to be created.
type RepositoryConfig struct {
	Name   string
	Bucket string
	Region string
}

// Manager runs snapshot operations against one repository
type Manager struct {
	es   elasticsearch.Interface
	repo RepositoryConfig
	log  *logger.Logger

	snapshotPollInterval time.Duration
	healthPollInterval   time.Duration
	newName              func() string
}

// Option configures a Manager
type Option func(*Manager)

// WithPollIntervals overrides the snapshot status and cluster health poll intervals
func WithPollIntervals(snapshot, health time.Duration) Option {
	return func(m *Manager) {
		m.snapshotPollInterval = snapshot
		m.healthPollInterval = health
	}
}

// WithNamePrefix prepends prefix to generated snapshot names
func WithNamePrefix(prefix string) Option {
	return func(m *Manager) {
		m.newName = func() string {
			return prefix + uuid.NewString()
		}
	}
}

// WithNameGenerator replaces the snapshot name generator
func WithNameGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newName = fn
	}
}

// NewManager creates a Manager for the given repository
func NewManager(es elasticsearch.Interface, repo RepositoryConfig, log *logger.Logger, opts ...Option) *Manager {
	if repo.Name == "" {
		repo.Name = DefaultRepository
	}

	m := &Manager{
		es:                   es,
		repo:                 repo,
		log:                  log,
		snapshotPollInterval: defaultSnapshotPollInterval,
		healthPollInterval:   defaultHealthPollInterval,
		newName:              uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Repository returns the name of the managed repository
func (m *Manager) Repository() string {
	return m.repo.Name
}
