// Package cluster provides cluster level administration: health status,
// cluster settings and shard allocation.
package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/tidwall/gjson"
)

// AllocationSetting is the cluster setting toggled by rebalancing
const AllocationSetting = "cluster.routing.allocation.enable"

// Shard allocation modes
const (
	AllocationAll          = "all"
	AllocationPrimaries    = "primaries"
	AllocationNewPrimaries = "new_primaries"
	AllocationNone         = "none"
)

// resetValue resets a setting to its default when passed to Set
const resetValue = "null"

// Scopes a setting value can be found in, in order of precedence
var scopes = []string{"transient", "persistent", "defaults"}

var (
	// ErrSettingNotFound is returned when a setting is not present in any scope
	ErrSettingNotFound = errors.New("cluster setting not found")
	// ErrInvalidAllocation is returned for an unknown shard allocation mode
	ErrInvalidAllocation = errors.New("invalid shard allocation mode")
)

// Setting is a single cluster setting and the scope it was read from
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Scope string `json:"scope"`
}

// Admin runs cluster administration operations
type Admin struct {
	es  elasticsearch.Interface
	log *logger.Logger
}

// NewAdmin creates a new Admin
func NewAdmin(es elasticsearch.Interface, log *logger.Logger) *Admin {
	return &Admin{es: es, log: log}
}

// Status returns the cluster health summary
func (a *Admin) Status(ctx context.Context) (*elasticsearch.ClusterHealth, error) {
	return a.es.ClusterHealth(ctx)
}

// Settings returns the persistent and transient cluster settings
func (a *Admin) Settings(ctx context.Context, includeDefaults bool) (json.RawMessage, error) {
	return a.es.ClusterSettings(ctx, includeDefaults)
}

// Setting looks up a single flat setting key. Transient values win over
// persistent ones, which win over the defaults.
func (a *Admin) Setting(ctx context.Context, key string) (*Setting, error) {
	settings, err := a.es.ClusterSettings(ctx, true)
	if err != nil {
		return nil, err
	}

	path := escapeKey(key)
	for _, scope := range scopes {
		result := gjson.GetBytes(settings, scope+"."+path)
		if result.Exists() {
			a.log.Debugf("Setting %s found in %s settings", key, scope)
			return &Setting{Key: key, Value: result.String(), Scope: scope}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, key)
}

// Set writes a single setting. The value "null" resets it to its default.
func (a *Admin) Set(ctx context.Context, key, value string, transient bool) (json.RawMessage, error) {
	if key == "" {
		return nil, fmt.Errorf("setting key is required")
	}

	var v interface{} = value
	if value == resetValue {
		v = nil
		a.log.Debugf("Resetting %s to its default", key)
	}
	return a.es.PutClusterSettings(ctx, transient, map[string]interface{}{key: v})
}

// ToggleRebalancing enables or disables shard allocation for all shards
func (a *Admin) ToggleRebalancing(ctx context.Context, enabled, transient bool) (json.RawMessage, error) {
	mode := AllocationNone
	if enabled {
		mode = AllocationAll
	}
	return a.SetAllocation(ctx, mode, transient)
}

// SetAllocation sets the shard allocation mode of the cluster
func (a *Admin) SetAllocation(ctx context.Context, mode string, transient bool) (json.RawMessage, error) {
	mode, err := ParseAllocation(mode)
	if err != nil {
		return nil, err
	}
	a.log.Infof("Setting %s to %s", AllocationSetting, mode)
	return a.es.PutClusterSettings(ctx, transient, map[string]interface{}{AllocationSetting: mode})
}

// ParseAllocation validates an allocation mode. on and off are accepted as
// aliases for all and none.
func ParseAllocation(value string) (string, error) {
	switch v := strings.ToLower(value); v {
	case "on":
		return AllocationAll, nil
	case "off":
		return AllocationNone, nil
	default:
		if slices.Contains([]string{AllocationAll, AllocationPrimaries, AllocationNewPrimaries, AllocationNone}, v) {
			return v, nil
		}
		return "", fmt.Errorf("%w: %q (must be on, off, all, primaries, new_primaries or none)", ErrInvalidAllocation, value)
	}
}

// escapeKey turns a flat setting key into a gjson path matching it literally
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
