// Package config resolves the tool configuration from a YAML file, Kubernetes
// ConfigMaps and Secrets, the environment and command line flags. Each source
// overrides the one before it; the environment only fills values left unset.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"github.com/stackvista/es-snapper/internal/logger"
	"gopkg.in/yaml.v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Environment variables consulted for connection settings
const (
	EnvURL      = "CLUSTER_URL"
	EnvUser     = "HTTP_USER"
	EnvPassword = "HTTP_PASSWORD"
)

// Defaults applied after all sources were merged
const (
	DefaultRepository = "snapper-snapshots"
	DefaultKeep       = 5
)

// configKey is the ConfigMap and Secret data key holding the YAML document
const configKey = "config"

// ErrNoEndpoint is returned when neither a URL nor a Kubernetes service is configured
var ErrNoEndpoint = errors.New("no Elasticsearch endpoint configured: set --url, " + EnvURL + " or elasticsearch.service")

// Config represents the merged configuration of all sources
type Config struct {
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Repository    RepositoryConfig    `yaml:"repository"`
	Retention     RetentionConfig     `yaml:"retention"`
}

// ElasticsearchConfig holds the cluster connection settings
type ElasticsearchConfig struct {
	URL        string        `yaml:"url" validate:"omitempty,url"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"` // From secret
	CACertFile string        `yaml:"caCertFile"`
	Insecure   bool          `yaml:"insecure"`
	Service    ServiceConfig `yaml:"service"`
}

// ServiceConfig identifies an in-cluster Elasticsearch service to port-forward to
// when no URL is configured
type ServiceConfig struct {
	Name                 string `yaml:"name"`
	Port                 int    `yaml:"port" validate:"required_with=Name,min=0,max=65535"`
	LocalPortForwardPort int    `yaml:"localPortForwardPort" validate:"min=0,max=65535"`
}

// RepositoryConfig holds snapshot repository configuration
type RepositoryConfig struct {
	Name   string `yaml:"name"`
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	// Prefix is prepended to generated snapshot names
	Prefix string `yaml:"prefix"`
}

// RetentionConfig holds snapshot retention configuration
type RetentionConfig struct {
	// Keep is a pointer so an explicit 0 is distinguishable from unset
	Keep *int `yaml:"keep" validate:"omitempty,min=0"`
}

// Sources lists where configuration is read from. Empty fields are skipped.
type Sources struct {
	File          string
	Clientset     kubernetes.Interface
	Namespace     string
	ConfigMapName string
	SecretName    string
	LookupEnv     func(string) (string, bool)
	Overrides     *Config
}

// Resolve reads and merges all configured sources, applies defaults and
// validates the result
func Resolve(ctx context.Context, src Sources, log *logger.Logger) (*Config, error) {
	config := &Config{}

	if src.File != "" {
		fileConfig, err := LoadFile(src.File)
		if err != nil {
			return nil, err
		}
		config = fileConfig
	}

	if src.ConfigMapName != "" || src.SecretName != "" {
		if src.Clientset == nil {
			return nil, fmt.Errorf("a Kubernetes client is required to read ConfigMap or Secret")
		}
		clusterConfig, err := LoadFromCluster(ctx, src.Clientset, src.Namespace, src.ConfigMapName, src.SecretName, log)
		if err != nil {
			return nil, err
		}
		if err := config.Merge(clusterConfig); err != nil {
			return nil, err
		}
	}

	if src.LookupEnv != nil {
		config.ApplyEnv(src.LookupEnv)
	}

	if src.Overrides != nil {
		if err := config.Merge(src.Overrides); err != nil {
			return nil, err
		}
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFile reads configuration from a YAML file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return config, nil
}

// LoadFromCluster loads and merges configuration from a ConfigMap and a Secret.
// The Secret overrides the ConfigMap and is optional.
func LoadFromCluster(ctx context.Context, clientset kubernetes.Interface, namespace, configMapName, secretName string, log *logger.Logger) (*Config, error) {
	config := &Config{}

	if configMapName != "" {
		cm, err := clientset.CoreV1().ConfigMaps(namespace).Get(ctx, configMapName, metav1.GetOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to get ConfigMap '%s': %w", configMapName, err)
		}

		configData, ok := cm.Data[configKey]
		if !ok {
			return nil, fmt.Errorf("ConfigMap '%s' does not contain '%s' key", configMapName, configKey)
		}
		if err := yaml.Unmarshal([]byte(configData), config); err != nil {
			return nil, fmt.Errorf("failed to parse ConfigMap config: %w", err)
		}
	}

	if secretName != "" {
		secret, err := clientset.CoreV1().Secrets(namespace).Get(ctx, secretName, metav1.GetOptions{})
		if err != nil {
			log.Warningf("Secret '%s' not found, using ConfigMap only", secretName)
			return config, nil
		}

		if configData, ok := secret.Data[configKey]; ok {
			secretConfig := &Config{}
			if err := yaml.Unmarshal(configData, secretConfig); err != nil {
				return nil, fmt.Errorf("failed to parse Secret config: %w", err)
			}
			if err := config.Merge(secretConfig); err != nil {
				return nil, err
			}
		}
	}

	return config, nil
}

// Merge overrides c with the non-zero values of other
func (c *Config) Merge(other *Config) error {
	if err := mergo.Merge(c, other, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	// mergo skips pointers to zero values, an explicit keep of 0 still wins
	if other.Retention.Keep != nil {
		keep := *other.Retention.Keep
		c.Retention.Keep = &keep
	}
	return nil
}

// ApplyEnv fills connection settings that are still unset from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	fill(&c.Elasticsearch.URL, EnvURL)
	fill(&c.Elasticsearch.Username, EnvUser)
	fill(&c.Elasticsearch.Password, EnvPassword)
}

// ApplyDefaults sets defaults for values no source provided
func (c *Config) ApplyDefaults() {
	if c.Repository.Name == "" {
		c.Repository.Name = DefaultRepository
	}
	if c.Retention.Keep == nil {
		keep := DefaultKeep
		c.Retention.Keep = &keep
	}
	if c.Elasticsearch.Service.Name != "" && c.Elasticsearch.Service.LocalPortForwardPort == 0 {
		c.Elasticsearch.Service.LocalPortForwardPort = c.Elasticsearch.Service.Port
	}
}

// Validate checks the merged configuration
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.Elasticsearch.URL == "" && c.Elasticsearch.Service.Name == "" {
		return ErrNoEndpoint
	}
	return nil
}

// Keep returns the configured retention count
func (c *Config) Keep() int {
	if c.Retention.Keep == nil {
		return DefaultKeep
	}
	return *c.Retention.Keep
}

// NeedsPortForward reports whether the cluster is reached through a Kubernetes service
func (c *Config) NeedsPortForward() bool {
	return c.Elasticsearch.URL == "" && c.Elasticsearch.Service.Name != ""
}

// Connection builds the Elasticsearch connection settings, reading the CA
// certificate file when one is configured
func (c *Config) Connection() (elasticsearch.ConnectionConfig, error) {
	conn := elasticsearch.ConnectionConfig{
		URL:      c.Elasticsearch.URL,
		Username: c.Elasticsearch.Username,
		Password: c.Elasticsearch.Password,
		Insecure: c.Elasticsearch.Insecure,
	}
	if c.Elasticsearch.CACertFile != "" {
		cert, err := os.ReadFile(c.Elasticsearch.CACertFile)
		if err != nil {
			return conn, fmt.Errorf("failed to read CA certificate '%s': %w", c.Elasticsearch.CACertFile, err)
		}
		conn.CACert = cert
	}
	return conn, nil
}

// Options returns the resolved options for debug output
func (c *Config) Options() map[string]string {
	return map[string]string{
		"url":        c.Elasticsearch.URL,
		"user":       c.Elasticsearch.Username,
		"password":   c.Elasticsearch.Password,
		"ca-cert":    c.Elasticsearch.CACertFile,
		"insecure":   fmt.Sprintf("%t", c.Elasticsearch.Insecure),
		"service":    c.Elasticsearch.Service.Name,
		"repository": c.Repository.Name,
		"bucket":     c.Repository.Bucket,
		"region":     c.Repository.Region,
		"prefix":     c.Repository.Prefix,
		"keep":       fmt.Sprintf("%d", c.Keep()),
	}
}

// Flag names that map onto configuration values
const (
	FlagURL        = "url"
	FlagUser       = "user"
	FlagPassword   = "password"
	FlagCACert     = "ca-cert"
	FlagInsecure   = "insecure"
	FlagRepository = "repo"
	FlagBucket     = "bucket"
	FlagRegion     = "region"
	FlagPrefix     = "prefix"
	FlagKeep       = "keep"
)

// Context carries the CLI settings shared by all commands
type Context struct {
	Config *CLIConfig
}

// CLIConfig holds the command line flags
type CLIConfig struct {
	ConfigFile    string
	Namespace     string
	Kubeconfig    string
	ConfigMapName string
	SecretName    string
	Debug         bool
	Quiet         bool
	OutputFormat  string // table, json
	Timeout       time.Duration
	RetryWrites   bool

	// Configuration flags, applied only when set explicitly
	URL        string
	Username   string
	Password   string
	CACertFile string
	Insecure   bool
	Repository string
	Bucket     string
	Region     string
	Prefix     string
	Keep       int

	// Changed reports whether a flag was set on the command line
	Changed func(name string) bool
}

// NewContext creates a new Context
func NewContext() *Context {
	return &Context{
		Config: &CLIConfig{RetryWrites: true},
	}
}

// Overrides returns the configuration given by explicitly set flags
func (c *CLIConfig) Overrides() *Config {
	changed := c.Changed
	if changed == nil {
		changed = func(string) bool { return false }
	}

	overrides := &Config{}
	set := func(name string, dst *string, value string) {
		if changed(name) {
			*dst = value
		}
	}
	set(FlagURL, &overrides.Elasticsearch.URL, c.URL)
	set(FlagUser, &overrides.Elasticsearch.Username, c.Username)
	set(FlagPassword, &overrides.Elasticsearch.Password, c.Password)
	set(FlagCACert, &overrides.Elasticsearch.CACertFile, c.CACertFile)
	set(FlagRepository, &overrides.Repository.Name, c.Repository)
	set(FlagBucket, &overrides.Repository.Bucket, c.Bucket)
	set(FlagRegion, &overrides.Repository.Region, c.Region)
	set(FlagPrefix, &overrides.Repository.Prefix, c.Prefix)

	if changed(FlagInsecure) {
		overrides.Elasticsearch.Insecure = c.Insecure
	}
	if changed(FlagKeep) {
		keep := c.Keep
		overrides.Retention.Keep = &keep
	}
	return overrides
}
