// Package connect resolves the configuration of a command and opens the
// connection to Elasticsearch, port-forwarding to an in-cluster service when
// no URL is configured.
package connect

import (
	"context"
	"fmt"
	"os"

	"github.com/stackvista/es-snapper/cmd/portforward"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"github.com/stackvista/es-snapper/internal/k8s"
	"github.com/stackvista/es-snapper/internal/logger"
)

// defaultNamespace is used for Kubernetes lookups when no namespace is given
const defaultNamespace = "default"

// Session holds everything a command needs to talk to Elasticsearch
type Session struct {
	Config *config.Config
	Client *elasticsearch.Client
	Log    *logger.Logger

	pf *portforward.Conn
}

// Close releases the port-forward, if any
func (s *Session) Close() {
	if s.pf != nil {
		s.pf.Close()
		s.pf = nil
	}
}

// Context derives the context of a command run, applying the configured timeout
func Context(parent context.Context, cliCtx *config.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if cliCtx.Config.Timeout > 0 {
		return context.WithTimeout(parent, cliCtx.Config.Timeout)
	}
	return context.WithCancel(parent)
}

// Open resolves the configuration and creates the Elasticsearch client.
// The caller must Close the session.
func Open(ctx context.Context, cliCtx *config.Context) (*Session, error) {
	cli := cliCtx.Config
	log := logger.New(cli.Quiet, cli.Debug)

	namespace := cli.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	var k8sClient *k8s.Client
	kube := func() (*k8s.Client, error) {
		if k8sClient != nil {
			return k8sClient, nil
		}
		c, err := k8s.NewClient(cli.Kubeconfig, cli.Debug)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
		}
		k8sClient = c
		return c, nil
	}

	sources := config.Sources{
		File:          cli.ConfigFile,
		Namespace:     namespace,
		ConfigMapName: cli.ConfigMapName,
		SecretName:    cli.SecretName,
		LookupEnv:     os.LookupEnv,
		Overrides:     cli.Overrides(),
	}
	if cli.ConfigMapName != "" || cli.SecretName != "" {
		c, err := kube()
		if err != nil {
			return nil, err
		}
		sources.Clientset = c.Clientset()
	}

	cfg, err := config.Resolve(ctx, sources, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	session := &Session{Config: cfg, Log: log}

	if cfg.NeedsPortForward() {
		c, err := kube()
		if err != nil {
			return nil, err
		}
		svc := cfg.Elasticsearch.Service
		pf, err := portforward.SetupPortForward(ctx, c, namespace, svc.Name, svc.LocalPortForwardPort, svc.Port, log)
		if err != nil {
			return nil, err
		}
		session.pf = pf
		cfg.Elasticsearch.URL = pf.URL()
	}

	log.Options(cfg.Options(), "password")

	conn, err := cfg.Connection()
	if err != nil {
		session.Close()
		return nil, err
	}

	retry := elasticsearch.DefaultRetryPolicy()
	retry.RetryWrites = cli.RetryWrites

	client, err := elasticsearch.NewClient(conn, retry, log)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	session.Client = client

	return session, nil
}
