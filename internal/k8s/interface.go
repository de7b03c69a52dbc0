package k8s

import (
	"context"

	"k8s.io/client-go/kubernetes"
)

// Interface defines the contract for Kubernetes client operations
// This interface allows for easy mocking in tests
type Interface interface {
	// Clientset returns the underlying Kubernetes clientset, used to read
	// ConfigMaps and Secrets
	Clientset() kubernetes.Interface

	// Port forwarding operations
	PortForwardService(ctx context.Context, namespace, serviceName string, localPort, remotePort int) (*Forward, error)
}

// Ensure *Client implements Interface
var _ Interface = (*Client)(nil)
