// Package k8s provides the Kubernetes client used to read configuration from
// ConfigMaps and Secrets and to port-forward to an in-cluster Elasticsearch service.
package k8s

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/portforward"
	"k8s.io/client-go/transport/spdy"
)

// Client wraps the Kubernetes clientset
type Client struct {
	clientset  kubernetes.Interface
	restConfig *rest.Config
	debug      bool
}

// Clientset returns the underlying Kubernetes clientset
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}

// NewClient creates a new Kubernetes client
func NewClient(kubeconfigPath string, debug bool) (*Client, error) {
	if kubeconfigPath == "" {
		// Use default kubeconfig location
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		kubeconfigPath = filepath.Join(home, ".kube", "config")
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{
		clientset:  clientset,
		restConfig: config,
		debug:      debug,
	}, nil
}

// NewTestClient wraps an existing clientset, typically a fake one.
// Port-forwarding is not available on such a client.
func NewTestClient(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

// RunningPodForService returns the first running pod selected by a service
func (c *Client) RunningPodForService(ctx context.Context, namespace, serviceName string) (*corev1.Pod, error) {
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, serviceName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: metav1.FormatLabelSelector(&metav1.LabelSelector{
			MatchLabels: svc.Spec.Selector,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	if len(podList.Items) == 0 {
		return nil, fmt.Errorf("no pods found for service %s", serviceName)
	}

	for i := range podList.Items {
		if podList.Items[i].Status.Phase == corev1.PodRunning {
			return &podList.Items[i], nil
		}
	}
	return nil, fmt.Errorf("no running pods found for service %s", serviceName)
}

// PortForwardService creates a port-forward to a running pod behind a Kubernetes service
func (c *Client) PortForwardService(ctx context.Context, namespace, serviceName string, localPort, remotePort int) (*Forward, error) {
	pod, err := c.RunningPodForService(ctx, namespace, serviceName)
	if err != nil {
		return nil, err
	}
	return c.PortForwardPod(namespace, pod.Name, localPort, remotePort)
}

// Forward is a running port-forward
type Forward struct {
	// Stop closes the port-forward; it must be called exactly once
	Stop chan struct{}
	// Ready is closed once the local port accepts connections
	Ready chan struct{}
	// Done receives the result of the forwarder when it exits
	Done chan error
}

// PortForwardPod creates a port-forward to a specific pod
func (c *Client) PortForwardPod(namespace, podName string, localPort, remotePort int) (*Forward, error) {
	if c.restConfig == nil {
		return nil, fmt.Errorf("port-forward requires a client built from a kubeconfig")
	}

	path := fmt.Sprintf("/api/v1/namespaces/%s/pods/%s/portforward", namespace, podName)
	hostURL, err := url.Parse(c.restConfig.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to parse host: %w", err)
	}
	hostURL.Path = path

	transport, upgrader, err := spdy.RoundTripperFor(c.restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create round tripper: %w", err)
	}

	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, hostURL)

	fwd := &Forward{
		Stop:  make(chan struct{}, 1),
		Ready: make(chan struct{}),
		Done:  make(chan error, 1),
	}

	ports := []string{fmt.Sprintf("%d:%d", localPort, remotePort)}

	// Use discard writers if debug is disabled to suppress port-forward output.
	// Stdout is reserved for command output, so both go to stderr.
	outWriter := io.Discard
	errWriter := io.Discard
	if c.debug {
		outWriter = os.Stderr
		errWriter = os.Stderr
	}

	fw, err := portforward.New(dialer, ports, fwd.Stop, fwd.Ready, outWriter, errWriter)
	if err != nil {
		return nil, fmt.Errorf("failed to create port forwarder: %w", err)
	}

	go func() {
		fwd.Done <- fw.ForwardPorts()
	}()

	return fwd, nil
}
