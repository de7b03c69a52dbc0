package portforward

import (
	"context"
	"fmt"

	"github.com/stackvista/es-snapper/internal/k8s"
	"github.com/stackvista/es-snapper/internal/logger"
)

// Conn is an established port-forward connection
type Conn struct {
	StopChan  chan struct{}
	LocalPort int
}

// URL returns the local address Elasticsearch is reachable on
func (c *Conn) URL() string {
	return fmt.Sprintf("http://localhost:%d", c.LocalPort)
}

// Close stops the port-forward
func (c *Conn) Close() {
	close(c.StopChan)
}

// SetupPortForward establishes a port-forward to a Kubernetes service and waits for it to be ready.
// The caller is responsible for calling Close when done.
func SetupPortForward(
	ctx context.Context,
	k8sClient k8s.Interface,
	namespace string,
	serviceName string,
	localPort int,
	remotePort int,
	log *logger.Logger,
) (*Conn, error) {
	log.Infof("Setting up port-forward to %s:%d in namespace %s...", serviceName, remotePort, namespace)

	fwd, err := k8sClient.PortForwardService(ctx, namespace, serviceName, localPort, remotePort)
	if err != nil {
		return nil, fmt.Errorf("failed to setup port-forward: %w", err)
	}

	select {
	case <-fwd.Ready:
	case err := <-fwd.Done:
		if err == nil {
			err = fmt.Errorf("forwarder exited before it was ready")
		}
		return nil, fmt.Errorf("failed to setup port-forward: %w", err)
	case <-ctx.Done():
		close(fwd.Stop)
		return nil, fmt.Errorf("port-forward aborted: %w", ctx.Err())
	}

	log.Successf("Port-forward established successfully")

	return &Conn{
		StopChan:  fwd.Stop,
		LocalPort: localPort,
	}, nil
}
