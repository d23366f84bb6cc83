package unix

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/transport"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// NewClientConnector creates a connector that dials Unix socket paths
func NewClientConnector() transport.IClientConnector {
	return &clientConnector{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error) {
	if err := checkPath(config.Endpoint); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConnection, err)
	}

	if timeout := config.DialTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", config.Endpoint)
	if err != nil {
		return nil, classifyDialError(config.Endpoint, err)
	}
	return conn, nil
}

// classifyDialError wraps a dial failure in common.ErrConnection and names the cause
func classifyDialError(endpoint string, err error) error {
	var reason string
	switch {
	case errors.Is(err, syscall.ENOENT):
		reason = "socket not found"
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		reason = "permission denied"
	case errors.Is(err, syscall.ECONNREFUSED):
		reason = "connection refused"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		reason = "dial aborted"
	default:
		reason = "dial failed"
	}
	return fmt.Errorf("%w: %s: %s: %v", common.ErrConnection, endpoint, reason, err)
}
