package transport

import (
	"context"
	"net"

	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc/transport")

// --------------------------------------------------------------------------
// Server Connector
// --------------------------------------------------------------------------

// IServerConnector prepares the socket of a server and hands out its listener
type IServerConnector interface {
	// GetName returns the name of the transport type (e.g. "unix")
	GetName() string
	// Listen creates a listener for config.Endpoint
	Listen(config common.ServerConfig) (net.Listener, error)
	// Cleanup removes whatever Listen left on the system (e.g. the socket file).
	// It is called once the listener is closed.
	Cleanup(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Connector
// --------------------------------------------------------------------------

// IClientConnector establishes single client connections
type IClientConnector interface {
	// GetName returns the name of the transport type (e.g. "unix")
	GetName() string
	// Connect opens one connection to config.Endpoint. Failures are wrapped in
	// common.ErrConnection.
	Connect(ctx context.Context, config common.ClientConfig) (net.Conn, error)
}
