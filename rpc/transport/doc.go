// Package transport defines how the RPC server and client obtain their byte
// streams. The RPC core only needs a net.Listener on the server side and a
// net.Conn on the client side; connectors hide everything that is specific to
// the socket type.
//
// Key Components:
//
//   - IServerConnector: prepares the endpoint, creates the listener and cleans
//     up after shutdown.
//
//   - IClientConnector: dials one connection and classifies connect failures as
//     common.ErrConnection.
//
// The unix subpackage provides the Unix domain socket implementations.
package transport
