// Package common provides the types shared by the wire, server and client
// packages of the RPC system.
//
// The package focuses on:
//   - The error taxonomy of the protocol (sentinel errors, ErrorKind, RemoteError)
//   - Configuration structures for servers and dispatchers
//   - Custom logging implementation integrated with Dragonboat's logger facade
//
// Key Components:
//
//   - ErrorKind / RemoteError: A protocol level failure (unknown method, malformed
//     arguments, failed handler, ...) travels to the caller as an err-response
//     frame. On the client it surfaces as a *RemoteError that matches the
//     corresponding sentinel with errors.Is.
//
//   - ServerConfig: Socket path, payload limits, per-connection concurrency,
//     timeouts, rate limiting and log level of a server.
//
//   - ClientConfig: Socket path, payload limit and timeouts of a Dispatcher.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's
//     logging facade and prints `LEVEL | package | message` lines.
package common
