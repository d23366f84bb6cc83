// Package unix implements the transport connectors for Unix domain sockets.
//
// The server connector creates the parent directory of the socket path if it
// is missing, removes a stale socket file left by a previous process, listens
// and optionally applies the configured permission bits. A path that exists but
// is not a socket is never deleted.
//
// The client connector dials with a timeout and reports "socket not found",
// "permission denied" and "connection refused" as common.ErrConnection.
package unix
