package unix

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/sockrpc/rpc/common"
	"github.com/ValentinKolb/sockrpc/rpc/transport"
)

const (
	// maxSocketPathLen is the size of sun_path minus the terminating zero
	maxSocketPathLen = 107
	// socketDirMode is used for parent directories created by Listen
	socketDirMode = 0o751
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// NewServerConnector creates a connector that listens on a Unix socket path
func NewServerConnector() transport.IServerConnector {
	return &serverConnector{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	socketPath := config.Endpoint
	if err := checkPath(socketPath); err != nil {
		return nil, err
	}

	// Create the parent directory if it does not exist yet
	if dir := filepath.Dir(socketPath); dir != "" {
		if err := os.MkdirAll(dir, socketDirMode); err != nil {
			return nil, fmt.Errorf("failed to create socket directory %s: %v", dir, err)
		}
	}

	// Remove a stale socket left by a previous run
	if err := removeSocket(socketPath); err != nil {
		return nil, err
	}

	// Create Unix socket listener
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %v", err)
	}

	if config.SocketMode != 0 {
		if err := os.Chmod(socketPath, config.SocketMode.Perm()); err != nil {
			listener.Close()
			return nil, fmt.Errorf("failed to set socket permissions: %v", err)
		}
	}

	transport.Logger.Debugf("listening on unix socket %s", socketPath)
	return listener, nil
}

func (c *serverConnector) Cleanup(config common.ServerConfig) error {
	return removeSocket(config.Endpoint)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// removeSocket deletes the socket file at path. A missing file is fine, any
// other file type is left alone and reported, so a misconfigured path never
// deletes user data.
func removeSocket(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to inspect socket path %s: %v", path, err)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("refusing to remove %s: not a socket (%s)", path, info.Mode().Type())
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove existing socket: %v", err)
	}
	return nil
}

func checkPath(path string) error {
	if path == "" {
		return fmt.Errorf("no socket path provided")
	}
	if len(path) > maxSocketPathLen {
		return fmt.Errorf("socket path %s is too long (%d > %d bytes)", path, len(path), maxSocketPathLen)
	}
	return nil
}
