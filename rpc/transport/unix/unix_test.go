package unix

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/sockrpc/rpc/common"
)

func tempDir(t *testing.T) string {
	t.Helper()
	// t.TempDir() paths can exceed the socket path limit
	dir, err := os.MkdirTemp("", "sockrpc")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// staleSocket leaves a socket file without a listener behind
func staleSocket(t *testing.T, path string) {
	t.Helper()
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	l.Close()
}

func TestListenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(tempDir(t), "a", "b", "rpc.sock")

	l, err := NewServerConnector().Listen(common.ServerConfig{Endpoint: path, SocketMode: 0o600})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Socket file missing: %v", err)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		t.Errorf("Expected a socket, got %s", info.Mode())
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Socket permissions = %o, want 600", info.Mode().Perm())
	}
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(tempDir(t), "rpc.sock")
	staleSocket(t, path)

	connector := NewServerConnector()
	l, err := connector.Listen(common.ServerConfig{Endpoint: path})
	if err != nil {
		t.Fatalf("Listen over a stale socket failed: %v", err)
	}
	l.Close()

	if err := connector.Cleanup(common.ServerConfig{Endpoint: path}); err != nil {
		t.Errorf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Socket should be gone after Cleanup, stat: %v", err)
	}
}

func TestListenRefusesRegularFile(t *testing.T) {
	path := filepath.Join(tempDir(t), "data.txt")
	if err := os.WriteFile(path, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := NewServerConnector().Listen(common.ServerConfig{Endpoint: path}); err == nil {
		t.Fatalf("Listen should refuse to replace a regular file")
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "keep me" {
		t.Errorf("Regular file was modified: %q, %v", data, err)
	}
}

func TestListenPathTooLong(t *testing.T) {
	path := "/tmp/" + strings.Repeat("x", maxSocketPathLen) + ".sock"
	if _, err := NewServerConnector().Listen(common.ServerConfig{Endpoint: path}); err == nil {
		t.Errorf("Listen should reject a path longer than %d bytes", maxSocketPathLen)
	}
}

func TestConnect(t *testing.T) {
	dir := tempDir(t)
	path := filepath.Join(dir, "rpc.sock")

	l, err := NewServerConnector().Listen(common.ServerConfig{Endpoint: path})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	go func() {
		conn, err := l.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	conn, err := NewClientConnector().Connect(context.Background(), common.ClientConfig{Endpoint: path}.WithDefaults())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	conn.Close()
}

func TestConnectErrors(t *testing.T) {
	dir := tempDir(t)
	refused := filepath.Join(dir, "stale.sock")
	staleSocket(t, refused)

	tests := []struct {
		name   string
		path   string
		reason string
	}{
		{"socket not found", filepath.Join(dir, "missing.sock"), "socket not found"},
		{"connection refused", refused, "connection refused"},
		{"empty path", "", "no socket path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClientConnector().Connect(context.Background(), common.ClientConfig{Endpoint: tt.path}.WithDefaults())
			if !errors.Is(err, common.ErrConnection) {
				t.Fatalf("Expected ErrConnection, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("Error %q does not mention %q", err, tt.reason)
			}
		})
	}
}

func TestConnectPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses socket permissions")
	}

	path := filepath.Join(tempDir(t), "rpc.sock")
	l, err := NewServerConnector().Listen(common.ServerConfig{Endpoint: path, SocketMode: 0o400})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()

	_, err = NewClientConnector().Connect(context.Background(), common.ClientConfig{Endpoint: path}.WithDefaults())
	if !errors.Is(err, common.ErrConnection) || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Expected permission denied ErrConnection, got %v", err)
	}
}
