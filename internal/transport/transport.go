// Package transport owns the daemon's unix socket: dialing it from a
// client, and preparing, binding, and removing it on the daemon side.
package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	skerrors "shellkeep/internal/errors"
)

// Dialer opens connections to a daemon socket.
type Dialer interface {
	Dial(ctx context.Context, path string) (net.Conn, error)
}

// UnixDialer dials unix stream sockets.
type UnixDialer struct {
	Timeout time.Duration
}

// Dial connects to the socket at path.
func (d *UnixDialer) Dial(ctx context.Context, path string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, skerrors.Wrap("dial", path, err)
	}
	return conn, nil
}

// Listen binds a unix socket at path.  The parent directory is created
// with mode 0700 if missing.  A socket file left behind by a dead
// daemon is removed first; a socket that still accepts connections is
// an error.
func Listen(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, skerrors.Wrap("mkdir", filepath.Dir(path), err)
	}
	if err := removeStale(path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, skerrors.Wrap("listen", path, err)
	}
	// The daemon calls Remove itself once its sessions wind down.
	if ul, ok := ln.(*net.UnixListener); ok {
		ul.SetUnlinkOnClose(false)
	}
	return ln, nil
}

// Remove deletes the socket file.  A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return skerrors.Wrap("remove", path, err)
	}
	return nil
}

func removeStale(path string) error {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return skerrors.Wrap("stat", path, err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}

	conn, err := net.DialTimeout("unix", path, 100*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("a daemon is already listening on %s", path)
	}
	return Remove(path)
}
