package transport

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skerrors "shellkeep/internal/errors"
)

func sockPath(t *testing.T) string {
	// Keep the path short; sun_path is limited to ~108 bytes.
	dir, err := os.MkdirTemp("", "sk")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "run", "d.sock")
}

func TestListen_CreatesPrivateParent(t *testing.T) {
	path := sockPath(t)

	ln, err := Listen(path)
	require.NoError(t, err)
	defer ln.Close()

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestUnixDialer_Connect(t *testing.T) {
	path := sockPath(t)
	ln, err := Listen(path)
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from daemon\n")) //nolint:errcheck
	}()

	d := &UnixDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), path)
	require.NoError(t, err)
	defer conn.Close()

	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "hello from daemon\n", string(got))
}

func TestUnixDialer_MissingSocket(t *testing.T) {
	d := &UnixDialer{Timeout: time.Second}
	_, err := d.Dial(context.Background(), sockPath(t))

	var ioErr *skerrors.IOError
	require.True(t, skerrors.As(err, &ioErr))
	assert.Equal(t, "dial", ioErr.Op)
}

func TestUnixDialer_ContextCancel(t *testing.T) {
	path := sockPath(t)
	ln, err := Listen(path)
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = (&UnixDialer{}).Dial(ctx, path)
	assert.Error(t, err)
}

func TestListen_RemovesStaleSocket(t *testing.T) {
	path := sockPath(t)
	ln, err := Listen(path)
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	// The file survives Close and nothing accepts on it any more.
	_, err = os.Lstat(path)
	require.NoError(t, err)

	ln, err = Listen(path)
	require.NoError(t, err)
	ln.Close()
}

func TestListen_RefusesLiveSocket(t *testing.T) {
	path := sockPath(t)
	ln, err := Listen(path)
	require.NoError(t, err)
	defer ln.Close()

	_, err = Listen(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already listening")
}

func TestListen_RefusesRegularFile(t *testing.T) {
	path := sockPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := Listen(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a socket")
}

func TestRemove(t *testing.T) {
	path := sockPath(t)
	ln, err := Listen(path)
	require.NoError(t, err)
	ln.Close()

	require.NoError(t, Remove(path))
	_, err = os.Lstat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, Remove(path))
}

var _ Dialer = (*UnixDialer)(nil)
