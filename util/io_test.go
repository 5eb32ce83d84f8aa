package util

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer accepts one unix-socket connection and echoes it back.
func echoServer(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "echo.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c) //nolint:errcheck
			}(conn)
		}
	}()
	return path
}

func TestBidirectionalCopy(t *testing.T) {
	path := echoServer(t)

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)

	input := bytes.NewBufferString("hello world\n")
	output := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// input → conn → echo → output.  Exhausting the input half-closes
	// the write side; the echo server then sees EOF and closes.
	require.NoError(t, BidirectionalCopy(ctx, conn, input, output))
	assert.Equal(t, "hello world\n", output.String())
}

// blockingReader never returns, like an idle terminal.
type blockingReader struct{ ch chan struct{} }

func (b blockingReader) Read(p []byte) (int, error) {
	<-b.ch
	return 0, io.EOF
}

func TestBidirectionalCopy_RemoteCloseWithIdleInput(t *testing.T) {
	client, server := net.Pipe()

	go func() {
		server.Write([]byte("bye\n")) //nolint:errcheck
		server.Close()
	}()

	idle := blockingReader{ch: make(chan struct{})}
	defer close(idle.ch)
	output := &bytes.Buffer{}

	done := make(chan error, 1)
	go func() {
		done <- BidirectionalCopy(context.Background(), client, idle, output)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("copy did not return after remote close")
	}
	assert.Equal(t, "bye\n", output.String())
}
