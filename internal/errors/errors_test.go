package errors

import (
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIOError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *IOError
		want string
	}{
		{
			name: "timeout",
			err:  Wrap("read", "client", os.ErrDeadlineExceeded),
			want: "read client: i/o timeout (timeout)",
		},
		{
			name: "plain",
			err:  Wrap("write", "shell stdin", fmt.Errorf("broken")),
			want: "write shell stdin: broken",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIOError_Unwrap(t *testing.T) {
	err := Wrap("read", "shell stdout", io.EOF)
	assert.True(t, Is(err, io.EOF))
	assert.False(t, err.Timeout)
}

func TestProtocolError(t *testing.T) {
	inner := fmt.Errorf("bad cbor")
	err := &ProtocolError{Stage: "connect header", Err: inner}
	assert.Equal(t, "protocol connect header: bad cbor", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestSpawnError(t *testing.T) {
	err := &SpawnError{Step: "user info", Err: io.ErrUnexpectedEOF}
	assert.Equal(t, "spawn user info: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err:  ConfigError{Field: "motd.mode", Value: "pager", Message: "unsupported", Hint: "use dump"},
			want: "config: motd.mode=pager: unsupported\n  hint: use dump",
		},
		{
			name: "missing value",
			err:  ConfigError{Field: "socket", Message: "required"},
			want: "config: socket: required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", os.ErrDeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("reading: %w", os.ErrDeadlineExceeded), true},
		{"eagain", syscall.EAGAIN, true},
		{"io error flag", &IOError{Op: "poll", Timeout: true, Err: fmt.Errorf("x")}, true},
		{"eof", io.EOF, false},
		{"closed", net.ErrClosed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTimeout(tt.err))
		})
	}
}

func TestIsHarmless(t *testing.T) {
	assert.True(t, IsHarmless(nil))
	assert.True(t, IsHarmless(io.EOF))
	assert.True(t, IsHarmless(net.ErrClosed))
	assert.True(t, IsHarmless(Wrap("write", "client", syscall.EPIPE)))
	assert.True(t, IsHarmless(os.ErrClosed))
	assert.False(t, IsHarmless(io.ErrUnexpectedEOF))
	assert.False(t, IsHarmless(ErrBusy))
}

func TestReExports(t *testing.T) {
	a := New("a")
	b := New("b")
	joined := Join(a, b)
	assert.True(t, Is(joined, a))
	assert.True(t, Is(joined, b))

	var ioe *IOError
	assert.True(t, As(fmt.Errorf("outer: %w", Wrap("read", "x", a)), &ioe))
	assert.Equal(t, a, Unwrap(ioe))
}
