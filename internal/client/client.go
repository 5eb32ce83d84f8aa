// Package client talks to a running shellkeep daemon: it attaches the
// local terminal to a named session or lists the daemon's sessions.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"syscall"
	"time"

	"golang.org/x/term"

	skerrors "shellkeep/internal/errors"
	"shellkeep/internal/protocol"
	"shellkeep/internal/retry"
	"shellkeep/internal/transport"
	"shellkeep/util"
)

// replyTimeout bounds each control frame exchanged with the daemon.
const replyTimeout = 5 * time.Second

// Client reaches the daemon listening on SocketPath.
type Client struct {
	SocketPath string
	Dialer     transport.Dialer
	Backoff    *retry.Backoff
	Logger     *util.Logger
}

// New returns a Client that retries with retry.DialBackoff while the
// daemon socket is missing or refusing connections.
func New(socketPath string, logger *util.Logger) *Client {
	return &Client{
		SocketPath: socketPath,
		Dialer:     &transport.UnixDialer{Timeout: time.Second},
		Backoff:    retry.DialBackoff(),
		Logger:     logger,
	}
}

// Dial connects to the daemon.  Only "no socket yet" and "connection
// refused" are retried.
func (c *Client) Dial(ctx context.Context) (net.Conn, error) {
	b := *c.Backoff
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.Logger.Verbose("daemon not reachable (attempt %d): %v; retrying in %v", attempt, err, wait)
	}

	var conn net.Conn
	err := b.Do(ctx, func(int) error {
		var err error
		conn, err = c.Dialer.Dial(ctx, c.SocketPath)
		if err != nil && !retryable(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func retryable(err error) bool {
	return skerrors.Is(err, syscall.ENOENT) || skerrors.Is(err, syscall.ECONNREFUSED)
}

// List returns the daemon's sessions sorted by name.
func (c *Client) List(ctx context.Context) ([]protocol.SessionSummary, error) {
	conn, err := c.Dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := protocol.WriteFrameTimeout(conn, protocol.NewListHeader(), replyTimeout); err != nil {
		return nil, err
	}
	var reply protocol.ListReply
	if err := protocol.ReadFrameTimeout(conn, &reply, replyTimeout); err != nil {
		return nil, err
	}

	sort.Slice(reply.Sessions, func(i, j int) bool {
		return reply.Sessions[i].Name < reply.Sessions[j].Name
	})
	return reply.Sessions, nil
}

// Attach binds stdin and stdout to the session called name until the
// daemon hangs up or ctx is cancelled.  A busy session yields
// errors.ErrBusy.  When stdin is a terminal it is switched to raw mode
// for the duration.
func (c *Client) Attach(ctx context.Context, name string, stdin io.Reader, stdout io.Writer) (protocol.AttachStatus, error) {
	conn, err := c.Dial(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if err := protocol.WriteFrameTimeout(conn, protocol.NewAttachHeader(name), replyTimeout); err != nil {
		return 0, err
	}
	var reply protocol.AttachReply
	if err := protocol.ReadFrameTimeout(conn, &reply, replyTimeout); err != nil {
		return 0, err
	}
	if reply.Status == protocol.StatusBusy {
		return reply.Status, fmt.Errorf("session %q: %w", name, skerrors.ErrBusy)
	}
	c.Logger.Verbose("session %q %s", name, reply.Status)

	if restore := makeRaw(stdin, c.Logger); restore != nil {
		defer restore()
	}

	if reply.Motd {
		var chunk protocol.Chunk
		if err := protocol.ReadFrameTimeout(conn, &chunk, replyTimeout); err != nil {
			return reply.Status, err
		}
		if _, err := stdout.Write(chunk.Buf); err != nil {
			return reply.Status, skerrors.Wrap("write", "motd", err)
		}
	}

	return reply.Status, util.BidirectionalCopy(ctx, conn, stdin, stdout)
}

// makeRaw puts a terminal stdin into raw mode and returns the function
// that undoes it, or nil when stdin is not a terminal.
func makeRaw(stdin io.Reader, logger *util.Logger) func() {
	f, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		logger.Warn("could not switch terminal to raw mode: %v", err)
		return nil
	}
	return func() { term.Restore(fd, state) } //nolint:errcheck
}
