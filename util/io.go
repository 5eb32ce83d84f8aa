package util

import (
	"context"
	"io"
	"net"

	skerrors "shellkeep/internal/errors"
)

// DefaultBufSize is the buffer size for stream I/O (16 KiB).
const DefaultBufSize = 16 * 1024

// BidirectionalCopy shuffles data between a daemon connection and an
// arbitrary reader/writer pair (typically the local terminal) until
// the connection reaches EOF or the context is cancelled.
//
// The reader goroutine is not waited for: a terminal read cannot be
// interrupted, so it is left to fail on its next write to the closed
// connection.
func BidirectionalCopy(ctx context.Context, conn net.Conn, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outDone := make(chan error, 1)
	inDone := make(chan error, 1)

	// connection → writer
	go func() {
		_, err := io.Copy(w, conn)
		outDone <- err
		cancel()
	}()

	// reader → connection
	go func() {
		_, err := io.Copy(conn, r)
		// Half-close so the shell sees end of input, but keep reading
		// whatever it still prints.
		if hc, ok := conn.(interface{ CloseWrite() error }); ok {
			hc.CloseWrite() //nolint:errcheck
		}
		inDone <- err
		if err != nil {
			cancel()
		}
	}()

	<-ctx.Done()
	conn.Close() // unblock any pending reads/writes

	errs := []error{<-outDone}
	select {
	case err := <-inDone:
		errs = append(errs, err)
	default:
	}

	for _, err := range errs {
		if err != nil && !skerrors.IsHarmless(err) {
			return err
		}
	}
	return nil
}
