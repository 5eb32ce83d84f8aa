// Package pump relays bytes between an attached client and a session's
// shell.
//
// Two loops run concurrently, one per direction.  Every blocking step
// in them (client read, client write, shell readiness wait, shell
// write) is bounded by the poll interval, so each loop notices a
// cancelled context within one interval.  When either loop returns,
// for any reason, the shared context is cancelled and Run waits for
// the other loop before returning the first error.  A panic in either
// loop is re-raised from Run.
//
// The pump sends no keep-alive traffic of its own;
// config.HeartbeatDuration is reserved for that.
package pump

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/sourcegraph/conc/pool"

	"shellkeep/config"
	skerrors "shellkeep/internal/errors"
	"shellkeep/internal/metrics"
	"shellkeep/util"
)

// Endpoints are the three streams a pump moves bytes between.
type Endpoints struct {
	Client   net.Conn
	ShellIn  *os.File // written with client bytes
	ShellOut *os.File // read for shell output
}

// Pump runs relays.  The zero value is usable and polls every
// config.PipePollDuration.
type Pump struct {
	PollInterval time.Duration
	Metrics      *metrics.Collector
	Logger       *util.Logger
}

// New returns a Pump with the default poll interval.
func New(m *metrics.Collector, logger *util.Logger) *Pump {
	return &Pump{
		PollInterval: config.PipePollDuration,
		Metrics:      m,
		Logger:       logger,
	}
}

func (p *Pump) interval() time.Duration {
	if p.PollInterval > 0 {
		return p.PollInterval
	}
	return config.PipePollDuration
}

func (p *Pump) logger() *util.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return util.NewLogger(0)
}

// Run relays until the client hangs up, the shell closes its output,
// an I/O error occurs, or ctx is cancelled.  A clean end of either
// stream returns nil.
func (p *Pump) Run(ctx context.Context, ep Endpoints) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.Metrics.PumpStarted()
	defer p.Metrics.PumpStopped()

	workers := pool.New().WithErrors().WithFirstError()
	workers.Go(func() error {
		defer cancel()
		return p.clientToShell(ctx, ep)
	})
	workers.Go(func() error {
		defer cancel()
		return p.shellToClient(ctx, ep)
	})
	err := workers.Wait()

	// Leave the connection without stale deadlines for whoever holds
	// it next.
	ep.Client.SetDeadline(time.Time{}) //nolint:errcheck
	return err
}

// ── client → shell ───────────────────────────────────────────────────

func (p *Pump) clientToShell(ctx context.Context, ep Endpoints) error {
	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp
	log := p.logger()

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := ep.Client.SetReadDeadline(time.Now().Add(p.interval())); err != nil {
			return skerrors.Wrap("set read deadline", "client", err)
		}
		n, rerr := ep.Client.Read(buf)
		if n > 0 {
			log.Debug("client -> shell %d bytes", n)
			written, err := p.writeShell(ctx, ep.ShellIn, buf[:n])
			p.Metrics.BytesToShell(int64(written))
			if err != nil {
				return err
			}
			if written < n {
				return nil // cancelled mid-chunk
			}
		}
		if rerr != nil {
			switch {
			case skerrors.IsTimeout(rerr):
				continue
			case skerrors.Is(rerr, io.EOF):
				log.Verbose("client closed its stream")
				return nil
			default:
				return skerrors.Wrap("read", "client", rerr)
			}
		}
	}
}

// writeShell writes all of chunk to the shell's stdin, waiting for the
// pipe to accept data one poll interval at a time.  It returns early,
// with a short count and nil error, if ctx is cancelled.
func (p *Pump) writeShell(ctx context.Context, f *os.File, chunk []byte) (int, error) {
	total := 0
	for total < len(chunk) {
		if ctx.Err() != nil {
			return total, nil
		}
		ready, err := waitWritable(f, p.interval())
		if err != nil {
			return total, skerrors.Wrap("poll", "shell stdin", err)
		}
		if !ready {
			continue
		}

		if err := f.SetWriteDeadline(time.Now().Add(p.interval())); err != nil {
			return total, skerrors.Wrap("set write deadline", "shell stdin", err)
		}
		n, err := f.Write(chunk[total:])
		total += n
		if err != nil && !skerrors.IsTimeout(err) {
			return total, skerrors.Wrap("write", "shell stdin", err)
		}
	}
	return total, nil
}

// ── shell → client ───────────────────────────────────────────────────

func (p *Pump) shellToClient(ctx context.Context, ep Endpoints) error {
	bufp := util.GetBuf()
	defer util.PutBuf(bufp)
	buf := *bufp
	log := p.logger()

	for {
		if ctx.Err() != nil {
			return nil
		}

		ready, err := waitReadable(ep.ShellOut, p.interval())
		if err != nil {
			return skerrors.Wrap("poll", "shell stdout", err)
		}
		if !ready {
			continue
		}

		if err := ep.ShellOut.SetReadDeadline(time.Now().Add(p.interval())); err != nil {
			return skerrors.Wrap("set read deadline", "shell stdout", err)
		}
		n, rerr := ep.ShellOut.Read(buf)
		if n > 0 {
			log.Debug("shell -> client %d bytes", n)
			written, err := p.writeClient(ctx, ep.Client, buf[:n])
			p.Metrics.BytesToClient(int64(written))
			if err != nil {
				return err
			}
			if written < n {
				return nil
			}
		}
		if rerr != nil {
			switch {
			case skerrors.IsTimeout(rerr):
				continue
			case skerrors.Is(rerr, io.EOF):
				log.Verbose("shell closed its output")
				return nil
			default:
				return skerrors.Wrap("read", "shell stdout", rerr)
			}
		}
	}
}

// writeClient writes all of chunk to the client, one bounded write at
// a time.  It returns early, with a short count and nil error, if ctx
// is cancelled.
func (p *Pump) writeClient(ctx context.Context, conn net.Conn, chunk []byte) (int, error) {
	total := 0
	for total < len(chunk) {
		if ctx.Err() != nil {
			return total, nil
		}
		if err := conn.SetWriteDeadline(time.Now().Add(p.interval())); err != nil {
			return total, skerrors.Wrap("set write deadline", "client", err)
		}
		n, err := conn.Write(chunk[total:])
		total += n
		if err != nil && !skerrors.IsTimeout(err) {
			return total, skerrors.Wrap("write", "client", err)
		}
	}
	return total, nil
}
