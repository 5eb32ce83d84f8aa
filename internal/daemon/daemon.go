// Package daemon accepts client connections on the shellkeep socket
// and routes each one to the attach or list workflow.
//
// Every accepted connection gets its own goroutine.  For an attach
// that creates or takes over a session, that goroutine becomes the
// session's worker: it holds the session lease while it writes the
// reply and runs the pump, and releases it only when the pump ends.
package daemon

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"shellkeep/config"
	skerrors "shellkeep/internal/errors"
	"shellkeep/internal/metrics"
	"shellkeep/internal/motd"
	"shellkeep/internal/protocol"
	"shellkeep/internal/pump"
	"shellkeep/internal/session"
	"shellkeep/internal/transport"
	"shellkeep/util"
)

// acceptRetryDelay throttles the accept loop after a transient error.
const acceptRetryDelay = 50 * time.Millisecond

// Daemon owns the session registry for the life of the process.
type Daemon struct {
	cfg      *config.Config
	registry *session.Registry
	motd     *motd.Messenger
	pump     *pump.Pump
	metrics  *metrics.Collector
	logger   *util.Logger

	workers sync.WaitGroup
}

// New builds a daemon that creates session shells with spawner.
func New(cfg *config.Config, spawner session.Spawner, logger *util.Logger) *Daemon {
	m := metrics.New()
	return &Daemon{
		cfg:      cfg,
		registry: session.NewRegistry(spawner, logger),
		motd:     motd.New(cfg.Motd),
		pump:     pump.New(m, logger),
		metrics:  m,
		logger:   logger,
	}
}

// Metrics exposes the daemon's counters.
func (d *Daemon) Metrics() *metrics.Collector { return d.metrics }

// Registry exposes the daemon's sessions.
func (d *Daemon) Registry() *session.Registry { return d.registry }

// ListenAndServe binds the configured socket and serves until ctx is
// cancelled.  The socket file is removed before returning.
func (d *Daemon) ListenAndServe(ctx context.Context) error {
	ln, err := transport.Listen(d.cfg.SocketPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := transport.Remove(d.cfg.SocketPath); err != nil {
			d.logger.Warn("%v", err)
		}
	}()

	d.logger.Info("listening on %s", d.cfg.SocketPath)
	return d.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or ln fails
// permanently.  On the way out it stops running pumps, waits for every
// connection worker, and kills the shells of all sessions.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()

	// Shut the listener down when the context expires.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var err error
	for {
		conn, aerr := ln.Accept()
		if aerr != nil {
			if ctx.Err() != nil {
				break
			}
			if skerrors.Is(aerr, net.ErrClosed) {
				err = skerrors.Wrap("accept", ln.Addr().String(), aerr)
				break
			}
			d.logger.Error("accept: %v", aerr)
			d.metrics.RecordError(aerr.Error())
			time.Sleep(acceptRetryDelay)
			continue
		}

		d.metrics.ConnectionAccepted()
		d.workers.Add(1)
		go func() {
			defer d.workers.Done()
			d.handleConn(ctx, conn)
		}()
	}

	d.workers.Wait()
	d.registry.Close()
	d.logger.Verbose("shutdown metrics: %s", d.metrics.JSON())
	return err
}

// handleConn reads the connect header and dispatches it.
func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	log := d.logger.With("conn", uuid.NewString())
	log.Debug("accepted connection")

	var hdr protocol.ConnectHeader
	if err := protocol.ReadFrameTimeout(conn, &hdr, config.SockStreamTimeout); err != nil {
		log.Error("reading connect header: %v", err)
		d.metrics.RecordError(err.Error())
		conn.Close()
		return
	}

	switch hdr.Kind {
	case protocol.HeaderAttach:
		d.handleAttach(ctx, conn, hdr.Attach.Name, log)
	case protocol.HeaderList:
		d.handleList(conn, log)
	}
}

func (d *Daemon) handleList(conn net.Conn, log *util.Logger) {
	defer conn.Close()

	reply := protocol.ListReply{Sessions: d.registry.List()}
	if err := protocol.WriteFrameTimeout(conn, &reply, config.SockStreamTimeout); err != nil {
		log.Error("writing list reply: %v", err)
		d.metrics.RecordError(err.Error())
		return
	}
	log.Verbose("listed %d sessions", len(reply.Sessions))
}
