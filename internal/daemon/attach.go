package daemon

import (
	"context"
	"net"

	"shellkeep/config"
	skerrors "shellkeep/internal/errors"
	"shellkeep/internal/protocol"
	"shellkeep/internal/pump"
	"shellkeep/internal/session"
	"shellkeep/util"
)

// handleAttach resolves an attach request.  A spawn failure drops the
// connection without a reply.
func (d *Daemon) handleAttach(ctx context.Context, conn net.Conn, name string, log *util.Logger) {
	log = log.With("session", name)

	lease, status, err := d.registry.Attach(ctx, name, conn)
	if err != nil {
		log.Error("creating session: %v", err)
		d.metrics.RecordError(err.Error())
		conn.Close()
		return
	}

	switch status {
	case protocol.StatusBusy:
		d.metrics.SessionBusy()
		log.Info("session is busy, turning client away")
		reply := protocol.AttachReply{Status: protocol.StatusBusy}
		if err := protocol.WriteFrameTimeout(conn, &reply, config.SockStreamTimeout); err != nil {
			log.Error("writing busy reply: %v", err)
		}
		conn.Close()
		return
	case protocol.StatusCreated:
		d.metrics.SessionCreated()
	case protocol.StatusAttached:
		d.metrics.SessionAttached()
	}

	d.serveAttach(ctx, lease, status, log)
}

// serveAttach writes the attach reply and runs the pump, holding the
// lease throughout.  The client stream is closed when the pump ends.
func (d *Daemon) serveAttach(ctx context.Context, lease *session.Lease, status protocol.AttachStatus, log *util.Logger) {
	defer lease.Release()

	inner := lease.Inner()
	client := inner.Client
	defer client.Close()

	reply := protocol.AttachReply{Status: status}
	var chunk *protocol.Chunk
	if status == protocol.StatusCreated && d.motd.Enabled() {
		c, err := d.motd.Chunk()
		if err != nil {
			log.Warn("skipping motd: %v", err)
		} else {
			chunk = c
			reply.Motd = true
		}
	}

	if err := protocol.WriteFrameTimeout(client, &reply, config.SockStreamTimeout); err != nil {
		log.Error("writing attach reply: %v", err)
		d.metrics.RecordError(err.Error())
		return
	}
	if chunk != nil {
		if err := protocol.WriteFrameTimeout(client, chunk, config.SockStreamTimeout); err != nil {
			log.Error("writing motd: %v", err)
			d.metrics.RecordError(err.Error())
			return
		}
	}

	log.Verbose("%s, pump started", status)
	p := *d.pump
	p.Logger = log
	err := p.Run(ctx, pump.Endpoints{
		Client:   client,
		ShellIn:  inner.Proc.Stdin,
		ShellOut: inner.Proc.Stdout,
	})
	if err != nil && !skerrors.IsHarmless(err) {
		log.Error("pump: %v", err)
		d.metrics.RecordError(err.Error())
		return
	}
	log.Verbose("pump finished")
}
