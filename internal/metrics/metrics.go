// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a shellkeep daemon.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a daemon.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsTotal atomic.Int64
	sessionsCreated  atomic.Int64
	attaches         atomic.Int64
	busyRejections   atomic.Int64
	pumpsActive      atomic.Int64
	bytesToShell     atomic.Int64
	bytesToClient    atomic.Int64
	errorsTotal      atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionAccepted counts an inbound connection.
func (c *Collector) ConnectionAccepted() {
	if c == nil {
		return
	}
	c.connectionsTotal.Add(1)
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionCreated counts an attach that spawned a new shell.
func (c *Collector) SessionCreated() {
	if c == nil {
		return
	}
	c.sessionsCreated.Add(1)
}

// SessionAttached counts an attach that took over an idle session.
func (c *Collector) SessionAttached() {
	if c == nil {
		return
	}
	c.attaches.Add(1)
}

// SessionBusy counts an attach turned away because a pump was active.
func (c *Collector) SessionBusy() {
	if c == nil {
		return
	}
	c.busyRejections.Add(1)
}

// BusyRejections returns how many attaches were answered Busy.
func (c *Collector) BusyRejections() int64 {
	if c == nil {
		return 0
	}
	return c.busyRejections.Load()
}

// ── Pump metrics ─────────────────────────────────────────────────────

// PumpStarted increments the active pump gauge.
func (c *Collector) PumpStarted() {
	if c == nil {
		return
	}
	c.pumpsActive.Add(1)
}

// PumpStopped decrements the active pump gauge.
func (c *Collector) PumpStopped() {
	if c == nil {
		return
	}
	c.pumpsActive.Add(-1)
}

// ActivePumps returns the number of running pumps.
func (c *Collector) ActivePumps() int64 {
	if c == nil {
		return 0
	}
	return c.pumpsActive.Load()
}

// BytesToShell records n bytes relayed from a client to a shell.
func (c *Collector) BytesToShell(n int64) {
	if c == nil {
		return
	}
	c.bytesToShell.Add(n)
}

// BytesToClient records n bytes relayed from a shell to a client.
func (c *Collector) BytesToClient(n int64) {
	if c == nil {
		return
	}
	c.bytesToClient.Add(n)
}

// TotalBytesToShell returns total bytes relayed into shells.
func (c *Collector) TotalBytesToShell() int64 {
	if c == nil {
		return 0
	}
	return c.bytesToShell.Load()
}

// TotalBytesToClient returns total bytes relayed out to clients.
func (c *Collector) TotalBytesToClient() int64 {
	if c == nil {
		return 0
	}
	return c.bytesToClient.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	ConnectionsTotal int64  `json:"connections_total"`
	SessionsCreated  int64  `json:"sessions_created"`
	Attaches         int64  `json:"attaches"`
	BusyRejections   int64  `json:"busy_rejections"`
	PumpsActive      int64  `json:"pumps_active"`
	BytesToShell     int64  `json:"bytes_to_shell"`
	BytesToClient    int64  `json:"bytes_to_client"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:           time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsTotal: c.connectionsTotal.Load(),
		SessionsCreated:  c.sessionsCreated.Load(),
		Attaches:         c.attaches.Load(),
		BusyRejections:   c.busyRejections.Load(),
		PumpsActive:      c.pumpsActive.Load(),
		BytesToShell:     c.bytesToShell.Load(),
		BytesToClient:    c.bytesToClient.Load(),
		ErrorsTotal:      c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
