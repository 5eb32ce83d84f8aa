package session

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"shellkeep/internal/protocol"
	"shellkeep/internal/shell"
	"shellkeep/util"
)

// Spawner launches the shell behind a new session.
type Spawner interface {
	Spawn(ctx context.Context, name string) (*shell.Process, error)
}

// Registry maps session names to sessions for the daemon's lifetime.
// Entries are never evicted, including sessions whose shell has
// exited.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	spawner Spawner
	logger  *util.Logger
	now     func() time.Time
}

// NewRegistry returns an empty registry that creates sessions with
// spawner.
func NewRegistry(spawner Spawner, logger *util.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		spawner:  spawner,
		logger:   logger,
		now:      time.Now,
	}
}

// Attach resolves an attach request for name on behalf of conn.
//
//   - unknown name: a shell is spawned and the session registered;
//     status Created.
//   - known name, lock free: conn replaces the session's client
//     stream; status Attached.
//   - known name, lock held: nothing changes; status Busy and a nil
//     lease.
//
// For Created and Attached the returned lease still holds the
// session's lock; the caller must Release it.  Attach never blocks on
// a session lock.
func (r *Registry) Attach(ctx context.Context, name string, conn net.Conn) (*Lease, protocol.AttachStatus, error) {
	r.mu.Lock()
	sess, ok := r.sessions[name]
	if !ok {
		// Insert while still holding the map lock so concurrent
		// attaches for the same new name see a locked session (Busy)
		// rather than spawning a second shell.
		sess = newLocked(name, r.now())
		r.sessions[name] = sess
	}
	r.mu.Unlock()

	if !ok {
		return r.create(ctx, sess, conn)
	}

	if !sess.tryAcquire() {
		r.logger.Debug("session %q is locked by an active pump", name)
		return nil, protocol.StatusBusy, nil
	}

	old := sess.inner.Client
	sess.inner.Client = conn
	if old != nil && old != conn {
		old.Close() //nolint:errcheck
	}
	return &Lease{sess: sess}, protocol.StatusAttached, nil
}

func (r *Registry) create(ctx context.Context, sess *Session, conn net.Conn) (*Lease, protocol.AttachStatus, error) {
	proc, err := r.spawner.Spawn(ctx, sess.Name)
	if err != nil {
		r.mu.Lock()
		if r.sessions[sess.Name] == sess {
			delete(r.sessions, sess.Name)
		}
		r.mu.Unlock()
		sess.release()
		return nil, 0, err
	}

	sess.inner = Inner{Proc: proc, Client: conn}
	return &Lease{sess: sess}, protocol.StatusCreated, nil
}

// Get returns the session registered under name.
func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[name]
	return s, ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List snapshots every session's name and creation time, sorted by
// name.  It takes no session locks, so a session mid-creation or
// mid-takeover may appear.
func (r *Registry) List() []protocol.SessionSummary {
	r.mu.RLock()
	out := make([]protocol.SessionSummary, 0, len(r.sessions))
	for name, s := range r.sessions {
		out = append(out, protocol.SessionSummary{
			Name:            name,
			StartedAtUnixMs: s.StartedAt.UnixMilli(),
		})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close kills the shell of every idle session.  Sessions whose pump is
// still running are skipped; call it after the daemon's workers have
// drained.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.sessions {
		if s.tryAcquire() {
			if s.inner.Proc != nil {
				s.inner.Proc.Close() //nolint:errcheck
			}
			s.release()
		} else {
			r.logger.Verbose("session %q still pumping at shutdown", name)
		}
	}
}
