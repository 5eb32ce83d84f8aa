// Package session holds the daemon's named shell sessions and the
// attach state machine that decides whether a new client creates,
// takes over, or is turned away from a session.
//
// Each Session guards its inner state (shell pipes plus the current
// client stream) with an exclusive lock.  Whoever holds that lock owns
// the session: the attach path takes it without blocking, and the
// worker that writes the reply and runs the pump keeps it until the
// pump ends.  The Registry map has its own lock, independent of any
// session's.
package session

import (
	"net"
	"sync"
	"time"

	"shellkeep/internal/shell"
)

// Inner is the state only the lock holder may touch.
type Inner struct {
	Proc   *shell.Process
	Client net.Conn
}

// Session is one named, persistent shell.
type Session struct {
	Name      string
	StartedAt time.Time

	mu    sync.Mutex
	inner Inner
}

// newLocked returns a session whose lock is already held by the
// caller, so nobody can attach before its shell exists.
func newLocked(name string, now time.Time) *Session {
	s := &Session{Name: name, StartedAt: now}
	s.mu.Lock()
	return s
}

// tryAcquire takes the session's lock without blocking.
func (s *Session) tryAcquire() bool {
	return s.mu.TryLock()
}

func (s *Session) release() {
	s.mu.Unlock()
}

// Lease is exclusive ownership of a session, handed from the attach
// path to the worker that replies and pumps.
type Lease struct {
	sess     *Session
	released bool
}

// Session returns the leased session.
func (l *Lease) Session() *Session { return l.sess }

// Inner returns the session's mutable state.  Only valid until
// Release.
func (l *Lease) Inner() *Inner { return &l.sess.inner }

// Release gives up ownership.  Calling it twice is a no-op.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.sess.release()
}
