// Package errors provides domain-specific error types for shellkeep.
//
// These types carry structured context (operation, target, timeout
// classification) that helps the daemon decide whether a failure ends
// a pump, drops a connection, or is simply the next poll interval.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrBusy            = errors.New("session is busy")
	ErrPayloadTooLarge = errors.New("frame payload exceeds maximum size")
	ErrUnknownHeader   = errors.New("unknown connect header kind")
	ErrClosed          = errors.New("stream closed")
)

// ── Structured error types ───────────────────────────────────────────

// IOError represents a failure reading or writing a socket or pipe.
type IOError struct {
	Op      string // "read", "write", "poll", "accept", "dial"
	Target  string // "client", "shell stdin", "shell stdout", a socket path
	Err     error
	Timeout bool // the operation hit its poll deadline
}

func (e *IOError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	if e.Timeout {
		s += " (timeout)"
	}
	return s
}

func (e *IOError) Unwrap() error { return e.Err }

// ProtocolError represents a frame that could not be encoded or
// decoded at a given protocol stage.
type ProtocolError struct {
	Stage string // "connect header", "attach reply", "list reply", "chunk"
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol %s: %v", e.Stage, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// SpawnError represents a failure launching a session's shell.
type SpawnError struct {
	Step string // "user info", "pipe", "start"
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Step, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: %s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates an IOError, detecting whether err is a deadline
// expiry.
func Wrap(op, target string, err error) *IOError {
	return &IOError{
		Op:      op,
		Target:  target,
		Err:     err,
		Timeout: classifyTimeout(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsTimeout reports whether err is a bounded-wait expiry that the
// caller should treat as "poll again" rather than a failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ioe *IOError
	if errors.As(err, &ioe) {
		return ioe.Timeout
	}
	return classifyTimeout(err)
}

// IsHarmless reports whether err is expected while a stream is being
// torn down: end of stream, a closed connection, or a hung-up peer.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) ||
		errors.Is(err, ErrClosed) {
		return true
	}
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}

func classifyTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use shellkeep/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
