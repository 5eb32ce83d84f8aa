package config

import (
	"os"
	"path/filepath"
	"time"
)

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// SockStreamTimeout bounds the connect-header read and every
	// control-frame write on a client connection.
	SockStreamTimeout = 200 * time.Millisecond

	// PipePollDuration is how long a single pump read, write, or
	// readiness wait may block before the loop re-checks for
	// cancellation.
	PipePollDuration = 200 * time.Millisecond

	// HeartbeatDuration is reserved for keep-alive traffic on attached
	// sessions.  Nothing sends heartbeats yet.
	HeartbeatDuration = 500 * time.Millisecond

	// MaxFrameSize caps a single length-prefixed control frame.
	MaxFrameSize = 16 * 1024 * 1024

	// SessionEnvVar is the only variable present in a spawned shell's
	// environment; it carries the session name.
	SessionEnvVar = "SHELLKEEP_SESSION_NAME"

	// DefaultMotdPath is read when motd.mode is "dump" and no path is
	// configured.
	DefaultMotdPath = "/etc/motd"

	// DefaultVerbosity matches util.LogNormal.
	DefaultVerbosity = 1

	// DefaultDialAttempts is how many times a client retries reaching
	// a daemon socket that is not accepting yet.
	DefaultDialAttempts = 5

	// DefaultDialBackoff is the first delay between dial attempts.
	DefaultDialBackoff = 50 * time.Millisecond
)

// DefaultSocketPath places the socket under $XDG_RUNTIME_DIR when set,
// falling back to the user's home directory.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "shellkeep", "shellkeep.socket")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "run", "shellkeep", "shellkeep.socket")
	}
	return filepath.Join(os.TempDir(), "shellkeep.socket")
}
