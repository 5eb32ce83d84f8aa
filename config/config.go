// Package config defines the runtime configuration for shellkeep and
// the fixed timing constants shared by the daemon and its clients.
package config

import (
	"fmt"
	"strings"

	skerrors "shellkeep/internal/errors"
)

// Config holds every tuneable for a shellkeep process.
type Config struct {
	// ── Transport ────────────────────────────────────────────────────
	SocketPath string // unix socket the daemon listens on
	ConfigPath string // optional TOML file, "" means defaults only

	// ── Reserved ─────────────────────────────────────────────────────
	KeepAliveSecs int // accepted from the file, not yet acted on

	// ── Message of the day ───────────────────────────────────────────
	Motd MotdConfig

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// MotdMode selects how the message of the day reaches a new session.
type MotdMode string

const (
	MotdNever MotdMode = "never"
	MotdDump  MotdMode = "dump"
)

// MotdConfig controls message-of-the-day delivery on session creation.
type MotdConfig struct {
	Mode MotdMode
	Path string
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		SocketPath: DefaultSocketPath(),
		Motd: MotdConfig{
			Mode: MotdNever,
			Path: DefaultMotdPath,
		},
		Verbose: DefaultVerbosity,
	}
}

// ParseLogLevel maps a level name onto the -v count used by util.Logger.
func ParseLogLevel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return 0, nil
	case "", "normal", "info":
		return 1, nil
	case "verbose":
		return 2, nil
	case "debug":
		return 3, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.SocketPath == "" {
		return &skerrors.ConfigError{
			Field:   "socket",
			Message: "socket path is required",
			Hint:    "set --socket or SHELLKEEP_SOCKET",
		}
	}
	if c.KeepAliveSecs < 0 {
		return &skerrors.ConfigError{
			Field:   "keepalive_secs",
			Value:   c.KeepAliveSecs,
			Message: "must not be negative",
		}
	}
	switch c.Motd.Mode {
	case MotdNever:
	case MotdDump:
		if c.Motd.Path == "" {
			return &skerrors.ConfigError{
				Field:   "motd.path",
				Message: "dump mode needs a file to read",
			}
		}
	default:
		return &skerrors.ConfigError{
			Field:   "motd.mode",
			Value:   c.Motd.Mode,
			Message: "expected never or dump",
			Hint:    "pager display is not supported by the daemon",
		}
	}
	if c.Verbose < 0 {
		return &skerrors.ConfigError{Field: "verbose", Value: c.Verbose, Message: "must not be negative"}
	}
	return nil
}
