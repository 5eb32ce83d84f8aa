package config

// loader.go - configuration loading from the TOML file and environment.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables
//   3. Config file
//   4. Defaults   (defaults.go)

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	skerrors "shellkeep/internal/errors"
)

// fileConfig mirrors the on-disk TOML schema.
type fileConfig struct {
	KeepAliveSecs *int      `toml:"keepalive_secs"`
	LogLevel      string    `toml:"log_level"`
	Motd          *fileMotd `toml:"motd"`
}

type fileMotd struct {
	Mode string `toml:"mode"`
	Path string `toml:"path"`
}

// LoadFile overlays the TOML file at path onto cfg.  Unknown keys are
// rejected so typos surface at startup instead of being ignored.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return decode(cfg, data)
}

func decode(cfg *Config, data []byte) error {
	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	if fc.KeepAliveSecs != nil {
		cfg.KeepAliveSecs = *fc.KeepAliveSecs
	}
	if fc.LogLevel != "" {
		v, err := ParseLogLevel(fc.LogLevel)
		if err != nil {
			return &skerrors.ConfigError{Field: "log_level", Value: fc.LogLevel, Message: err.Error()}
		}
		cfg.Verbose = v
	}
	if fc.Motd != nil {
		if fc.Motd.Mode != "" {
			cfg.Motd.Mode = MotdMode(strings.ToLower(fc.Motd.Mode))
		}
		if fc.Motd.Path != "" {
			cfg.Motd.Path = fc.Motd.Path
		}
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the SHELLKEEP_ prefix.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it after LoadFile and
// before applying CLI flags.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("SHELLKEEP_SOCKET"); v != "" {
		cfg.SocketPath = v
	}
	if v := os.Getenv("SHELLKEEP_LOG_LEVEL"); v != "" {
		if n, err := ParseLogLevel(v); err == nil {
			cfg.Verbose = n
		}
	}
	if v := envInt("SHELLKEEP_KEEPALIVE_SECS"); v > 0 {
		cfg.KeepAliveSecs = v
	}
	if v := os.Getenv("SHELLKEEP_MOTD"); v != "" {
		cfg.Motd.Mode = MotdMode(strings.ToLower(v))
	}
	if v := os.Getenv("SHELLKEEP_MOTD_PATH"); v != "" {
		cfg.Motd.Path = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
