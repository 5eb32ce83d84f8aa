// Package shell launches the login shell that backs a session.
//
// Shells run on plain pipes: no pseudo-terminal is allocated, so there
// is no job control and no terminal-size passthrough.  The shell's
// stderr shares the stdout pipe so prompts and diagnostics reach the
// attached client.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"shellkeep/config"
	skerrors "shellkeep/internal/errors"
	"shellkeep/util"
)

// DefaultShellArgs forces an interactive login shell, which is the
// closest a pipe-backed shell gets to a terminal session.
var DefaultShellArgs = []string{"-i", "-l"} //nolint:gochecknoglobals

// userInfoScript prints "<shell>|<home>" for the invoking user.
const userInfoScript = `cd ; echo "$SHELL|$PWD"`

// UserInfo is the invoking user's login shell and home directory.
type UserInfo struct {
	Shell   string
	HomeDir string
}

// UserLookup resolves the user a new session runs as.
type UserLookup func(ctx context.Context) (UserInfo, error)

// LookupUser asks /bin/sh for $SHELL and the home directory.  It fails
// if the helper exits non-zero, writes anything to stderr, or prints
// something other than exactly two pipe-delimited fields.
func LookupUser(ctx context.Context) (UserInfo, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", userInfoScript)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return UserInfo{}, fmt.Errorf("running user info helper: %w", err)
	}
	if stderr.Len() != 0 {
		return UserInfo{}, fmt.Errorf("unexpected stderr from user info helper: %q", stderr.String())
	}
	return parseUserInfo(stdout.Bytes())
}

func parseUserInfo(out []byte) (UserInfo, error) {
	parts := strings.Split(strings.TrimSpace(string(out)), "|")
	if len(parts) != 2 {
		return UserInfo{}, fmt.Errorf("could not parse user info %q", out)
	}
	if parts[0] == "" || parts[1] == "" {
		return UserInfo{}, fmt.Errorf("empty field in user info %q", out)
	}
	return UserInfo{Shell: parts[0], HomeDir: parts[1]}, nil
}

// Spawner starts session shells.
type Spawner struct {
	Lookup UserLookup
	Args   []string
	Logger *util.Logger
}

// NewSpawner returns a Spawner that runs the user's login shell with
// DefaultShellArgs.
func NewSpawner(logger *util.Logger) *Spawner {
	return &Spawner{
		Lookup: LookupUser,
		Args:   DefaultShellArgs,
		Logger: logger,
	}
}

// Spawn launches a shell for the session called name.  The shell runs
// in the user's home directory with an environment holding nothing but
// config.SessionEnvVar, and in its own session so signals aimed at the
// daemon do not reach it.
func (s *Spawner) Spawn(ctx context.Context, name string) (*Process, error) {
	lookup := s.Lookup
	if lookup == nil {
		lookup = LookupUser
	}
	info, err := lookup(ctx)
	if err != nil {
		return nil, &skerrors.SpawnError{Step: "user info", Err: err}
	}
	s.Logger.Debug("user info shell=%s home=%s", info.Shell, info.HomeDir)

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, &skerrors.SpawnError{Step: "pipe", Err: err}
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, &skerrors.SpawnError{Step: "pipe", Err: err}
	}

	cmd := exec.Command(info.Shell, s.Args...)
	cmd.Dir = info.HomeDir
	cmd.Env = []string{config.SessionEnvVar + "=" + name}
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = outW
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	err = cmd.Start()
	// The child holds its own copies of these ends now.
	inR.Close()
	outW.Close()
	if err != nil {
		inW.Close()
		outR.Close()
		return nil, &skerrors.SpawnError{Step: "start", Err: err}
	}

	p := &Process{
		Cmd:    cmd,
		Stdin:  inW,
		Stdout: outR,
		done:   make(chan struct{}),
	}
	go p.wait()

	s.Logger.Verbose("spawned %s pid=%d for session %q", info.Shell, cmd.Process.Pid, name)
	return p, nil
}
