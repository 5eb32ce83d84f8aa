package shell

import (
	"os"
	"os/exec"
)

// Process is a running session shell and the daemon's ends of its
// pipes.  Stdin and Stdout stay open for the life of the session so a
// later client can reattach to the same shell.
type Process struct {
	Cmd    *exec.Cmd
	Stdin  *os.File // write end of the shell's stdin
	Stdout *os.File // read end of the shell's stdout and stderr

	done    chan struct{}
	waitErr error
}

func (p *Process) wait() {
	p.waitErr = p.Cmd.Wait()
	close(p.done)
}

// Pid returns the shell's process id.
func (p *Process) Pid() int { return p.Cmd.Process.Pid }

// Done is closed once the shell has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitErr returns the shell's exit status once Done is closed.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Close kills the shell and releases the daemon's pipe ends.
func (p *Process) Close() error {
	select {
	case <-p.done:
	default:
		p.Cmd.Process.Kill() //nolint:errcheck
	}
	p.Stdin.Close()
	return p.Stdout.Close()
}
