// Package executor provides an abstraction for starting processes.
package executor

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
)

// Spec describes a process to start.
type Spec struct {
	// Command is the program followed by its arguments.
	Command []string
	// Dir is the working directory. Empty means the caller's directory.
	Dir string
	// Env is the complete environment. Nil inherits the caller's environment.
	Env []string

	// Nil streams are connected to the null device.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Process represents a running process.
type Process interface {
	// Pid returns the operating system process id, or 0 if unknown.
	Pid() int
	// Wait blocks until the process exits and returns the exit code.
	// A process that ran and exited non-zero is not an error.
	Wait() (exitCode int, err error)
	// Terminate asks the process to stop using the platform's
	// termination request.
	Terminate() error
	// Kill stops the process immediately.
	Kill() error
}

// Executor starts processes.
type Executor interface {
	// Start starts the process described by spec.
	//
	// An implementation may return a non-nil Process together with an error
	// when the process was created but could not be fully set up. The caller
	// owns that process and must stop it.
	Start(spec Spec) (Process, error)
}

// Run starts spec and waits for it to exit.
func Run(e Executor, spec Spec) (int, error) {
	p, err := e.Start(spec)
	if err != nil {
		if p != nil {
			_ = p.Kill()
		}
		return 1, err
	}
	return p.Wait()
}

// ExecExecutor is the default Executor that uses os/exec.
type ExecExecutor struct{}

// execProcess wraps exec.Cmd to implement Process.
type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Report death by signal the way shells do.
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				return 128 + int(ws.Signal()), nil
			}
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}

func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	return terminate(p.cmd.Process)
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Start implements Executor.Start using os/exec.
func (e *ExecExecutor) Start(spec Spec) (Process, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &execProcess{cmd: cmd}, nil
}

// Default returns the default ExecExecutor.
func Default() Executor {
	return &ExecExecutor{}
}
