// Package supervisor owns the server child process: it starts it, relays
// termination signals to it and reports how it ended.
package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/mbrock/gemini-launch/internal/eventlog"
	"github.com/mbrock/gemini-launch/internal/executor"
)

var (
	// ErrRunning is returned when a child is already being supervised.
	ErrRunning = errors.New("server process already running")
	// ErrWait is returned when a started child could not be waited for.
	ErrWait = errors.New("wait for server")
)

// Notifier reports service state to a process manager.
type Notifier interface {
	Notify(state string) error
}

// SystemdNotifier sends sd_notify messages. Outside systemd it does nothing.
type SystemdNotifier struct{}

func (SystemdNotifier) Notify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

// Result describes how supervision ended.
type Result struct {
	// ExitCode is the child's exit code, or 0 when a signal was relayed.
	ExitCode int
	// Signal is the termination signal that was relayed, if any.
	Signal os.Signal
}

// Supervisor runs exactly one child process at a time.
type Supervisor struct {
	Exec     executor.Executor
	Events   eventlog.EventLog
	Notifier Notifier

	// CredentialSource is recorded with the started event.
	CredentialSource string

	// Signals delivers termination requests. Nil means Run registers for
	// os.Interrupt and SIGTERM itself.
	Signals <-chan os.Signal

	mu    sync.Mutex
	child executor.Process
}

type waitResult struct {
	code int
	err  error
}

// Run starts the child and blocks until it exits or a termination signal
// arrives. On a signal the child is asked to terminate and Run returns
// without waiting for it.
//
// A start failure returns an error with ExitCode 1, and so does a failure
// to wait for a started child (wrapping ErrWait). A child exiting non-zero
// is not an error; its code is in the Result.
func (s *Supervisor) Run(spec executor.Spec) (Result, error) {
	sigs := s.Signals
	if sigs == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigs = ch
	}

	proc, err := s.start(spec)
	if err != nil {
		return Result{ExitCode: 1}, err
	}
	defer s.release()

	pid := proc.Pid()
	slog.Debug("server started", "pid", pid, "command", spec.Command)
	s.emit(eventlog.EmitStarted(s.events(), spec.Command, pid, s.CredentialSource))
	s.notify(daemon.SdNotifyReady)

	done := make(chan waitResult, 1)
	go func() {
		code, err := proc.Wait()
		done <- waitResult{code: code, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return Result{ExitCode: 1}, fmt.Errorf("%w: %w", ErrWait, r.err)
		}
		slog.Debug("server exited", "pid", pid, "code", r.code)
		s.emit(eventlog.EmitExited(s.events(), spec.Command, pid, r.code))
		return Result{ExitCode: r.code}, nil

	case sig := <-sigs:
		slog.Debug("relaying termination", "pid", pid, "signal", sig)
		s.notify(daemon.SdNotifyStopping)
		s.emit(eventlog.EmitSignal(s.events(), pid, sig.String()))
		if err := proc.Terminate(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			slog.Warn("could not terminate server", "pid", pid, "error", err)
		}
		return Result{Signal: sig}, nil
	}
}

// Running reports whether a child is currently owned by the supervisor.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.child != nil
}

func (s *Supervisor) start(spec executor.Spec) (executor.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.child != nil {
		return nil, ErrRunning
	}

	proc, err := s.Exec.Start(spec)
	if err != nil {
		if proc != nil {
			if kerr := proc.Terminate(); kerr != nil {
				slog.Warn("could not terminate partially started server", "error", kerr)
			}
		}
		return nil, err
	}
	s.child = proc
	return proc, nil
}

func (s *Supervisor) release() {
	s.mu.Lock()
	s.child = nil
	s.mu.Unlock()
}

func (s *Supervisor) events() eventlog.EventLog {
	if s.Events == nil {
		return eventlog.Discard{}
	}
	return s.Events
}

func (s *Supervisor) emit(err error) {
	if err != nil {
		slog.Debug("event log write failed", "error", err)
	}
}

func (s *Supervisor) notify(state string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(state); err != nil {
		slog.Debug("sd_notify failed", "state", state, "error", err)
	}
}
