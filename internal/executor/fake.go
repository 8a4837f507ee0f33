package executor

import (
	"context"
	"fmt"
	"sync"
)

// FakeCommand is a function that simulates a command execution.
// It receives the full spec and should return an exit code.
// The context is cancelled when the process is terminated or killed.
type FakeCommand func(ctx context.Context, spec Spec) int

// FakeExecutor is a test implementation of Executor that runs registered fake commands.
type FakeExecutor struct {
	mu       sync.RWMutex
	commands map[string]FakeCommand
	failures map[string]error
	started  []Spec
	procs    []*FakeProcess
}

// NewFakeExecutor creates a new FakeExecutor.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{
		commands: make(map[string]FakeCommand),
		failures: make(map[string]error),
	}
}

// RegisterCommand registers a fake command implementation.
// The name should match the first element of the command slice.
func (e *FakeExecutor) RegisterCommand(name string, handler FakeCommand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands[name] = handler
}

// FailAfterStart makes Start launch the named command and then report err,
// returning the started process alongside it.
func (e *FakeExecutor) FailAfterStart(name string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[name] = err
}

// Started returns the specs of every command that was started, in order.
func (e *FakeExecutor) Started() []Spec {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Spec(nil), e.started...)
}

// Processes returns every process started so far, in order.
func (e *FakeExecutor) Processes() []*FakeProcess {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*FakeProcess(nil), e.procs...)
}

// FakeProcess implements Process for FakeExecutor.
type FakeProcess struct {
	pid    int
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	exitCode   int
	terminated bool
	killed     bool
}

func (p *FakeProcess) Pid() int { return p.pid }

func (p *FakeProcess) Wait() (int, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, nil
}

func (p *FakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
	p.cancel()
	return nil
}

func (p *FakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.cancel()
	return nil
}

// Terminated reports whether Terminate was called.
func (p *FakeProcess) Terminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// Killed reports whether Kill was called.
func (p *FakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// Start implements Executor.Start for FakeExecutor.
func (e *FakeExecutor) Start(spec Spec) (Process, error) {
	if len(spec.Command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	e.mu.Lock()
	handler, ok := e.commands[spec.Command[0]]
	failure := e.failures[spec.Command[0]]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("exec: %q: executable file not found in $PATH", spec.Command[0])
	}
	ctx, cancel := context.WithCancel(context.Background())
	proc := &FakeProcess{
		pid:    1000 + len(e.procs),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.started = append(e.started, spec)
	e.procs = append(e.procs, proc)
	e.mu.Unlock()

	go func() {
		exitCode := handler(ctx, spec)
		proc.mu.Lock()
		proc.exitCode = exitCode
		proc.mu.Unlock()
		close(proc.done)
	}()

	if failure != nil {
		return proc, failure
	}
	return proc, nil
}
