// Package launcher runs the startup sequence for the Gemini MCP server:
// check the runtime, resolve the API key, install dependencies, pick the
// entry script and supervise the server until it exits.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mbrock/gemini-launch/internal/config"
	"github.com/mbrock/gemini-launch/internal/console"
	"github.com/mbrock/gemini-launch/internal/credential"
	"github.com/mbrock/gemini-launch/internal/eventlog"
	"github.com/mbrock/gemini-launch/internal/executor"
	"github.com/mbrock/gemini-launch/internal/supervisor"
	"github.com/mbrock/gemini-launch/internal/toolchain"
)

// Startup failures. Each one ends the launcher with exit code 1.
var (
	ErrMissingRuntime    = errors.New("runtime not available")
	ErrDependencyInstall = errors.New("dependency install failed")
	ErrSpawn             = errors.New("could not start server")
)

// Title is printed as the banner.
const Title = "Gemini MCP Server"

// Launcher holds everything the startup sequence touches.
type Launcher struct {
	Config   config.Config
	Exec     executor.Executor
	Console  *console.Printer
	Events   eventlog.EventLog
	Notifier supervisor.Notifier

	// Signals delivers termination requests. Nil registers for
	// os.Interrupt and SIGTERM.
	Signals <-chan os.Signal

	// Environ returns the launcher's environment. Nil means os.Environ.
	Environ func() []string

	// ExtraArgs are appended to the server command line.
	ExtraArgs []string

	// Standard streams shared with the installer and the server.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Plan is the resolved launch configuration.
type Plan struct {
	Dir            string
	RuntimeVersion string
	Credential     credential.Credential
	// Entry is the selected script, relative to Dir.
	Entry string
	Spec  executor.Spec
}

// Run performs the whole startup sequence and supervises the server.
// It returns the exit code the launcher should end with; err is non-nil
// only for launcher failures, never for a server exiting non-zero.
func (l *Launcher) Run() (int, error) {
	plan, err := l.Prepare()
	if err != nil {
		return 1, err
	}

	l.console().Info("\nStarting %s...\n", Title)

	sup := &supervisor.Supervisor{
		Exec:             l.Exec,
		Events:           l.Events,
		Notifier:         l.Notifier,
		CredentialSource: plan.Credential.Source.String(),
		Signals:          l.Signals,
	}
	res, err := sup.Run(plan.Spec)
	if errors.Is(err, supervisor.ErrWait) {
		return 1, err
	}
	if err != nil {
		return 1, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	if res.Signal != nil {
		l.console().Info("\nShutting down server...")
		return 0, nil
	}
	if res.ExitCode != 0 {
		l.console().Info("\nServer exited with code %d", res.ExitCode)
	}
	return res.ExitCode, nil
}

// Prepare runs every step up to, but not including, starting the server.
func (l *Launcher) Prepare() (*Plan, error) {
	cfg := l.Config
	out := l.console()
	env := l.environ()
	fsys := os.DirFS(cfg.Dir)

	out.Banner(Title)

	tc := &toolchain.Toolchain{
		Exec:        l.Exec,
		FS:          fsys,
		Dir:         cfg.Dir,
		Env:         env,
		Runtime:     cfg.Runtime,
		Installer:   cfg.Installer,
		InstallArgs: cfg.InstallArgs,
		DepsDir:     config.RelPath(cfg.DepsDir),
		Stdout:      l.Stdout,
		Stderr:      l.Stderr,
	}

	version, err := tc.RuntimeVersion()
	if err != nil {
		out.Error("%s is not installed or not in PATH", cfg.Runtime)
		out.Info("Please install Node.js from %s", toolchain.RuntimeInstallURL)
		return nil, fmt.Errorf("%w: %w", ErrMissingRuntime, err)
	}
	out.OK("%s is installed (%s)", cfg.Runtime, version)

	cred := l.resolveCredential(fsys, env)

	if !tc.DepsInstalled() {
		out.Info("Installing dependencies...")
	}
	installed, err := tc.EnsureDeps(cfg.VerifyDeps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDependencyInstall, err)
	}
	if installed {
		out.OK("Dependencies installed successfully")
	} else {
		out.OK("Dependencies already installed")
	}

	candidates := make([]string, len(cfg.EntryPoints))
	for i, p := range cfg.EntryPoints {
		candidates[i] = config.RelPath(p)
	}
	entry, ok := toolchain.SelectEntryPoint(fsys, candidates)
	if !ok {
		out.Warn("No entry script found; trying %s", entry)
	}
	slog.Debug("entry point selected", "entry", entry, "found", ok)

	command := append([]string{cfg.Runtime}, cfg.RuntimeArgs...)
	command = append(command, filepath.Join(cfg.Dir, filepath.FromSlash(entry)))
	command = append(command, l.ExtraArgs...)

	return &Plan{
		Dir:            cfg.Dir,
		RuntimeVersion: version,
		Credential:     cred,
		Entry:          entry,
		Spec: executor.Spec{
			Command: command,
			Dir:     cfg.Dir,
			Env:     ChildEnv(env, cfg.CredentialVar, cred.Value),
			Stdin:   l.Stdin,
			Stdout:  l.Stdout,
			Stderr:  l.Stderr,
		},
	}, nil
}

func (l *Launcher) resolveCredential(fsys fs.FS, env []string) credential.Credential {
	cfg := l.Config
	out := l.console()

	r := &credential.Resolver{
		Var:     cfg.CredentialVar,
		FS:      fsys,
		EnvFile: config.RelPath(cfg.EnvFile),
		KeyFile: config.RelPath(cfg.KeyFile),
		Getenv:  func(key string) string { return lookupEnv(env, key) },
	}
	cred := r.Resolve()

	switch cred.Source {
	case credential.SourceNone:
		out.Warn("No Gemini API key found!")
		out.Info("Server will run in simulation mode.\n")
		return cred
	case credential.SourceEnvFile:
		out.OK("API key found in %s file", cfg.EnvFile)
	case credential.SourceKeyFile:
		out.OK("API key found in %s file", cfg.KeyFile)
	}
	out.OK("Using API key: %s", cred.Masked())
	if !cred.Plausible() {
		out.Warn("API key looks invalid (too short); the server may not reach the Gemini API")
	}
	return cred
}

func (l *Launcher) console() *console.Printer {
	if l.Console == nil {
		l.Console = console.Plain(io.Discard)
	}
	return l.Console
}

func (l *Launcher) environ() []string {
	if l.Environ == nil {
		return os.Environ()
	}
	return l.Environ()
}

// ChildEnv returns base with key set to value, replacing any earlier
// definitions of key.
func ChildEnv(base []string, key, value string) []string {
	out := make([]string, 0, len(base)+1)
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if sameEnvName(name, key) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, key+"="+value)
}

func lookupEnv(env []string, key string) string {
	value := ""
	for _, kv := range env {
		name, v, ok := strings.Cut(kv, "=")
		if ok && sameEnvName(name, key) {
			value = v
		}
	}
	return value
}

// Environment variable names are case-insensitive on Windows.
func sameEnvName(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
