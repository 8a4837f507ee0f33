// gemini-launch - start the Gemini MCP server
//
// Usage:
//
//	gemini-launch [flags] [-- server args...]
//
// The launcher checks that Node.js is installed, finds GEMINI_API_KEY in the
// environment, .env or geminikey.txt, runs npm install when node_modules is
// missing and then runs the server script, relaying Ctrl-C and SIGTERM to it.
// It exits with the server's exit code.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mbrock/gemini-launch/internal/config"
	"github.com/mbrock/gemini-launch/internal/console"
	"github.com/mbrock/gemini-launch/internal/dirs"
	"github.com/mbrock/gemini-launch/internal/eventlog"
	"github.com/mbrock/gemini-launch/internal/executor"
	"github.com/mbrock/gemini-launch/internal/launcher"
	"github.com/mbrock/gemini-launch/internal/supervisor"
	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("gemini-launch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dirFlag := fs.String("dir", "", "Launch directory (default: directory of this executable; overrides GEMINI_LAUNCH_DIR)")
	runtimeFlag := fs.String("runtime", "", "Runtime command used for the version check and the server (default: node)")
	installerFlag := fs.String("installer", "", "Dependency installer command (default: npm)")
	verifyDepsFlag := fs.Bool("verify-deps", false, "Reinstall when package.json lists dependencies missing from node_modules")
	debugFlag := fs.BoolP("debug", "v", false, "Enable debug logging")
	noColorFlag := fs.Bool("no-color", false, "Disable colored output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `gemini-launch - start the Gemini MCP server

Usage:
  gemini-launch [flags] [-- server args...]

Settings are read from %s in the launch directory, then
GEMINI_LAUNCH_* environment variables, then flags.

Flags:
`, config.FileName)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	dir, err := launchDir(*dirFlag)
	if err != nil {
		return fatal(stderr, "resolving launch directory: %v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return fatal(stderr, "%v", err)
	}
	if fs.Changed("runtime") {
		cfg.Runtime = *runtimeFlag
	}
	if fs.Changed("installer") {
		cfg.Installer = *installerFlag
	}
	if fs.Changed("verify-deps") {
		cfg.VerifyDeps = *verifyDepsFlag
	}
	if fs.Changed("debug") {
		cfg.Debug = *debugFlag
	}
	if fs.Changed("no-color") {
		cfg.NoColor = *noColorFlag
	}

	// Configure slog level from config
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel})))

	if err := cfg.Validate(); err != nil {
		return fatal(stderr, "invalid configuration: %v", err)
	}
	slog.Debug("configuration loaded", "dir", cfg.Dir, "runtime", cfg.Runtime, "entry_points", cfg.EntryPoints)

	out := console.New(stdout, cfg.NoColor)
	l := &launcher.Launcher{
		Config:    cfg,
		Exec:      executor.Default(),
		Console:   out,
		Events:    eventlog.Open(),
		Notifier:  supervisor.SystemdNotifier{},
		ExtraArgs: fs.Args(),
		Stdin:     os.Stdin,
		Stdout:    stdout,
		Stderr:    stderr,
	}

	code, err := l.Run()
	if err != nil {
		fatal(stderr, "%v", err)
	}
	return code
}

func launchDir(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	return dirs.LaunchDir()
}

// fatal prints an error line to w and returns exit code 1.
func fatal(w io.Writer, format string, args ...any) int {
	fmt.Fprintf(w, "error: "+format+"\n", args...)
	return 1
}
