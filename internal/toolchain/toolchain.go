// Package toolchain prepares the runtime the server process needs: it checks
// the runtime is installed, installs dependencies and picks the script to run.
package toolchain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mbrock/gemini-launch/internal/executor"
)

// RuntimeInstallURL is where users are sent when the runtime is missing.
const RuntimeInstallURL = "https://nodejs.org/"

// PackageManifest lists the dependencies checked by MissingDeps.
const PackageManifest = "package.json"

// Toolchain runs runtime and installer commands in the launch directory.
type Toolchain struct {
	Exec executor.Executor
	// FS is rooted at Dir.
	FS  fs.FS
	Dir string
	// Env is passed to every command. Nil inherits the launcher's environment.
	Env []string

	Runtime     string
	Installer   string
	InstallArgs []string
	DepsDir     string

	// Installer output goes here. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// RuntimeVersion runs "<runtime> --version" and returns its trimmed output.
// An error means the runtime is unusable: not found or a non-zero exit.
func (t *Toolchain) RuntimeVersion() (string, error) {
	var out bytes.Buffer
	code, err := executor.Run(t.Exec, executor.Spec{
		Command: []string{t.Runtime, "--version"},
		Dir:     t.Dir,
		Env:     t.Env,
		Stdout:  &out,
	})
	if err != nil {
		return "", fmt.Errorf("run %s --version: %w", t.Runtime, err)
	}
	if code != 0 {
		return "", fmt.Errorf("%s --version exited with code %d", t.Runtime, code)
	}
	return strings.TrimSpace(out.String()), nil
}

// DepsInstalled reports whether the dependency directory exists.
func (t *Toolchain) DepsInstalled() bool {
	info, err := fs.Stat(t.FS, t.DepsDir)
	return err == nil && info.IsDir()
}

// MissingDeps lists the package.json dependencies that have no directory
// under DepsDir. A missing manifest means nothing is missing.
func (t *Toolchain) MissingDeps() ([]string, error) {
	data, err := fs.ReadFile(t.FS, PackageManifest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", PackageManifest, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parse %s: invalid JSON", PackageManifest)
	}

	var missing []string
	gjson.GetBytes(data, "dependencies").ForEach(func(name, _ gjson.Result) bool {
		info, err := fs.Stat(t.FS, path.Join(t.DepsDir, name.String()))
		if err != nil || !info.IsDir() {
			missing = append(missing, name.String())
		}
		return true
	})
	sort.Strings(missing)
	return missing, nil
}

// Install runs the installer synchronously. A non-zero exit is an error.
func (t *Toolchain) Install() error {
	cmd := append([]string{t.Installer}, t.InstallArgs...)
	code, err := executor.Run(t.Exec, executor.Spec{
		Command: cmd,
		Dir:     t.Dir,
		Env:     t.Env,
		Stdout:  t.Stdout,
		Stderr:  t.Stderr,
	})
	if err != nil {
		return fmt.Errorf("run %s: %w", strings.Join(cmd, " "), err)
	}
	if code != 0 {
		return fmt.Errorf("%s exited with code %d", strings.Join(cmd, " "), code)
	}
	return nil
}

// EnsureDeps installs dependencies when DepsDir is absent, or, with verify
// set, when package.json names a dependency that is not installed.
// It reports whether the installer ran.
func (t *Toolchain) EnsureDeps(verify bool) (bool, error) {
	if !t.DepsInstalled() {
		slog.Debug("dependency directory missing", "dir", t.DepsDir)
		return true, t.Install()
	}
	if !verify {
		return false, nil
	}

	missing, err := t.MissingDeps()
	if err != nil {
		return false, err
	}
	if len(missing) == 0 {
		return false, nil
	}
	slog.Info("dependencies missing, reinstalling", "missing", missing)
	return true, t.Install()
}

// SelectEntryPoint returns the first candidate that exists as a file in fsys.
// When none exists it returns the last candidate and false; running it then
// fails in the runtime with its own diagnostics.
func SelectEntryPoint(fsys fs.FS, candidates []string) (string, bool) {
	for _, c := range candidates {
		info, err := fs.Stat(fsys, c)
		if err == nil && !info.IsDir() {
			return c, true
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[len(candidates)-1], false
}
