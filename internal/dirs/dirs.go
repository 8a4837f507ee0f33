// Package dirs resolves the directory gemini-launch works in.
// Every relative lookup (credential files, dependencies, entry scripts)
// is made against it.
package dirs

import (
	"os"
	"path/filepath"
)

// EnvLaunchDir overrides the launch directory.
const EnvLaunchDir = "GEMINI_LAUNCH_DIR"

// LaunchDir returns the directory the launcher operates in.
// Priority: $GEMINI_LAUNCH_DIR > directory of the running executable > working directory
func LaunchDir() (string, error) {
	if v := os.Getenv(EnvLaunchDir); v != "" {
		return filepath.Abs(v)
	}

	if dir, err := ExecutableDir(); err == nil {
		return dir, nil
	}

	return os.Getwd()
}

// ExecutableDir returns the directory containing the running executable,
// with symlinks resolved so a linked binary finds its real install tree.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
