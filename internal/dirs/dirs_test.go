package dirs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLaunchDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLaunchDir, dir)

	got, err := LaunchDir()
	if err != nil {
		t.Fatalf("LaunchDir: %v", err)
	}
	if got != dir {
		t.Errorf("LaunchDir() = %q, want %q", got, dir)
	}
}

func TestLaunchDirRelativeOverrideIsAbsolute(t *testing.T) {
	t.Setenv(EnvLaunchDir, "relative/dir")

	got, err := LaunchDir()
	if err != nil {
		t.Fatalf("LaunchDir: %v", err)
	}
	if !filepath.IsAbs(got) {
		t.Errorf("LaunchDir() = %q, want absolute path", got)
	}
}

func TestLaunchDirDefaultsToExecutableDir(t *testing.T) {
	t.Setenv(EnvLaunchDir, "")

	got, err := LaunchDir()
	if err != nil {
		t.Fatalf("LaunchDir: %v", err)
	}
	want, err := ExecutableDir()
	if err != nil {
		t.Fatalf("ExecutableDir: %v", err)
	}
	if got != want {
		t.Errorf("LaunchDir() = %q, want %q", got, want)
	}

	exe, _ := os.Executable()
	exe, _ = filepath.EvalSymlinks(exe)
	if filepath.Dir(exe) != want {
		t.Errorf("ExecutableDir() = %q, want dir of %q", want, exe)
	}
}
