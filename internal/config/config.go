// Package config holds gemini-launch's settings.
//
// Values are layered: built-in defaults, then an optional gemini-launch.yaml
// in the launch directory, then environment variables. Command-line flags are
// applied on top by the entry point.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file looked up in the launch directory.
const FileName = "gemini-launch.yaml"

// Config is the launch configuration.
type Config struct {
	// Dir is the launch directory. It is resolved before the file layer is
	// read and is never taken from the file itself.
	Dir string `yaml:"-"`

	Runtime     string   `yaml:"runtime" env:"GEMINI_LAUNCH_RUNTIME"`
	RuntimeArgs []string `yaml:"runtime_args" env:"GEMINI_LAUNCH_RUNTIME_ARGS" envSeparator:" "`
	Installer   string   `yaml:"installer" env:"GEMINI_LAUNCH_INSTALLER"`
	InstallArgs []string `yaml:"install_args" env:"GEMINI_LAUNCH_INSTALL_ARGS" envSeparator:" "`

	// DepsDir marks installed dependencies; the installer runs when it is missing.
	DepsDir string `yaml:"deps_dir" env:"GEMINI_LAUNCH_DEPS_DIR"`
	// VerifyDeps additionally checks package.json dependencies against DepsDir.
	VerifyDeps bool `yaml:"verify_deps" env:"GEMINI_LAUNCH_VERIFY_DEPS"`

	// EntryPoints are candidate scripts; the first one that exists is run.
	EntryPoints []string `yaml:"entry_points" env:"GEMINI_LAUNCH_ENTRY_POINTS" envSeparator:","`

	CredentialVar string `yaml:"credential_var" env:"GEMINI_LAUNCH_CREDENTIAL_VAR"`
	EnvFile       string `yaml:"env_file" env:"GEMINI_LAUNCH_ENV_FILE"`
	KeyFile       string `yaml:"key_file" env:"GEMINI_LAUNCH_KEY_FILE"`

	Debug   bool `yaml:"debug" env:"GEMINI_LAUNCH_DEBUG"`
	NoColor bool `yaml:"no_color" env:"GEMINI_LAUNCH_NO_COLOR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Runtime:       "node",
		Installer:     "npm",
		InstallArgs:   []string{"install"},
		DepsDir:       "node_modules",
		EntryPoints:   []string{"run-mcp.js", "server/simple_mcp_server.js"},
		CredentialVar: "GEMINI_API_KEY",
		EnvFile:       ".env",
		KeyFile:       "geminikey.txt",
	}
}

// Load builds the configuration for dir from defaults, the optional
// configuration file and the environment.
func Load(dir string) (Config, error) {
	cfg := Default()
	cfg.Dir = dir

	if err := LoadFile(filepath.Join(dir, FileName), &cfg); err != nil {
		return Config{}, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path into cfg. A missing file is not an error.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
// Variables that are unset leave the existing value alone.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("launch directory is empty")
	}
	if c.Runtime == "" {
		return fmt.Errorf("runtime command is empty")
	}
	if c.Installer == "" {
		return fmt.Errorf("installer command is empty")
	}
	if len(c.EntryPoints) == 0 {
		return fmt.Errorf("no entry points configured")
	}
	if c.CredentialVar == "" || strings.ContainsAny(c.CredentialVar, "= \t") {
		return fmt.Errorf("invalid credential variable name %q", c.CredentialVar)
	}

	paths := map[string]string{
		"deps_dir": c.DepsDir,
		"env_file": c.EnvFile,
		"key_file": c.KeyFile,
	}
	for i, p := range c.EntryPoints {
		paths[fmt.Sprintf("entry_points[%d]", i)] = p
	}
	for name, p := range paths {
		if p == "" || RelPath(p) == "." {
			return fmt.Errorf("%s must name a file or directory inside the launch directory", name)
		}
		if !fs.ValidPath(RelPath(p)) {
			return fmt.Errorf("%s: %q must be a path relative to the launch directory", name, p)
		}
	}
	return nil
}

// RelPath converts a configured relative path to the slash-separated form
// used with fs.FS.
func RelPath(p string) string {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return p
	}
	return path.Clean(filepath.ToSlash(p))
}
