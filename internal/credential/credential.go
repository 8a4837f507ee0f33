// Package credential resolves the API key handed to the server process.
//
// Sources are consulted in a fixed order: the environment variable, then a
// dotenv-style file, then a plain key file. The first source that yields a
// non-empty value wins and later sources are never read.
package credential

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
)

// Source identifies where a credential came from.
type Source int

const (
	SourceNone Source = iota
	SourceEnv
	SourceEnvFile
	SourceKeyFile
)

func (s Source) String() string {
	switch s {
	case SourceEnv:
		return "environment"
	case SourceEnvFile:
		return "env-file"
	case SourceKeyFile:
		return "key-file"
	default:
		return "none"
	}
}

// MinPlausibleLength is the shortest key that does not trigger a warning.
const MinPlausibleLength = 30

// Credential is a resolved API key and its origin.
// An empty Value with SourceNone means simulation mode.
type Credential struct {
	Value  string
	Source Source
}

// Found reports whether any source yielded a value.
func (c Credential) Found() bool {
	return c.Source != SourceNone
}

// Plausible reports whether the key is long enough to be a real API key.
func (c Credential) Plausible() bool {
	return len(c.Value) >= MinPlausibleLength
}

// Masked returns the key with everything after the first 8 characters hidden.
func (c Credential) Masked() string {
	if len(c.Value) <= 8 {
		return "***"
	}
	return c.Value[:8] + "***"
}

// Resolver looks up a credential.
type Resolver struct {
	// Var is the environment variable and dotenv key, e.g. GEMINI_API_KEY.
	Var string
	// FS is rooted at the launch directory.
	FS fs.FS
	// EnvFile and KeyFile are slash-separated paths within FS.
	EnvFile string
	KeyFile string
	// Getenv reads the environment.
	Getenv func(string) string
}

// Resolve walks the sources in order. Unreadable files are logged and
// treated as absent.
func (r *Resolver) Resolve() Credential {
	if v := r.Getenv(r.Var); v != "" {
		return Credential{Value: v, Source: SourceEnv}
	}

	if r.EnvFile != "" {
		if v := r.fromEnvFile(); v != "" {
			return Credential{Value: v, Source: SourceEnvFile}
		}
	}

	if r.KeyFile != "" {
		if v := r.fromKeyFile(); v != "" {
			return Credential{Value: v, Source: SourceKeyFile}
		}
	}

	return Credential{Source: SourceNone}
}

func (r *Resolver) fromEnvFile() string {
	data, ok := r.read(r.EnvFile)
	if !ok {
		return ""
	}
	return LookupDotenv(data, r.Var)
}

func (r *Resolver) fromKeyFile() string {
	data, ok := r.read(r.KeyFile)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (r *Resolver) read(name string) ([]byte, bool) {
	data, err := fs.ReadFile(r.FS, name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("credential file unreadable", "file", name, "error", err)
		}
		return nil, false
	}
	return data, true
}

// LookupDotenv returns the value of the first line beginning with key=,
// taking everything after the first '=' and trimming surrounding space.
// Later lines with the same key are ignored, even if the first is empty.
// Lines may be of any length.
func LookupDotenv(data []byte, key string) string {
	prefix := []byte(key + "=")
	for line := range bytes.Lines(data) {
		if value, ok := bytes.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(string(value))
		}
	}
	return ""
}
