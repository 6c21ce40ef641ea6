// Package config loads the optional on-disk defaults looplift reads
// before a scan or lift run: default chunk size, default dry-run
// behavior, and log verbosity. The file is optional JSONC (JSON with //
// and /* */ comments), parsed permissively with tailscale/hujson before
// being unmarshalled, and, when absent, every field falls back to its
// built-in default. Flags always override config values; config values
// always override these defaults.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/gaby/looplift/internal/errs"
)

// Config holds looplift's optional on-disk defaults.
type Config struct {
	ChunkSizeBytes uint64 `json:"chunk_size_bytes,omitempty"`
	DryRunDefault  bool   `json:"dry_run_default,omitempty"`
	Verbose        bool   `json:"verbose,omitempty"`
}

// Default returns the built-in configuration used when no file exists.
func Default() Config {
	return Config{ChunkSizeBytes: 128 * 1024}
}

// DirName is the subdirectory this tool's config file lives under,
// relative to $XDG_CONFIG_HOME or ~/.config.
const DirName = "looplift"

// FileName is the config file's name within DirName.
const FileName = "config.json"

// Path returns the resolved path to the config file: $XDG_CONFIG_HOME/
// looplift/config.json if XDG_CONFIG_HOME is set, else ~/.config/looplift/
// config.json. Returns an empty string if neither can be determined.
func Path() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, DirName, FileName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", DirName, FileName)
}

// Load reads and parses the config file at path, overlaying it onto
// Default(). A missing file is not an error: Default() is returned
// unchanged. An explicit empty path is a no-op too, used when Path()
// could not resolve a home directory.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, errs.WrapIO(err, "config: reading %s", path)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, errs.Preconditionf("config: %s is not valid JSONC: %w", path, err)
	}

	if err := json.Unmarshal(standard, &cfg); err != nil {
		return Config{}, errs.Preconditionf("config: %s does not match the config schema: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errs.Preconditionf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the loaded fields: an explicit chunk_size_bytes of zero
// is rejected.
func (c Config) Validate() error {
	if c.ChunkSizeBytes == 0 {
		return errs.Preconditionf("chunk_size_bytes must be positive")
	}
	return nil
}

// defaultFileContents is written by WriteDefault, documenting every field
// with a JSONC comment so a user editing the file understands it without
// consulting documentation elsewhere.
const defaultFileContents = `{
  // Bytes streamed per read/write/fingerprint chunk. Not part of the
  // report format: fingerprints do not depend on the chunk size, so scan
  // and lift may use different values.
  "chunk_size_bytes": 131072,

  // Whether "lift" defaults to dry-run when --dry-run is not passed.
  "dry_run_default": false,

  // Whether to log at increased verbosity by default.
  "verbose": false
}
`

// WriteDefault atomically writes a commented default config file to
// path, creating its parent directory if necessary. Used by
// "lift --init-config".
func WriteDefault(path string) error {
	if path == "" {
		return errs.Preconditionf("config: cannot write default config, no path resolved")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.WrapIO(err, "config: creating config directory for %s", path)
	}
	if err := atomic.WriteFile(path, strings.NewReader(defaultFileContents)); err != nil {
		return errs.WrapIO(err, "config: writing default config to %s", path)
	}
	return nil
}
