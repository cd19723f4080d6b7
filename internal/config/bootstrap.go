package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

//go:embed helix-decisions.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/helix-decisions/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", helixerr.Wrap(err, helixerr.CodeConfigLoadFailure, "resolving home directory")
	}
	return filepath.Join(home, ".config", "helix-decisions", "config.yaml"), nil
}

// BootstrapConfig writes the default commented config to the discovery path
// if it does not already exist. Returns the path written, or empty string
// if the file already existed or an error occurred — bootstrap is
// non-fatal; a write failure is logged and Load falls back to defaults.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}

	if _, err := os.Stat(cfgPath); err == nil {
		return "" // already exists
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}
