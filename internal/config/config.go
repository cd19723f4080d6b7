package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// Config is the top-level configuration for the sync-and-query engine.
type Config struct {
	Index    IndexConfig    `mapstructure:"index"`
	Embedder EmbedderConfig `mapstructure:"embedder"`
}

// IndexConfig controls where the persistent store lives on disk.
type IndexConfig struct {
	Directory string `mapstructure:"directory"`
}

// EmbedderConfig selects and configures the embedding provider.
//
// M, EFConstruction, and EFSearch are accepted here and forwarded into
// store.Config, but the bundled vec0 vector index does not expose HNSW
// tuning knobs and the store neither applies nor records them — they are
// documentation, not live parameters.
type EmbedderConfig struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	Dimension      int    `mapstructure:"dimension"`
	BaseURL        string `mapstructure:"base_url"`
	APIKeyRef      string `mapstructure:"api_key_ref"`
	M              int    `mapstructure:"m"`
	EFConstruction int    `mapstructure:"ef_construction"`
	EFSearch       int    `mapstructure:"ef_search"`
}

// Load reads configuration from path, or from the default discovery
// location if path is empty and that file exists, with HELIX_-prefixed
// environment variable overrides layered on top of in-code defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HELIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, helixerr.Wrapf(err, helixerr.CodeConfigLoadFailure, "reading config %s", path)
		}
	} else if discovered, err := DefaultConfigPath(); err == nil {
		if _, statErr := os.Stat(discovered); statErr == nil {
			v.SetConfigFile(discovered)
			if err := v.ReadInConfig(); err != nil {
				return nil, helixerr.Wrapf(err, helixerr.CodeConfigLoadFailure, "reading config %s", discovered)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeConfigLoadFailure, "unmarshalling config")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, len(errs))
		copy(joined, errs)
		return nil, helixerr.Wrap(helixerr.Join(joined...), helixerr.CodeConfigInvalidValue, "validating config")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err == nil {
		v.SetDefault("index.directory", filepath.Join(home, ".helix", "data", "decisions"))
	}

	v.SetDefault("embedder.provider", "hash")
	v.SetDefault("embedder.model", "sha256-prng")
	v.SetDefault("embedder.dimension", 384)
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.api_key_ref", "")
	v.SetDefault("embedder.m", 16)
	v.SetDefault("embedder.ef_construction", 128)
	v.SetDefault("embedder.ef_search", 64)
}

// Validate checks the configuration for logical errors. It returns a slice
// of all validation errors found, collecting every issue rather than
// stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateIndex()...)
	errs = append(errs, c.validateEmbedder()...)

	return errs
}

func (c *Config) validateIndex() []error {
	var errs []error

	if c.Index.Directory == "" {
		errs = append(errs, helixerr.New(helixerr.CodeConfigInvalidValue, "config: index.directory must not be empty"))
	}

	return errs
}

func (c *Config) validateEmbedder() []error {
	var errs []error

	validProviders := map[string]bool{"hash": true, "openai": true}
	if !validProviders[c.Embedder.Provider] {
		errs = append(errs, helixerr.Errorf(helixerr.CodeConfigInvalidValue,
			"config: embedder.provider must be one of [hash, openai], got %q", c.Embedder.Provider))
	}

	if c.Embedder.Dimension <= 0 {
		errs = append(errs, helixerr.Errorf(helixerr.CodeConfigInvalidValue,
			"config: embedder.dimension must be greater than 0, got %d", c.Embedder.Dimension))
	}

	if c.Embedder.Provider == "openai" && c.Embedder.Model == "" {
		errs = append(errs, helixerr.New(helixerr.CodeConfigInvalidValue,
			"config: embedder.model must not be empty for provider openai"))
	}

	if c.Embedder.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Embedder.BaseURL); err != nil {
			errs = append(errs, helixerr.Wrap(err, helixerr.CodeConfigInvalidValue, "config: embedder.base_url is not a valid URL"))
		}
	}

	return errs
}
