package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, overlaid on [Default], and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Search
	if cfg.Search.MinScore < 0 || cfg.Search.MinScore > 100 {
		errs = append(errs, fmt.Errorf("search.min_score %d is out of range [0, 100]", cfg.Search.MinScore))
	}
	if cfg.Search.MaxTracks < 0 {
		errs = append(errs, fmt.Errorf("search.max_tracks %d must not be negative", cfg.Search.MaxTracks))
	}
	if cfg.Search.MaxAlbums < 0 {
		errs = append(errs, fmt.Errorf("search.max_albums %d must not be negative", cfg.Search.MaxAlbums))
	}
	if cfg.Search.MaxArtists < 0 {
		errs = append(errs, fmt.Errorf("search.max_artists %d must not be negative", cfg.Search.MaxArtists))
	}

	// Catalog
	if cfg.Catalog.BaseURL != "" {
		u, err := url.Parse(cfg.Catalog.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("catalog.base_url %q is not an absolute URL", cfg.Catalog.BaseURL))
		}
	}
	if cfg.Catalog.Timeout < 0 {
		errs = append(errs, fmt.Errorf("catalog.timeout %s must not be negative", cfg.Catalog.Timeout))
	}
	if cfg.Catalog.Breaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("catalog.breaker.max_failures %d must not be negative", cfg.Catalog.Breaker.MaxFailures))
	}
	if cfg.Catalog.Breaker.ResetTimeout < 0 {
		errs = append(errs, fmt.Errorf("catalog.breaker.reset_timeout %s must not be negative", cfg.Catalog.Breaker.ResetTimeout))
	}
	if cfg.Catalog.Breaker.HalfOpenMax < 0 {
		errs = append(errs, fmt.Errorf("catalog.breaker.half_open_max %d must not be negative", cfg.Catalog.Breaker.HalfOpenMax))
	}

	// Vocab
	if cfg.Vocab.Dir != "" {
		info, err := os.Stat(cfg.Vocab.Dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("vocab.dir %q: %w", cfg.Vocab.Dir, err))
		} else if !info.IsDir() {
			errs = append(errs, fmt.Errorf("vocab.dir %q is not a directory", cfg.Vocab.Dir))
		}
	}

	return errors.Join(errs...)
}
