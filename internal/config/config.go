// Package config provides the configuration schema, loader, and file watcher
// for the Bandshell search service.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity for the Bandshell server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l to the corresponding [slog.Level]. Unrecognised or empty
// values map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure for Bandshell.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Search  SearchConfig  `yaml:"search"`
	Catalog CatalogConfig `yaml:"catalog"`
	Vocab   VocabConfig   `yaml:"vocab"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8337").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// SearchConfig tunes the search pipeline.
type SearchConfig struct {
	// MinScore is the confidence threshold in [0, 100] below which fuzzy
	// matches are suppressed. Zero means the default of 50.
	MinScore int `yaml:"min_score"`

	// UseCache enables the phrase-keyed result cache in the XDG cache
	// directory.
	UseCache bool `yaml:"use_cache"`

	// CacheDir overrides the cache location. Empty uses the XDG default.
	CacheDir string `yaml:"cache_dir"`

	// MaxTracks bounds how many track candidates are scored per search.
	// Zero means the default of 3.
	MaxTracks int `yaml:"max_tracks"`

	// MaxAlbums bounds album candidates per search. Zero means 1.
	MaxAlbums int `yaml:"max_albums"`

	// MaxArtists bounds artist candidates per search. One artist expands
	// into its whole discography, so the default is 1.
	MaxArtists int `yaml:"max_artists"`
}

// CatalogConfig configures the catalog site client.
type CatalogConfig struct {
	// BaseURL overrides the catalog site root. Empty uses the client's
	// built-in default.
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each catalog HTTP request. Zero means the client
	// default.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent overrides the User-Agent header sent to the catalog site.
	UserAgent string `yaml:"user_agent"`

	// Breaker tunes the circuit breaker guarding the client.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the catalog circuit breaker. Zero values mean the
// breaker defaults.
type BreakerConfig struct {
	// MaxFailures is the consecutive-failure count that opens the breaker.
	MaxFailures int `yaml:"max_failures"`

	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// HalfOpenMax is the probe budget in the half-open state.
	HalfOpenMax int `yaml:"half_open_max"`
}

// VocabConfig locates the intent vocabulary resources.
type VocabConfig struct {
	// Dir points at a directory of vocabulary YAML overrides. Empty uses
	// the embedded defaults.
	Dir string `yaml:"dir"`
}

// Default returns a config with the built-in defaults applied. Loading a file
// overlays onto these values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8337",
			LogLevel:   LogInfo,
		},
		Search: SearchConfig{
			MinScore:   50,
			MaxTracks:  3,
			MaxAlbums:  1,
			MaxArtists: 1,
		},
	}
}
