package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listen_addr: ":9000"
  log_level: debug
search:
  min_score: 65
  use_cache: false
  max_tracks: 5
catalog:
  base_url: "https://bandcamp.com"
  timeout: 15s
  breaker:
    max_failures: 4
    reset_timeout: 1m
`

func TestLoadFromReaderValid(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Search.MinScore != 65 {
		t.Errorf("min_score = %d", cfg.Search.MinScore)
	}
	if cfg.Search.UseCache {
		t.Error("use_cache = true, want false")
	}
	if cfg.Search.MaxTracks != 5 {
		t.Errorf("max_tracks = %d", cfg.Search.MaxTracks)
	}
	if cfg.Catalog.Timeout != 15*time.Second {
		t.Errorf("timeout = %s", cfg.Catalog.Timeout)
	}
	if cfg.Catalog.Breaker.ResetTimeout != time.Minute {
		t.Errorf("breaker.reset_timeout = %s", cfg.Catalog.Breaker.ResetTimeout)
	}
}

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(`server: {log_level: warn}`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	// Omitted sections keep the built-in defaults.
	if cfg.Search.MinScore != 50 {
		t.Errorf("min_score default = %d, want 50", cfg.Search.MinScore)
	}
	// The result cache is opt-in; an omitted key must leave it off.
	if cfg.Search.UseCache {
		t.Error("use_cache default = true, want false")
	}
	if cfg.Search.MaxTracks != 3 || cfg.Search.MaxAlbums != 1 || cfg.Search.MaxArtists != 1 {
		t.Errorf("candidate limits = %d/%d/%d, want 3/1/1",
			cfg.Search.MaxTracks, cfg.Search.MaxAlbums, cfg.Search.MaxArtists)
	}
	if cfg.Server.ListenAddr != ":8337" {
		t.Errorf("listen_addr default = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogWarn {
		t.Errorf("log_level = %q, want warn", cfg.Server.LogLevel)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader(`server: {listne_addr: ":1"}`))
	if err == nil {
		t.Fatal("want error for misspelled field")
	}
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad log level",
			yaml: `server: {log_level: verbose}`,
			want: "server.log_level",
		},
		{
			name: "min score over 100",
			yaml: `search: {min_score: 150}`,
			want: "search.min_score",
		},
		{
			name: "negative max tracks",
			yaml: `search: {max_tracks: -1}`,
			want: "search.max_tracks",
		},
		{
			name: "relative base url",
			yaml: `catalog: {base_url: "bandcamp.com"}`,
			want: "catalog.base_url",
		},
		{
			name: "negative timeout",
			yaml: `catalog: {timeout: -5s}`,
			want: "catalog.timeout",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadFromReader(strings.NewReader(tc.yaml))
			if err == nil {
				t.Fatal("want validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateJoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadFromReader(strings.NewReader(`
server: {log_level: loud}
search: {min_score: -3}
`))
	if err == nil {
		t.Fatal("want validation error")
	}
	for _, want := range []string{"server.log_level", "search.min_score"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q does not mention %q", err, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("want error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want wrapped fs.ErrNotExist", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bandshell.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.MinScore != 65 {
		t.Errorf("min_score = %d", cfg.Search.MinScore)
	}
}

func TestLogLevelSlog(t *testing.T) {
	t.Parallel()

	if got := LogDebug.Slog().String(); got != "DEBUG" {
		t.Errorf("debug maps to %s", got)
	}
	if got := LogLevel("").Slog().String(); got != "INFO" {
		t.Errorf("empty maps to %s, want INFO", got)
	}
}
