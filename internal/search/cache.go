package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/hollowbeak/bandshell/pkg/media"
)

// cacheFileName is the cache file path relative to the XDG cache home.
const cacheFileName = "bandshell/search.json"

// Cache is a phrase-keyed store of past search results, persisted as a
// single JSON file in the user's XDG cache directory.
//
// It deliberately mirrors the plain JSON search-history store this skill has
// always used: no eviction, no size bound, and no concurrency guard beyond a
// single consumer — the search pipeline runs one enumeration at a time per
// engine, and a lost update costs only a repeat search.
type Cache struct {
	path    string
	entries map[string][]media.Result
}

// OpenCache loads the cache file at dir (or the default XDG location when
// dir is empty). A missing file yields an empty cache; a corrupt file is
// discarded with a warning rather than failing the engine.
func OpenCache(dir string) (*Cache, error) {
	var path string
	if dir != "" {
		path = filepath.Join(dir, "search.json")
	} else {
		var err error
		path, err = xdg.CacheFile(cacheFileName)
		if err != nil {
			return nil, fmt.Errorf("search: locate cache file: %w", err)
		}
	}

	c := &Cache{
		path:    path,
		entries: make(map[string][]media.Result),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search: read cache %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &c.entries); err != nil {
		slog.Warn("search: discarding corrupt cache file", "path", path, "err", err)
		c.entries = make(map[string][]media.Result)
	}
	return c, nil
}

// Get returns the cached results for key, and whether the key was present.
// A present key with zero results is a valid (negative) cache entry.
func (c *Cache) Get(key string) ([]media.Result, bool) {
	results, ok := c.entries[key]
	return results, ok
}

// Put records results under key and persists the store. Persistence failures
// are logged, not returned: a cache that cannot be written only costs future
// repeat searches.
func (c *Cache) Put(key string, results []media.Result) {
	c.entries[key] = results

	raw, err := json.Marshal(c.entries)
	if err != nil {
		slog.Warn("search: encode cache", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		slog.Warn("search: create cache dir", "path", c.path, "err", err)
		return
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		slog.Warn("search: write cache", "path", c.path, "err", err)
	}
}
