// Package catalog defines the music-catalog search client interface consumed
// by the Bandshell search pipeline, along with the match records it returns.
//
// A Provider is a network-bound client for one music publishing site. All
// search operations return lazily-produced, single-pass sequences: the site
// paginates results, and callers frequently stop after the first usable hit,
// so eagerly draining every page would waste round trips. Restarting a
// sequence means re-invoking the search.
//
// Implementations live in subpackages (bandcamp for the real scraper client,
// mock for tests).
package catalog

import (
	"context"
	"errors"
	"iter"
)

// ErrNotFound is returned by StreamURL and AlbumDetails when the referenced
// page exists but carries no resolvable payload (e.g. a track page without a
// streamable file).
var ErrNotFound = errors.New("catalog: not found")

// Provider is a search client for one music catalog site.
//
// Every operation may be slow (network-bound) and may fail. Sequence-returning
// operations report failures through the second element of the pair: a non-nil
// error terminates the sequence. All operations honour context cancellation.
type Provider interface {
	// Search runs a mixed-kind search and yields matches of any kind in the
	// order the catalog ranks them.
	Search(ctx context.Context, query string) iter.Seq2[Match, error]

	// SearchArtists yields artist matches for query.
	SearchArtists(ctx context.Context, query string) iter.Seq2[*ArtistMatch, error]

	// SearchAlbums yields album matches for query.
	SearchAlbums(ctx context.Context, query string) iter.Seq2[*AlbumMatch, error]

	// SearchTracks yields track matches for query.
	SearchTracks(ctx context.Context, query string) iter.Seq2[*TrackMatch, error]

	// SearchTag yields tracks filed under the given tag (normalised
	// lowercase, hyphen-separated).
	SearchTag(ctx context.Context, tag string) iter.Seq2[*TrackMatch, error]

	// StreamURL resolves the playable stream for a track page URL.
	// Returns ErrNotFound when the page has no streamable file.
	StreamURL(ctx context.Context, pageURL string) (string, error)

	// AlbumDetails fetches the full record (tracklist included) for an album
	// known only as a summary, e.g. one listed on an artist's discography.
	AlbumDetails(ctx context.Context, albumURL string) (*AlbumMatch, error)

	// Tags returns the catalog's recognised tag names. Implementations may
	// cache the list; it changes rarely.
	Tags(ctx context.Context) ([]string, error)
}
