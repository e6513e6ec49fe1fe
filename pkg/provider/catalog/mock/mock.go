// Package mock provides a test double for the catalog.Provider interface.
//
// Populate the match slices and canned responses, then inspect the recorded
// calls to verify which operations the pipeline invoked.
//
// Example:
//
//	p := &mock.Provider{
//	    Artists: []*catalog.ArtistMatch{{Name: "Compressorhead"}},
//	    Streams: map[string]string{"https://x/track/a": "https://cdn/a.mp3"},
//	}
package mock

import (
	"context"
	"iter"
	"sync"

	"github.com/hollowbeak/bandshell/pkg/provider/catalog"
)

// Compile-time interface assertion.
var _ catalog.Provider = (*Provider)(nil)

// Provider is a mock implementation of catalog.Provider.
type Provider struct {
	mu sync.Mutex

	// Mixed is yielded by Search.
	Mixed []catalog.Match

	// Artists is yielded by SearchArtists.
	Artists []*catalog.ArtistMatch

	// Albums is yielded by SearchAlbums.
	Albums []*catalog.AlbumMatch

	// Tracks is yielded by SearchTracks.
	Tracks []*catalog.TrackMatch

	// TagTracks is yielded by SearchTag, keyed by tag name.
	TagTracks map[string][]*catalog.TrackMatch

	// Streams maps page URLs to stream URLs for StreamURL. Missing entries
	// resolve to catalog.ErrNotFound.
	Streams map[string]string

	// AlbumPages maps album URLs to full album records for AlbumDetails.
	AlbumPages map[string]*catalog.AlbumMatch

	// TagList is returned by Tags.
	TagList []string

	// SearchErr, if non-nil, terminates every search sequence immediately.
	SearchErr error

	// StreamErr, if non-nil, is returned by every StreamURL call.
	StreamErr error

	// TagsErr, if non-nil, is returned by Tags.
	TagsErr error

	// SearchCalls records the queries passed to the search operations, in
	// order, prefixed with the operation name (e.g. "tracks:astronaut").
	SearchCalls []string

	// StreamCalls records the page URLs passed to StreamURL.
	StreamCalls []string
}

func (p *Provider) record(call *[]string, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*call = append(*call, value)
}

// Search yields the configured Mixed matches.
func (p *Provider) Search(_ context.Context, query string) iter.Seq2[catalog.Match, error] {
	p.record(&p.SearchCalls, "mixed:"+query)
	return seqOf(p.Mixed, p.SearchErr)
}

// SearchArtists yields the configured Artists.
func (p *Provider) SearchArtists(_ context.Context, query string) iter.Seq2[*catalog.ArtistMatch, error] {
	p.record(&p.SearchCalls, "artists:"+query)
	return seqOf(p.Artists, p.SearchErr)
}

// SearchAlbums yields the configured Albums.
func (p *Provider) SearchAlbums(_ context.Context, query string) iter.Seq2[*catalog.AlbumMatch, error] {
	p.record(&p.SearchCalls, "albums:"+query)
	return seqOf(p.Albums, p.SearchErr)
}

// SearchTracks yields the configured Tracks.
func (p *Provider) SearchTracks(_ context.Context, query string) iter.Seq2[*catalog.TrackMatch, error] {
	p.record(&p.SearchCalls, "tracks:"+query)
	return seqOf(p.Tracks, p.SearchErr)
}

// SearchTag yields the configured TagTracks entry for tag.
func (p *Provider) SearchTag(_ context.Context, tag string) iter.Seq2[*catalog.TrackMatch, error] {
	p.record(&p.SearchCalls, "tag:"+tag)
	return seqOf(p.TagTracks[tag], p.SearchErr)
}

// StreamURL resolves from the Streams map.
func (p *Provider) StreamURL(_ context.Context, pageURL string) (string, error) {
	p.record(&p.StreamCalls, pageURL)
	if p.StreamErr != nil {
		return "", p.StreamErr
	}
	stream, ok := p.Streams[pageURL]
	if !ok {
		return "", catalog.ErrNotFound
	}
	return stream, nil
}

// AlbumDetails resolves from the AlbumPages map.
func (p *Provider) AlbumDetails(_ context.Context, albumURL string) (*catalog.AlbumMatch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	album, ok := p.AlbumPages[albumURL]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return album, nil
}

// Tags returns TagList, TagsErr.
func (p *Provider) Tags(context.Context) ([]string, error) {
	return p.TagList, p.TagsErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SearchCalls = nil
	p.StreamCalls = nil
}

// seqOf yields the elements of items, or terminates immediately with err.
func seqOf[T any](items []T, err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}
