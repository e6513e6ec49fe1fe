package resilience

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/hollowbeak/bandshell/pkg/provider/catalog"
)

// ObserveFunc receives the outcome of one guarded catalog operation: the
// operation name, how long it ran, and its terminal error (nil on success,
// [ErrCircuitOpen] when the breaker rejected it).
type ObserveFunc func(operation string, elapsed time.Duration, err error)

// Guard decorates a [catalog.Provider] with a shared [CircuitBreaker]: every
// network operation counts toward the same failure budget, and while the
// breaker is open every operation fails fast with [ErrCircuitOpen] instead of
// waiting out an HTTP timeout against an unreachable site.
type Guard struct {
	inner   catalog.Provider
	breaker *CircuitBreaker
	observe ObserveFunc
}

var _ catalog.Provider = (*Guard)(nil)

// GuardOption is a functional option for [NewGuard].
type GuardOption func(*Guard)

// WithObserver registers fn to be called after every guarded operation.
// Used to feed catalog latency metrics without coupling the breaker to an
// instrumentation stack.
func WithObserver(fn ObserveFunc) GuardOption {
	return func(g *Guard) { g.observe = fn }
}

// NewGuard wraps provider with a breaker configured by cfg.
func NewGuard(provider catalog.Provider, cfg CircuitBreakerConfig, opts ...GuardOption) *Guard {
	if cfg.Name == "" {
		cfg.Name = "catalog"
	}
	g := &Guard{
		inner:   provider,
		breaker: NewCircuitBreaker(cfg),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Breaker exposes the underlying breaker for health reporting.
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}

// record reports one finished operation to the observer, when set.
func (g *Guard) record(op string, start time.Time, err error) {
	if g.observe != nil {
		g.observe(op, time.Since(start), err)
	}
}

// guardSeq runs one whole sequence enumeration as a single breaker call. The
// enumeration stays lazy (elements reach the consumer as the inner client
// produces them); only its outcome is accounted: a terminating error trips
// the failure counter, a drained or abandoned enumeration counts as success.
// When the breaker is open the sequence yields exactly one ErrCircuitOpen.
func guardSeq[T any](g *Guard, op string, seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		start := time.Now()
		err := g.breaker.Execute(func() error {
			for v, err := range seq {
				if err != nil {
					yield(v, err)
					return err
				}
				if !yield(v, nil) {
					return nil
				}
			}
			return nil
		})
		g.record(op, start, err)
		if errors.Is(err, ErrCircuitOpen) {
			var zero T
			yield(zero, ErrCircuitOpen)
		}
	}
}

func (g *Guard) Search(ctx context.Context, query string) iter.Seq2[catalog.Match, error] {
	return guardSeq(g, "search", g.inner.Search(ctx, query))
}

func (g *Guard) SearchArtists(ctx context.Context, query string) iter.Seq2[*catalog.ArtistMatch, error] {
	return guardSeq(g, "search_artists", g.inner.SearchArtists(ctx, query))
}

func (g *Guard) SearchAlbums(ctx context.Context, query string) iter.Seq2[*catalog.AlbumMatch, error] {
	return guardSeq(g, "search_albums", g.inner.SearchAlbums(ctx, query))
}

func (g *Guard) SearchTracks(ctx context.Context, query string) iter.Seq2[*catalog.TrackMatch, error] {
	return guardSeq(g, "search_tracks", g.inner.SearchTracks(ctx, query))
}

func (g *Guard) SearchTag(ctx context.Context, tag string) iter.Seq2[*catalog.TrackMatch, error] {
	return guardSeq(g, "search_tag", g.inner.SearchTag(ctx, tag))
}

func (g *Guard) StreamURL(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()
	var url string
	err := g.breaker.Execute(func() error {
		var err error
		url, err = g.inner.StreamURL(ctx, pageURL)
		// A track without a streamable file is a valid answer, not a site
		// failure; it must not trip the breaker.
		if errors.Is(err, catalog.ErrNotFound) {
			url = ""
			return nil
		}
		return err
	})
	g.record("stream_url", start, err)
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", catalog.ErrNotFound
	}
	return url, nil
}

func (g *Guard) AlbumDetails(ctx context.Context, albumURL string) (*catalog.AlbumMatch, error) {
	start := time.Now()
	var album *catalog.AlbumMatch
	err := g.breaker.Execute(func() error {
		var err error
		album, err = g.inner.AlbumDetails(ctx, albumURL)
		if errors.Is(err, catalog.ErrNotFound) {
			album = nil
			return nil
		}
		return err
	})
	g.record("album_details", start, err)
	if err != nil {
		return nil, err
	}
	if album == nil {
		return nil, catalog.ErrNotFound
	}
	return album, nil
}

func (g *Guard) Tags(ctx context.Context) ([]string, error) {
	start := time.Now()
	var tags []string
	err := g.breaker.Execute(func() error {
		var err error
		tags, err = g.inner.Tags(ctx)
		return err
	})
	g.record("tags", start, err)
	if err != nil {
		return nil, err
	}
	return tags, nil
}
