// Package search runs the full phrase-to-results pipeline: classification,
// category dispatch to the catalog client, scoring, and ranked emission.
//
// Results are produced as a cancellable, single-pass lazy sequence
// ([iter.Seq]): candidates are pulled from the catalog client one at a time,
// scored, and yielded as soon as they clear the threshold. Stopping the
// range (or cancelling the context) between emissions aborts the enumeration
// — the only cancellation semantic the pipeline supports.
//
// Failures never propagate to the consumer. A failing search category
// contributes zero candidates and the sequence simply ends; the host
// framework surfaces an empty sequence as "no results".
package search

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/hollowbeak/bandshell/internal/classify"
	"github.com/hollowbeak/bandshell/internal/observe"
	"github.com/hollowbeak/bandshell/internal/score"
	"github.com/hollowbeak/bandshell/pkg/media"
	"github.com/hollowbeak/bandshell/pkg/provider/catalog"
)

// Config tunes the search pipeline.
type Config struct {
	// MinScore is the suppression threshold in confidence points [0, 100].
	// Candidates whose fuzzy score falls below it are never emitted.
	// Default: 50.
	MinScore int

	// UseCache enables the phrase-keyed result cache.
	UseCache bool

	// CacheDir overrides the XDG cache location. Empty uses the default.
	CacheDir string

	// MaxArtists bounds how many artist candidates are scored per search.
	// One artist expands into its whole discography, so the default is 1.
	MaxArtists int

	// MaxAlbums bounds album candidates per search. Default: 1.
	MaxAlbums int

	// MaxTracks bounds track candidates per search. Default: 3.
	MaxTracks int
}

func (c *Config) applyDefaults() {
	if c.MinScore <= 0 {
		c.MinScore = 50
	}
	if c.MaxArtists <= 0 {
		c.MaxArtists = 1
	}
	if c.MaxAlbums <= 0 {
		c.MaxAlbums = 1
	}
	if c.MaxTracks <= 0 {
		c.MaxTracks = 3
	}
}

// Engine is the search pipeline. Safe for concurrent use: per-invocation
// state lives in the scoring pass, and the cache tolerates a single consumer
// per engine (lost updates cost a repeat search, nothing more).
type Engine struct {
	provider   catalog.Provider
	classifier *classify.Classifier
	cfg        Config
	minScore   atomic.Int64
	metrics    *observe.Metrics
	cache      *Cache
}

// Option is a functional option for [New].
type Option func(*Engine)

// WithMetrics attaches metric instruments to the engine.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCache injects a result cache, overriding the Config.UseCache wiring.
// Used by tests to avoid touching the real XDG cache directory.
func WithCache(c *Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New creates a search engine over the given catalog provider and classifier.
func New(provider catalog.Provider, classifier *classify.Classifier, cfg Config, opts ...Option) (*Engine, error) {
	cfg.applyDefaults()
	e := &Engine{
		provider:   provider,
		classifier: classifier,
		cfg:        cfg,
	}
	e.minScore.Store(int64(cfg.MinScore))
	for _, o := range opts {
		o(e)
	}
	if e.cache == nil && cfg.UseCache {
		c, err := OpenCache(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		e.cache = c
	}
	return e, nil
}

// SetMinScore changes the suppression threshold for subsequent searches.
// Values outside [0, 100] are clamped. Used by config hot reload.
func (e *Engine) SetMinScore(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	e.minScore.Store(int64(v))
}

// Search classifies phrase and returns the ranked results as a lazy,
// single-pass sequence. The sequence is not restartable; call Search again
// to re-run. Cancelling ctx stops the enumeration between emissions.
func (e *Engine) Search(ctx context.Context, phrase string, hint media.Type) iter.Seq[media.Result] {
	return func(yield func(media.Result) bool) {
		cls := e.classifier.Classify(phrase, hint)
		category := cls.Category.String()

		ctx, span := observe.StartSpan(ctx, "search",
			trace.WithAttributes(
				observe.Attr("category", category),
				observe.Attr("media_type", string(hint)),
			),
		)
		defer span.End()

		start := time.Now()
		if e.metrics != nil {
			e.metrics.ActiveSearches.Add(ctx, 1)
			defer func() {
				e.metrics.ActiveSearches.Add(ctx, -1)
				e.metrics.SearchDuration.Record(ctx, time.Since(start).Seconds(),
					metric.WithAttributes(attribute.String("category", category)))
			}()
		}

		key := category + ":" + cls.Cleaned
		if e.cache != nil {
			if cached, hit := e.cache.Get(key); hit {
				if e.metrics != nil {
					e.metrics.RecordSearchRequest(ctx, category, "cache")
				}
				for _, r := range cached {
					if ctx.Err() != nil || !yield(r) {
						return
					}
				}
				return
			}
		}
		if e.metrics != nil {
			e.metrics.RecordSearchRequest(ctx, category, "live")
		}

		observe.Logger(ctx).Info("search: running",
			"category", category,
			"query", cls.Cleaned,
			"explicit", cls.Explicit,
		)

		pass := score.NewPass(e.provider, cls, hint, float64(e.minScore.Load())/100)

		var emitted []media.Result
		completed := true
		sink := func(r media.Result) bool {
			emitted = append(emitted, r)
			if e.metrics != nil {
				e.metrics.ResultsEmitted.Add(ctx, 1,
					metric.WithAttributes(attribute.String("playback", string(r.Playback))))
			}
			if !yield(r) {
				completed = false
				return false
			}
			return true
		}

		e.dispatch(ctx, pass, cls, sink)

		// Only a fully drained, uncancelled pass is worth remembering:
		// a partial listing would be replayed as if it were complete.
		if e.cache != nil && completed && ctx.Err() == nil {
			e.cache.Put(key, emitted)
		}
	}
}

// dispatch invokes the catalog operation matching the classification.
func (e *Engine) dispatch(ctx context.Context, pass *score.Pass, cls classify.Classification, sink func(media.Result) bool) {
	query := cls.Cleaned

	switch cls.Category {
	case classify.Artist:
		runCategory(ctx, e, pass, "artists", e.provider.SearchArtists(ctx, query), e.cfg.MaxArtists, sink)

	case classify.Album, classify.AlbumByArtist:
		runCategory(ctx, e, pass, "albums", e.provider.SearchAlbums(ctx, query), e.cfg.MaxAlbums, sink)

	case classify.TrackInAlbum:
		// "track number N from album Y" searches the album and picks the
		// N-th track; a plain track-in-album phrase is a track search with
		// the album gate armed.
		if cls.Fields[classify.FieldOrdinal] != "" {
			runCategory(ctx, e, pass, "albums", e.provider.SearchAlbums(ctx, cls.Fields[classify.FieldAlbum]), e.cfg.MaxAlbums, sink)
			return
		}
		runCategory(ctx, e, pass, "tracks", e.provider.SearchTracks(ctx, query), e.cfg.MaxTracks, sink)

	case classify.Track, classify.TrackByArtist, classify.TrackInAlbumByArtist:
		runCategory(ctx, e, pass, "tracks", e.provider.SearchTracks(ctx, query), e.cfg.MaxTracks, sink)

	case classify.Tag:
		runCategory(ctx, e, pass, "tag", e.provider.SearchTag(ctx, classify.NormalizeTag(query)), e.cfg.MaxTracks, sink)

	default:
		runCategory(ctx, e, pass, "mixed", e.provider.Search(ctx, query), e.cfg.MaxTracks, sink)
	}
}

// runCategory drains up to limit candidates from one catalog operation,
// scores them, and feeds results to sink. A client error ends the category
// with a warning; the enumeration degrades to however many results were
// already emitted.
func runCategory[T catalog.Match](ctx context.Context, e *Engine, pass *score.Pass, op string, seq iter.Seq2[T, error], limit int, sink func(media.Result) bool) {
	ordinal := 0
	for m, err := range Take(seq, limit) {
		if err != nil {
			// Cancellation and not-found endings are expected; only genuine
			// client failures count toward the error metric.
			if score.IsDropError(err) {
				observe.Logger(ctx).Debug("search: category ended",
					"operation", op,
					"err", err,
				)
				return
			}
			observe.Logger(ctx).Warn("search: category failed",
				"operation", op,
				"err", err,
			)
			if e.metrics != nil {
				e.metrics.RecordCatalogError(ctx, op)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if e.metrics != nil {
			e.metrics.CandidatesScored.Add(ctx, 1)
		}
		for _, r := range pass.Results(ctx, m, ordinal) {
			if ctx.Err() != nil {
				return
			}
			if !sink(r) {
				return
			}
		}
		ordinal++
	}
}
