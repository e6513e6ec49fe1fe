// Package app wires all Bandshell subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context is cancelled, and Shutdown
// tears everything down in order.
//
// For testing, inject doubles via functional options (WithProvider,
// WithEngine). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/hollowbeak/bandshell/internal/classify"
	"github.com/hollowbeak/bandshell/internal/config"
	"github.com/hollowbeak/bandshell/internal/health"
	"github.com/hollowbeak/bandshell/internal/observe"
	"github.com/hollowbeak/bandshell/internal/resilience"
	"github.com/hollowbeak/bandshell/internal/search"
	"github.com/hollowbeak/bandshell/internal/vocab"
	"github.com/hollowbeak/bandshell/pkg/provider/catalog"
	"github.com/hollowbeak/bandshell/pkg/provider/catalog/bandcamp"
)

// tagFetchTimeout bounds the startup fetch of the catalog tag list.
const tagFetchTimeout = 10 * time.Second

// App owns all subsystem lifetimes for the Bandshell service.
type App struct {
	cfg *config.Config

	provider catalog.Provider
	guard    *resilience.Guard
	engine   *search.Engine
	metrics  *observe.Metrics
	server   *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithProvider injects a catalog provider instead of creating the real
// scraper client from config. The circuit breaker guard still wraps it.
func WithProvider(p catalog.Provider) Option {
	return func(a *App) { a.provider = p }
}

// WithMetrics injects metric instruments. When absent, New uses
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together: the catalog client
// behind its circuit breaker, the vocabulary and classifier, the search
// engine, and the HTTP server.
//
// New fetches the catalog tag list synchronously so the classifier can
// validate tag phrases; an unreachable catalog degrades tag classification
// rather than failing startup.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if a.provider == nil {
		client := a.buildClient()
		a.provider = client
		a.closers = append(a.closers, func() error {
			client.CloseIdleConnections()
			return nil
		})
	}
	a.guard = resilience.NewGuard(a.provider, resilience.CircuitBreakerConfig{
		Name:         "catalog",
		MaxFailures:  cfg.Catalog.Breaker.MaxFailures,
		ResetTimeout: cfg.Catalog.Breaker.ResetTimeout,
		HalfOpenMax:  cfg.Catalog.Breaker.HalfOpenMax,
	}, resilience.WithObserver(a.recordCatalogCall))

	classifier, err := a.buildClassifier(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: init classifier: %w", err)
	}

	engine, err := search.New(a.guard, classifier, search.Config{
		MinScore:   cfg.Search.MinScore,
		UseCache:   cfg.Search.UseCache,
		CacheDir:   cfg.Search.CacheDir,
		MaxArtists: cfg.Search.MaxArtists,
		MaxAlbums:  cfg.Search.MaxAlbums,
		MaxTracks:  cfg.Search.MaxTracks,
	}, search.WithMetrics(a.metrics))
	if err != nil {
		return nil, fmt.Errorf("app: init search engine: %w", err)
	}
	a.engine = engine

	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// recordCatalogCall feeds one guarded catalog operation into the latency
// histogram.
func (a *App) recordCatalogCall(op string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	a.metrics.CatalogRequestDuration.Record(context.Background(), elapsed.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("status", status),
		))
}

// buildClient constructs the catalog scraper client from config.
func (a *App) buildClient() *bandcamp.Client {
	var opts []bandcamp.Option
	if a.cfg.Catalog.BaseURL != "" {
		opts = append(opts, bandcamp.WithBaseURL(a.cfg.Catalog.BaseURL))
	}
	if a.cfg.Catalog.Timeout > 0 {
		opts = append(opts, bandcamp.WithTimeout(a.cfg.Catalog.Timeout))
	}
	if a.cfg.Catalog.UserAgent != "" {
		opts = append(opts, bandcamp.WithUserAgent(a.cfg.Catalog.UserAgent))
	}
	return bandcamp.New(opts...)
}

// buildClassifier loads the vocabulary and known tags.
func (a *App) buildClassifier(ctx context.Context) (*classify.Classifier, error) {
	voc := vocab.Default()
	if a.cfg.Vocab.Dir != "" {
		loaded, err := vocab.Load(a.cfg.Vocab.Dir)
		if err != nil {
			return nil, err
		}
		voc = loaded
	}

	tagCtx, cancel := context.WithTimeout(ctx, tagFetchTimeout)
	defer cancel()
	tags, err := a.guard.Tags(tagCtx)
	if err != nil {
		// Without the tag list, tag phrases fall back to a generic search.
		slog.Warn("app: catalog tag list unavailable", "err", err)
	}

	return classify.New(voc, tags), nil
}

// Engine exposes the search engine, mainly for config hot reload.
func (a *App) Engine() *search.Engine {
	return a.engine
}

// ApplyDiff applies hot-reloadable config changes.
func (a *App) ApplyDiff(d config.Diff) {
	if d.MinScoreChanged {
		a.engine.SetMinScore(d.NewMinScore)
		slog.Info("app: min score updated", "min_score", d.NewMinScore)
	}
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("app: listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// routes builds the HTTP mux with observability middleware applied.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /search", a.handleSearch)
	mux.HandleFunc("GET /search/ws", a.handleSearchWS)
	mux.Handle("GET /metrics", metricsHandler())

	health.New(
		health.CatalogChecker(a.guard),
		health.BreakerChecker(a.guard.Breaker()),
	).Register(mux)

	return observe.Middleware(a.metrics)(mux)
}

// Shutdown tears down subsystems in order. It respects the context deadline:
// if ctx expires before all closers finish, remaining closers are skipped and
// the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("app: shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("app: shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("app: closer error", "index", i, "err", err)
			}
		}

		slog.Info("app: shutdown complete")
	})
	return shutdownErr
}
