// Package observe provides application-wide observability primitives for
// Bandshell: OpenTelemetry metrics, tracing, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Bandshell metrics.
const meterName = "github.com/hollowbeak/bandshell"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SearchDuration tracks end-to-end search latency (classification,
	// catalog calls, scoring, emission). Use with attribute:
	//   attribute.String("category", ...)
	SearchDuration metric.Float64Histogram

	// CatalogRequestDuration tracks catalog client call latency. Use with
	// attributes:
	//   attribute.String("operation", ...), attribute.String("status", ...)
	CatalogRequestDuration metric.Float64Histogram

	// --- Counters ---

	// SearchRequests counts search invocations. Use with attributes:
	//   attribute.String("category", ...), attribute.String("source", "live"|"cache")
	SearchRequests metric.Int64Counter

	// CandidatesScored counts raw catalog matches fed to the scorer.
	CandidatesScored metric.Int64Counter

	// ResultsEmitted counts results that cleared the confidence threshold.
	// Use with attribute: attribute.String("playback", "audio"|"playlist")
	ResultsEmitted metric.Int64Counter

	// --- Error counters ---

	// CatalogErrors counts catalog client failures. Use with attribute:
	//   attribute.String("operation", ...)
	CatalogErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSearches tracks the number of in-flight search enumerations.
	ActiveSearches metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for scraping-bound search latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SearchDuration, err = m.Float64Histogram("bandshell.search.duration",
		metric.WithDescription("End-to-end search latency by category."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CatalogRequestDuration, err = m.Float64Histogram("bandshell.catalog.request.duration",
		metric.WithDescription("Catalog client call latency by operation and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.SearchRequests, err = m.Int64Counter("bandshell.search.requests",
		metric.WithDescription("Total search invocations by category and source."),
	); err != nil {
		return nil, err
	}
	if met.CandidatesScored, err = m.Int64Counter("bandshell.score.candidates",
		metric.WithDescription("Total raw catalog matches fed to the scorer."),
	); err != nil {
		return nil, err
	}
	if met.ResultsEmitted, err = m.Int64Counter("bandshell.score.emitted",
		metric.WithDescription("Total results that cleared the confidence threshold."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.CatalogErrors, err = m.Int64Counter("bandshell.catalog.errors",
		metric.WithDescription("Total catalog client failures by operation."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSearches, err = m.Int64UpDownCounter("bandshell.active_searches",
		metric.WithDescription("Number of in-flight search enumerations."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("bandshell.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCatalogError increments the catalog error counter for one operation.
func (m *Metrics) RecordCatalogError(ctx context.Context, operation string) {
	m.CatalogErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordSearchRequest increments the search request counter.
func (m *Metrics) RecordSearchRequest(ctx context.Context, category, source string) {
	m.SearchRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("source", source),
	))
}
