package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetricsCreatesAllInstruments(t *testing.T) {
	t.Parallel()

	mp := sdkmetric.NewMeterProvider()
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	if m.SearchDuration == nil || m.CatalogRequestDuration == nil ||
		m.SearchRequests == nil || m.CandidatesScored == nil ||
		m.ResultsEmitted == nil || m.CatalogErrors == nil ||
		m.ActiveSearches == nil || m.HTTPRequestDuration == nil {
		t.Error("instrument left nil")
	}
}

func TestRecordHelpers(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	m.RecordSearchRequest(ctx, "track", "live")
	m.RecordSearchRequest(ctx, "track", "cache")
	m.RecordCatalogError(ctx, "tracks")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	names := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			names[met.Name] = true
		}
	}
	for _, want := range []string{"bandshell.search.requests", "bandshell.catalog.errors"} {
		if !names[want] {
			t.Errorf("metric %q not collected; have %v", want, names)
		}
	}
}

func TestDefaultMetricsIsStable(t *testing.T) {
	t.Parallel()

	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
