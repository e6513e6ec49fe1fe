package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const sampleTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func newMiddlewareHarness(t *testing.T, next http.Handler) (http.Handler, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}
	return Middleware(m)(next), reader
}

func TestMiddlewarePropagatesCorrelationID(t *testing.T) {
	t.Parallel()

	h, _ := newMiddlewareHarness(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("traceparent", sampleTraceParent)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	// The incoming trace ID becomes the correlation header.
	if got := rec.Header().Get("X-Correlation-ID"); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("X-Correlation-ID = %q", got)
	}
}

func TestMiddlewareRecordsDuration(t *testing.T) {
	t.Parallel()

	h, reader := newMiddlewareHarness(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			if met.Name == "bandshell.http.request.duration" {
				found = true
			}
		}
	}
	if !found {
		t.Error("request duration histogram not recorded")
	}
}

func TestCorrelationIDWithoutSpan(t *testing.T) {
	t.Parallel()

	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID = %q, want empty", got)
	}
}

func TestLoggerNeverNil(t *testing.T) {
	t.Parallel()

	if Logger(context.Background()) == nil {
		t.Error("Logger returned nil")
	}
}
