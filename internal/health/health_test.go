package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hollowbeak/bandshell/internal/resilience"
	"github.com/hollowbeak/bandshell/pkg/provider/catalog/mock"
)

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "broken", Check: func(context.Context) error {
		return errors.New("down")
	}})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyzAllPassing(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "a", Check: func(context.Context) error { return nil }},
		Checker{Name: "b", Check: func(context.Context) error { return nil }},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var res struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Status != "ok" {
		t.Errorf("status field = %q, want %q", res.Status, "ok")
	}
	if res.Checks["a"] != "ok" || res.Checks["b"] != "ok" {
		t.Errorf("checks = %v", res.Checks)
	}
}

func TestReadyzFailingCheck(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "good", Check: func(context.Context) error { return nil }},
		Checker{Name: "bad", Check: func(context.Context) error {
			return errors.New("no route to host")
		}},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var res struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Status != "fail" {
		t.Errorf("status field = %q, want %q", res.Status, "fail")
	}
	if res.Checks["good"] != "ok" {
		t.Errorf("good check = %q", res.Checks["good"])
	}
	if res.Checks["bad"] != "fail: no route to host" {
		t.Errorf("bad check = %q", res.Checks["bad"])
	}
}

func TestCatalogChecker(t *testing.T) {
	t.Parallel()

	ok := CatalogChecker(&mock.Provider{TagList: []string{"metal"}})
	if err := ok.Check(context.Background()); err != nil {
		t.Errorf("healthy catalog: %v", err)
	}

	down := CatalogChecker(&mock.Provider{TagsErr: errors.New("timeout")})
	if err := down.Check(context.Background()); err == nil {
		t.Error("unreachable catalog: want error")
	}
}

func TestBreakerChecker(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  1,
		ResetTimeout: time.Hour,
	})
	check := BreakerChecker(cb)

	if err := check.Check(context.Background()); err != nil {
		t.Errorf("closed breaker: %v", err)
	}

	cb.Execute(func() error { return errors.New("boom") })

	if err := check.Check(context.Background()); err == nil {
		t.Error("open breaker: want error")
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
