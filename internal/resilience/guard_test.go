package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hollowbeak/bandshell/pkg/provider/catalog"
	"github.com/hollowbeak/bandshell/pkg/provider/catalog/mock"
)

func TestGuardPassesThroughWhenClosed(t *testing.T) {
	t.Parallel()

	inner := &mock.Provider{
		Tracks: []*catalog.TrackMatch{
			{Title: "one", URL: "https://x/track/one"},
			{Title: "two", URL: "https://x/track/two"},
		},
		Streams: map[string]string{"https://x/track/one": "https://cdn/one.mp3"},
	}
	g := NewGuard(inner, CircuitBreakerConfig{})

	var titles []string
	for tr, err := range g.SearchTracks(context.Background(), "anything") {
		if err != nil {
			t.Fatalf("unexpected sequence error: %v", err)
		}
		titles = append(titles, tr.Title)
	}
	if len(titles) != 2 || titles[0] != "one" || titles[1] != "two" {
		t.Fatalf("titles = %v, want [one two]", titles)
	}

	stream, err := g.StreamURL(context.Background(), "https://x/track/one")
	if err != nil {
		t.Fatalf("StreamURL: %v", err)
	}
	if stream != "https://cdn/one.mp3" {
		t.Fatalf("stream = %q", stream)
	}
}

func TestGuardOpensAfterRepeatedSequenceFailures(t *testing.T) {
	t.Parallel()

	inner := &mock.Provider{SearchErr: errors.New("site down")}
	g := NewGuard(inner, CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})

	drain := func() error {
		var last error
		for _, err := range g.SearchTracks(context.Background(), "q") {
			last = err
		}
		return last
	}

	if err := drain(); err == nil {
		t.Fatal("first drain: want error")
	}
	if err := drain(); err == nil {
		t.Fatal("second drain: want error")
	}
	if got := g.Breaker().State(); got != StateOpen {
		t.Fatalf("breaker state = %v, want %v", got, StateOpen)
	}

	// Open breaker: the sequence short-circuits without touching the client.
	inner.Reset()
	if err := drain(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("drain while open = %v, want ErrCircuitOpen", err)
	}
	if len(inner.SearchCalls) != 0 {
		t.Fatalf("inner client was called while breaker open: %v", inner.SearchCalls)
	}
}

func TestGuardNotFoundDoesNotTrip(t *testing.T) {
	t.Parallel()

	inner := &mock.Provider{}
	g := NewGuard(inner, CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})

	// ErrNotFound is a valid answer about the page, not a site failure.
	for i := 0; i < 5; i++ {
		if _, err := g.StreamURL(context.Background(), "https://x/track/missing"); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("StreamURL = %v, want ErrNotFound", err)
		}
		if _, err := g.AlbumDetails(context.Background(), "https://x/album/missing"); !errors.Is(err, catalog.ErrNotFound) {
			t.Fatalf("AlbumDetails = %v, want ErrNotFound", err)
		}
	}
	if got := g.Breaker().State(); got != StateClosed {
		t.Fatalf("breaker state = %v, want %v", got, StateClosed)
	}
}

func TestGuardAbandonedEnumerationCountsAsSuccess(t *testing.T) {
	t.Parallel()

	inner := &mock.Provider{
		Tracks: []*catalog.TrackMatch{
			{Title: "one", URL: "https://x/track/one"},
			{Title: "two", URL: "https://x/track/two"},
		},
	}
	g := NewGuard(inner, CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})

	// Stop after the first element.
	for range g.SearchTracks(context.Background(), "q") {
		break
	}
	if got := g.Breaker().State(); got != StateClosed {
		t.Fatalf("breaker state = %v, want %v", got, StateClosed)
	}
}

func TestGuardObserverReportsOperations(t *testing.T) {
	t.Parallel()

	type call struct {
		op  string
		err error
	}
	var calls []call
	observer := func(op string, elapsed time.Duration, err error) {
		if elapsed < 0 {
			t.Errorf("elapsed = %v, want non-negative", elapsed)
		}
		calls = append(calls, call{op: op, err: err})
	}

	inner := &mock.Provider{
		Tracks:  []*catalog.TrackMatch{{Title: "one", URL: "https://x/track/one"}},
		TagList: []string{"metal"},
	}
	g := NewGuard(inner, CircuitBreakerConfig{}, WithObserver(observer))

	for range g.SearchTracks(context.Background(), "q") {
	}
	if _, err := g.Tags(context.Background()); err != nil {
		t.Fatalf("Tags: %v", err)
	}

	want := []string{"search_tracks", "tags"}
	if len(calls) != len(want) {
		t.Fatalf("observer calls = %d, want %d", len(calls), len(want))
	}
	for i, w := range want {
		if calls[i].op != w {
			t.Errorf("call %d op = %q, want %q", i, calls[i].op, w)
		}
		if calls[i].err != nil {
			t.Errorf("call %d err = %v, want nil", i, calls[i].err)
		}
	}
}

func TestGuardObserverReportsFailure(t *testing.T) {
	t.Parallel()

	siteDown := errors.New("site down")
	var gotErr error
	g := NewGuard(&mock.Provider{SearchErr: siteDown}, CircuitBreakerConfig{},
		WithObserver(func(op string, elapsed time.Duration, err error) {
			gotErr = err
		}))

	for _, err := range g.SearchTracks(context.Background(), "q") {
		_ = err
	}
	if !errors.Is(gotErr, siteDown) {
		t.Fatalf("observed err = %v, want the sequence failure", gotErr)
	}
}

func TestGuardTags(t *testing.T) {
	t.Parallel()

	inner := &mock.Provider{TagList: []string{"metal", "jazz"}}
	g := NewGuard(inner, CircuitBreakerConfig{})

	tags, err := g.Tags(context.Background())
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("tags = %v", tags)
	}
}
