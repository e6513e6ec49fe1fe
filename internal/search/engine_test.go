package search

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/hollowbeak/bandshell/internal/classify"
	"github.com/hollowbeak/bandshell/internal/observe"
	"github.com/hollowbeak/bandshell/internal/vocab"
	"github.com/hollowbeak/bandshell/pkg/media"
	"github.com/hollowbeak/bandshell/pkg/provider/catalog"
	"github.com/hollowbeak/bandshell/pkg/provider/catalog/mock"
)

func newTestEngine(t *testing.T, p *mock.Provider, cfg Config) *Engine {
	t.Helper()
	classifier := classify.New(vocab.Default(), []string{"jazz", "metal"})
	e, err := New(p, classifier, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func streamableTrack(title string) *catalog.TrackMatch {
	return &catalog.TrackMatch{
		Title:     title,
		URL:       "https://x.bandcamp.com/track/" + title,
		Artist:    "band",
		Duration:  2 * time.Minute,
		StreamURL: "https://cdn/" + title + ".mp3",
	}
}

func TestDispatchByCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		phrase string
		call   string
	}{
		{"artist", "the band compressorhead", "artists:the compressorhead"},
		{"track", "the song astronaut", "tracks:the astronaut"},
		{"album", "the album party machine", "albums:the party machine"},
		{"tag", "some jazz", "tag:jazz"},
		{"generic", "astronaut", "mixed:astronaut"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := &mock.Provider{}
			e := newTestEngine(t, p, Config{})

			Collect(e.Search(context.Background(), tc.phrase, media.TypeGeneric))

			if !slices.Contains(p.SearchCalls, tc.call) {
				t.Errorf("calls = %v, want %q", p.SearchCalls, tc.call)
			}
		})
	}
}

func TestDispatchOrdinalUsesAlbumField(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{}
	e := newTestEngine(t, p, Config{})

	Collect(e.Search(context.Background(), "track number 2 from the album party machine", media.TypeGeneric))

	if !slices.Contains(p.SearchCalls, "albums:party machine") {
		t.Errorf("calls = %v, want album search on the extracted album name", p.SearchCalls)
	}
}

func TestSearchYieldsScoredResults(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		Tracks: []*catalog.TrackMatch{streamableTrack("astronaut")},
	}
	e := newTestEngine(t, p, Config{})

	got := Collect(e.Search(context.Background(), "song astronaut", media.TypeMusic))
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
	if got[0].Title != "astronaut" {
		t.Errorf("title = %q", got[0].Title)
	}
	// Exact title match plus the music hint bonus caps out.
	if got[0].Confidence != 100 {
		t.Errorf("confidence = %d, want 100", got[0].Confidence)
	}
}

func TestSearchRespectsCandidateLimit(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		Tracks: []*catalog.TrackMatch{
			streamableTrack("astronaut"),
			streamableTrack("astronaut ii"),
			streamableTrack("astronaut iii"),
		},
	}
	e := newTestEngine(t, p, Config{MaxTracks: 1})

	got := Collect(e.Search(context.Background(), "song astronaut", media.TypeGeneric))
	if len(got) != 1 {
		t.Errorf("results = %d, want the single permitted candidate", len(got))
	}
}

func TestSearchProviderErrorDegradesToEmpty(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{SearchErr: context.DeadlineExceeded}
	e := newTestEngine(t, p, Config{})

	got := Collect(e.Search(context.Background(), "the song astronaut", media.TypeGeneric))
	if got != nil {
		t.Errorf("results = %v, want none", got)
	}
}

func TestSearchCacheHit(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	p := &mock.Provider{
		Tracks: []*catalog.TrackMatch{streamableTrack("astronaut")},
	}
	classifier := classify.New(vocab.Default(), nil)
	e, err := New(p, classifier, Config{}, WithCache(cache))
	if err != nil {
		t.Fatal(err)
	}

	first := Collect(e.Search(context.Background(), "song astronaut", media.TypeGeneric))
	if len(first) != 1 {
		t.Fatalf("live search results = %d", len(first))
	}

	p.Reset()
	second := Collect(e.Search(context.Background(), "song astronaut", media.TypeGeneric))
	if len(second) != 1 || second[0].URI != first[0].URI {
		t.Fatalf("cached results = %+v", second)
	}
	if len(p.SearchCalls) != 0 {
		t.Errorf("cache hit still queried the catalog: %v", p.SearchCalls)
	}
}

func TestSearchAbandonedEnumerationNotCached(t *testing.T) {
	t.Parallel()

	cache, err := OpenCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	p := &mock.Provider{
		Tracks: []*catalog.TrackMatch{
			streamableTrack("astronaut"),
			streamableTrack("astronaut ii"),
		},
	}
	classifier := classify.New(vocab.Default(), nil)
	e, err := New(p, classifier, Config{}, WithCache(cache))
	if err != nil {
		t.Fatal(err)
	}

	// Stop after the first result: the partial listing must not be cached.
	for range e.Search(context.Background(), "song astronaut", media.TypeGeneric) {
		break
	}

	p.Reset()
	got := Collect(e.Search(context.Background(), "song astronaut", media.TypeGeneric))
	if len(p.SearchCalls) == 0 {
		t.Error("second search served a partial cache entry")
	}
	if len(got) != 2 {
		t.Errorf("results = %d, want the full listing", len(got))
	}
}

func TestSearchContextCancelled(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		Tracks: []*catalog.TrackMatch{streamableTrack("astronaut")},
	}
	e := newTestEngine(t, p, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := Collect(e.Search(ctx, "the song astronaut", media.TypeGeneric))
	if got != nil {
		t.Errorf("results on cancelled context = %v", got)
	}
}

func TestSetMinScore(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		Tracks: []*catalog.TrackMatch{streamableTrack("astronaut")},
	}
	e := newTestEngine(t, p, Config{})

	e.SetMinScore(101) // clamped to 100; an exact match still passes
	got := Collect(e.Search(context.Background(), "song astronaut", media.TypeGeneric))
	if len(got) != 1 {
		t.Errorf("exact match suppressed at clamped threshold: %v", got)
	}

	p2 := &mock.Provider{
		Tracks: []*catalog.TrackMatch{streamableTrack("nothing alike zzz")},
	}
	e2 := newTestEngine(t, p2, Config{})
	e2.SetMinScore(95)
	if got := Collect(e2.Search(context.Background(), "song astronaut", media.TypeGeneric)); got != nil {
		t.Errorf("weak match not suppressed: %v", got)
	}
}

// catalogErrorCount sums the catalog error counter collected so far.
func catalogErrorCount(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			if met.Name != "bandshell.catalog.errors" {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", met.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestCategoryErrorMetricSkipsExpectedEndings(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatal(err)
	}
	classifier := classify.New(vocab.Default(), nil)

	// A cancelled enumeration is an expected ending, not a client failure.
	cancelled := &mock.Provider{SearchErr: context.Canceled}
	e, err := New(cancelled, classifier, Config{}, WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	Collect(e.Search(context.Background(), "song astronaut", media.TypeGeneric))
	if got := catalogErrorCount(t, reader); got != 0 {
		t.Errorf("catalog errors after cancellation = %d, want 0", got)
	}

	// A genuine client failure is counted.
	failing := &mock.Provider{SearchErr: errors.New("connection refused")}
	e2, err := New(failing, classifier, Config{}, WithMetrics(m))
	if err != nil {
		t.Fatal(err)
	}
	Collect(e2.Search(context.Background(), "song astronaut", media.TypeGeneric))
	if got := catalogErrorCount(t, reader); got != 1 {
		t.Errorf("catalog errors after failure = %d, want 1", got)
	}
}
