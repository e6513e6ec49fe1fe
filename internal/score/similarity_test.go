package score

import "testing"

func TestSimilarityExact(t *testing.T) {
	t.Parallel()

	if got := Similarity("astronaut", "astronaut"); got != 1 {
		t.Errorf("identical strings = %v, want 1", got)
	}
	if got := Similarity("Astronaut", "  astronaut "); got != 1 {
		t.Errorf("case/whitespace variants = %v, want 1", got)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	t.Parallel()

	if got := Similarity("", "astronaut"); got != 0 {
		t.Errorf("empty a = %v, want 0", got)
	}
	if got := Similarity("astronaut", "   "); got != 0 {
		t.Errorf("blank b = %v, want 0", got)
	}
}

func TestSimilarityOrdering(t *testing.T) {
	t.Parallel()

	// A near-miss must outrank an unrelated label.
	near := Similarity("astronaut problems", "astronaut problems (live)")
	far := Similarity("astronaut problems", "kitchen floor blues")
	if near <= far {
		t.Errorf("near = %v should exceed far = %v", near, far)
	}
	if near < 0.8 {
		t.Errorf("near-miss = %v, want at least 0.8", near)
	}
	if far > 0.6 {
		t.Errorf("unrelated = %v, want at most 0.6", far)
	}
}

func TestSimilarityRange(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"a", "b"},
		{"compressorhead", "compressor head"},
		{"x", "a very long unrelated label"},
	}
	for _, p := range pairs {
		if s := Similarity(p[0], p[1]); s < 0 || s > 1 {
			t.Errorf("Similarity(%q, %q) = %v out of [0, 1]", p[0], p[1], s)
		}
	}
}

func TestBestMatch(t *testing.T) {
	t.Parallel()

	idx, s := BestMatch("party machine", []string{
		"greatest hits",
		"party-machine",
		"live at the factory",
	})
	if idx != 1 {
		t.Fatalf("index = %d, want 1", idx)
	}
	if s < 0.9 {
		t.Errorf("score = %v, want at least 0.9", s)
	}
}

func TestBestMatchEmpty(t *testing.T) {
	t.Parallel()

	idx, s := BestMatch("anything", nil)
	if idx != -1 || s != 0 {
		t.Errorf("BestMatch on empty = (%d, %v), want (-1, 0)", idx, s)
	}
}
