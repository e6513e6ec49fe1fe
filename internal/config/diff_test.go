package config

import "testing"

func TestCompareNoChanges(t *testing.T) {
	t.Parallel()

	a, b := Default(), Default()
	d := Compare(a, b)

	if d.Any() {
		t.Errorf("Compare(identical) = %+v, want empty diff", d)
	}
}

func TestCompareLogLevel(t *testing.T) {
	t.Parallel()

	a, b := Default(), Default()
	b.Server.LogLevel = LogDebug

	d := Compare(a, b)
	if !d.LogLevelChanged || d.NewLogLevel != LogDebug {
		t.Errorf("diff = %+v, want log level change to debug", d)
	}
	if d.MinScoreChanged {
		t.Error("min score change reported without a change")
	}
}

func TestCompareMinScore(t *testing.T) {
	t.Parallel()

	a, b := Default(), Default()
	b.Search.MinScore = 75

	d := Compare(a, b)
	if !d.MinScoreChanged || d.NewMinScore != 75 {
		t.Errorf("diff = %+v, want min score change to 75", d)
	}
	if !d.Any() {
		t.Error("Any() = false for a non-empty diff")
	}
}

func TestCompareIgnoresRestartOnlyFields(t *testing.T) {
	t.Parallel()

	a, b := Default(), Default()
	b.Server.ListenAddr = ":1234"
	b.Catalog.BaseURL = "https://example.com"

	if d := Compare(a, b); d.Any() {
		t.Errorf("diff = %+v, want empty diff for restart-only fields", d)
	}
}
