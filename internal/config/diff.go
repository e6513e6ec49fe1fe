package config

// Diff describes what changed between two configs. Only fields that can be
// applied without a restart are tracked; everything else (listen address,
// catalog client settings, vocabulary dir) requires a new process.
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	MinScoreChanged bool
	NewMinScore     int
}

// Any reports whether the diff carries at least one hot-reloadable change.
func (d Diff) Any() bool {
	return d.LogLevelChanged || d.MinScoreChanged
}

// Compare returns what changed between old and new.
func Compare(old, new *Config) Diff {
	d := Diff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Search.MinScore != new.Search.MinScore {
		d.MinScoreChanged = true
		d.NewMinScore = new.Search.MinScore
	}

	return d
}
