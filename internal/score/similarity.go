package score

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Similarity returns the normalised string similarity of a and b in [0, 1].
//
// Comparison is case-insensitive on whitespace-trimmed input. Jaro-Winkler is
// used because spoken phrases and catalog labels mostly differ by prefixes
// and small edits ("astronaut problems" vs "Astronaut Problems (live)"), and
// its prefix weighting matches how people name what they want to hear.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return matchr.JaroWinkler(a, b, false)
}

// BestMatch returns the index and similarity of the candidate most similar
// to needle. Returns index -1 when candidates is empty.
func BestMatch(needle string, candidates []string) (int, float64) {
	bestIdx, bestScore := -1, 0.0
	for i, c := range candidates {
		if s := Similarity(needle, c); s > bestScore {
			bestIdx, bestScore = i, s
		}
	}
	return bestIdx, bestScore
}
