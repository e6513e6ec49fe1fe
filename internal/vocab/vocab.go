// Package vocab loads and serves the trigger-word lists and structural
// extraction patterns used by the query classifier.
//
// Resources are YAML documents with two sections: named word lists (the
// equivalent of the assistant framework's .voc files) and named pattern sets
// of regular expressions with named capture groups (the .rx files). A default
// English resource set is embedded in the binary; deployments can override it
// with a file of the same shape via the vocab.dir config key.
//
// After loading, a Set is a static lookup table: no I/O, safe for concurrent
// use.
package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed resources/en-us.yaml
var embeddedResources []byte

// file is the on-disk shape of a vocabulary resource document.
type file struct {
	Lists    map[string][]string `yaml:"lists"`
	Patterns map[string][]string `yaml:"patterns"`
}

// Set holds compiled vocabulary lists and pattern sets, keyed by name.
type Set struct {
	// matchers maps list name to a whole-word, case-insensitive regexp
	// matching any token of the list (longest tokens first, so multi-word
	// triggers win over their substrings).
	matchers map[string]*regexp.Regexp

	// patterns maps pattern-set name to its compiled rules, in file order.
	patterns map[string][]*regexp.Regexp
}

var defaultSet = sync.OnceValue(func() *Set {
	s, err := parse(embeddedResources)
	if err != nil {
		// The embedded resources are compiled into the binary; failing to
		// parse them is a build defect, not a runtime condition.
		panic(fmt.Sprintf("vocab: embedded resources: %v", err))
	}
	return s
})

// Default returns the embedded English vocabulary set.
func Default() *Set {
	return defaultSet()
}

// Load reads a vocabulary resource file from dir. The directory must contain
// an en-us.yaml file of the embedded resource shape. Lists and pattern sets
// present in the file replace the embedded ones wholesale; absent names fall
// back to the embedded defaults.
func Load(dir string) (*Set, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "en-us.yaml"))
	if err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", dir, err)
	}
	override, err := parse(raw)
	if err != nil {
		return nil, err
	}

	merged := &Set{
		matchers: make(map[string]*regexp.Regexp),
		patterns: make(map[string][]*regexp.Regexp),
	}
	for name, re := range Default().matchers {
		merged.matchers[name] = re
	}
	for name, rules := range Default().patterns {
		merged.patterns[name] = rules
	}
	for name, re := range override.matchers {
		merged.matchers[name] = re
	}
	for name, rules := range override.patterns {
		merged.patterns[name] = rules
	}
	return merged, nil
}

func parse(raw []byte) (*Set, error) {
	var f file
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("vocab: decode yaml: %w", err)
	}

	s := &Set{
		matchers: make(map[string]*regexp.Regexp, len(f.Lists)),
		patterns: make(map[string][]*regexp.Regexp, len(f.Patterns)),
	}
	for name, tokens := range f.Lists {
		re, err := compileList(tokens)
		if err != nil {
			return nil, fmt.Errorf("vocab: list %q: %w", name, err)
		}
		s.matchers[name] = re
	}
	for name, exprs := range f.Patterns {
		for _, expr := range exprs {
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				return nil, fmt.Errorf("vocab: pattern %q: %w", name, err)
			}
			s.patterns[name] = append(s.patterns[name], re)
		}
	}
	return s, nil
}

// compileList builds a whole-word alternation over tokens, longest first.
func compileList(tokens []string) (*regexp.Regexp, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	quoted := make([]string, len(sorted))
	for i, t := range sorted {
		quoted[i] = regexp.QuoteMeta(strings.TrimSpace(t))
	}
	return regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Match reports whether phrase contains any token of the named list.
// Unknown list names never match.
func (s *Set) Match(phrase, name string) bool {
	re, ok := s.matchers[name]
	if !ok {
		return false
	}
	return re.MatchString(phrase)
}

// Remove strips every token of the named list from phrase and collapses the
// remaining whitespace. Unknown list names return phrase trimmed.
func (s *Set) Remove(phrase, name string) string {
	re, ok := s.matchers[name]
	if !ok {
		return strings.TrimSpace(phrase)
	}
	return strings.Join(strings.Fields(re.ReplaceAllString(phrase, " ")), " ")
}

// Patterns returns the compiled rules of the named pattern set in file order,
// or nil when the set does not exist.
func (s *Set) Patterns(name string) []*regexp.Regexp {
	return s.patterns[name]
}
