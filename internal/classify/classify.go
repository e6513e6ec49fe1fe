// Package classify turns a raw spoken phrase into a search classification:
// a category (what kind of catalog entity the user wants), any structured
// fields extracted from the phrase, and a cleaned query string with the
// recognised trigger vocabulary stripped.
//
// Classification is pure text work against statically loaded vocabulary: no
// I/O, no network, and no failure mode — an unparseable phrase falls back to
// the generic category with the trimmed original as its query.
package classify

import (
	"regexp"
	"strings"

	"github.com/hollowbeak/bandshell/internal/vocab"
	"github.com/hollowbeak/bandshell/pkg/media"
)

// Category is the kind of catalog search a phrase asks for.
type Category int

const (
	// Generic is the fallback category: run a mixed-kind search.
	Generic Category = iota

	// Track searches tracks by title.
	Track

	// Album searches albums by title.
	Album

	// Artist searches artists by name.
	Artist

	// Tag searches tracks filed under a recognised tag.
	Tag

	// TrackInAlbum is a track search constrained to a named album.
	TrackInAlbum

	// TrackByArtist is a track search constrained to a named artist.
	TrackByArtist

	// TrackInAlbumByArtist constrains a track search to both.
	TrackInAlbumByArtist

	// AlbumByArtist is an album search constrained to a named artist.
	AlbumByArtist
)

// String returns the human-readable category name.
func (c Category) String() string {
	switch c {
	case Generic:
		return "generic"
	case Track:
		return "track"
	case Album:
		return "album"
	case Artist:
		return "artist"
	case Tag:
		return "tag"
	case TrackInAlbum:
		return "track-in-album"
	case TrackByArtist:
		return "track-by-artist"
	case TrackInAlbumByArtist:
		return "track-in-album-by-artist"
	case AlbumByArtist:
		return "album-by-artist"
	default:
		return "unknown"
	}
}

// Field names used in Classification.Fields.
const (
	FieldQuery   = "query"
	FieldTrack   = "track"
	FieldAlbum   = "album"
	FieldArtist  = "artist"
	FieldOrdinal = "ordinal"
)

// Classification is the result of classifying one phrase.
type Classification struct {
	// Category is the search category. Always exactly one of the enumerated
	// values; Generic when nothing more specific was recognised.
	Category Category

	// Fields holds the extracted named fields. FieldQuery is always present;
	// the rest depend on the category.
	Fields map[string]string

	// Cleaned is the phrase with all recognised vocabulary stripped. This is
	// the string handed to the catalog search call.
	Cleaned string

	// Explicit reports that the user named this provider ("on bandcamp").
	Explicit bool

	// BaseBonus is the score bonus, in confidence points, earned from the
	// explicit-provider mention and the host's media-type hint.
	BaseBonus int
}

// Bonus points added to every candidate's score (on the 0–100 scale).
const (
	explicitBonus  = 30
	musicHintBonus = 15
)

// rule binds a vocabulary pattern set to the category it implies and the
// field whose value becomes the cleaned search query.
type rule struct {
	patterns string
	category Category
	queryKey string
}

// rules is evaluated in order against the original phrase; the first match
// wins. More specific rules come first — unlike the historic skill, where a
// later, less specific rule group could silently override an earlier match.
var rules = []rule{
	{patterns: "track_album_artist", category: TrackInAlbumByArtist, queryKey: FieldTrack},
	{patterns: "n_album", category: TrackInAlbum, queryKey: FieldAlbum},
	{patterns: "track_album", category: TrackInAlbum, queryKey: FieldTrack},
	{patterns: "track_artist", category: TrackByArtist, queryKey: FieldTrack},
	{patterns: "album_artist", category: AlbumByArtist, queryKey: FieldAlbum},
}

// coarse maps vocabulary list names to categories in priority order.
var coarse = []struct {
	list     string
	category Category
}{
	{"artist", Artist},
	{"track", Track},
	{"album", Album},
	{"tag", Tag},
}

// Classifier classifies phrases against a vocabulary set and the catalog's
// known tag list. It is read-only after construction and safe for concurrent
// use.
type Classifier struct {
	voc  *vocab.Set
	tags map[string]struct{}
}

// New creates a Classifier. knownTags is the catalog's recognised tag list,
// used to validate tag-category classifications; pass nil to disable the tag
// category entirely.
func New(voc *vocab.Set, knownTags []string) *Classifier {
	c := &Classifier{
		voc:  voc,
		tags: make(map[string]struct{}, len(knownTags)),
	}
	for _, t := range knownTags {
		c.tags[NormalizeTag(t)] = struct{}{}
	}
	return c
}

// NormalizeTag lowercases a tag candidate and joins its words with hyphens,
// matching the catalog's tag naming scheme.
func NormalizeTag(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), "-")
}

// Classify determines the search category for phrase, extracts structured
// fields, and strips recognised vocabulary. It never fails: malformed input
// yields Generic with the trimmed original as the query.
func (c *Classifier) Classify(phrase string, hint media.Type) Classification {
	original := strings.TrimSpace(phrase)

	result := Classification{
		Category: Generic,
		Fields:   map[string]string{},
		Cleaned:  original,
	}
	if original == "" {
		result.Fields[FieldQuery] = ""
		return result
	}

	// Explicit provider mention: sets the flag and the top bonus tier, then
	// is stripped like any other trigger.
	cleaned := original
	if c.voc.Match(cleaned, "bandcamp") {
		result.Explicit = true
		result.BaseBonus += explicitBonus
		cleaned = c.voc.Remove(cleaned, "bandcamp")
	}
	if hint == media.TypeMusic {
		result.BaseBonus += musicHintBonus
	}

	// Audio backend names are stripped but never affect the category.
	if c.voc.Match(cleaned, "audio_backend") {
		cleaned = c.voc.Remove(cleaned, "audio_backend")
	}

	// Coarse category from intent vocabulary, in priority order.
	for _, entry := range coarse {
		if !c.voc.Match(cleaned, entry.list) {
			continue
		}
		result.Category = entry.category
		cleaned = c.voc.Remove(cleaned, entry.list)
		break
	}

	// A tag classification only stands when the remaining phrase names a tag
	// the catalog actually recognises.
	if result.Category == Tag {
		if _, known := c.tags[NormalizeTag(cleaned)]; !known {
			result.Category = Generic
		}
	}

	// Structural rules run against the original, uncleaned phrase and
	// override the coarse category when they match.
	if matched, ok := c.applyRules(original, &result); ok {
		cleaned = matched
	}

	result.Cleaned = strings.TrimSpace(cleaned)
	result.Fields[FieldQuery] = result.Cleaned
	return result
}

// applyRules evaluates the ordered rule list against phrase. On the first
// match it overrides the classification's category, fills the extracted
// fields, and returns the rule's query value. Returns ok=false when no rule
// matched.
func (c *Classifier) applyRules(phrase string, result *Classification) (query string, ok bool) {
	for _, r := range rules {
		for _, re := range c.voc.Patterns(r.patterns) {
			groups := namedGroups(re, phrase)
			if groups == nil {
				continue
			}
			result.Category = r.category
			for name, value := range groups {
				result.Fields[name] = value
			}
			return groups[r.queryKey], true
		}
	}
	return "", false
}

// namedGroups returns the named capture groups of re's first match in s,
// trimmed, or nil when re does not match.
func namedGroups(re *regexp.Regexp, s string) map[string]string {
	sub := re.FindStringSubmatch(s)
	if sub == nil {
		return nil
	}
	groups := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(sub) || sub[i] == "" {
			continue
		}
		groups[name] = strings.TrimSpace(sub[i])
	}
	return groups
}
