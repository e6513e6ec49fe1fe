// Package media defines the result records Bandshell returns to the host
// assistant framework.
//
// These types form the lingua franca between the search pipeline and the
// host: every catalog hit, regardless of which search category produced it,
// is normalised into a [Result] before it leaves the engine. Raw catalog
// matches never cross the package boundary.
package media

import "time"

// Type is the media-type hint supplied by the host framework alongside a
// phrase, and the media type reported back on every result.
type Type string

const (
	// TypeGeneric means the host has no opinion about what the user wants.
	TypeGeneric Type = "generic"

	// TypeMusic means the host classified the utterance as a music request.
	// Music-hinted searches receive a small confidence bonus.
	TypeMusic Type = "music"

	// TypeAudio covers non-music audio (podcasts, radio). Treated like
	// generic by the scorer but preserved on results for the host.
	TypeAudio Type = "audio"
)

// IsValid reports whether t is a recognised media type.
func (t Type) IsValid() bool {
	switch t {
	case TypeGeneric, TypeMusic, TypeAudio:
		return true
	}
	return false
}

// Playback tells the host how to play a result.
type Playback string

const (
	// PlaybackAudio is a single playable stream.
	PlaybackAudio Playback = "audio"

	// PlaybackPlaylist is an ordered collection of audio results
	// (a full album or an artist's catalogue).
	PlaybackPlaylist Playback = "playlist"
)

// Level is the coarse confidence tier carried alongside the numeric score.
// The host uses it for secondary sorting when numeric scores tie across
// skills. Higher values outrank lower ones.
type Level int

const (
	// LevelGeneric is the default tier for untyped matches.
	LevelGeneric Level = iota

	// LevelArtist means the artist name was the strongest signal.
	LevelArtist

	// LevelTitle means the track or album title was the strongest signal.
	LevelTitle

	// LevelCategory means a tag/genre match drove the score.
	LevelCategory

	// LevelMultiKey means two or more fields matched the phrase.
	LevelMultiKey

	// LevelExact is the highest tier: a near-perfect score, an explicit
	// provider request, or a structurally confirmed field combination.
	LevelExact
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelGeneric:
		return "generic"
	case LevelArtist:
		return "artist"
	case LevelTitle:
		return "title"
	case LevelCategory:
		return "category"
	case LevelMultiKey:
		return "multi-key"
	case LevelExact:
		return "exact"
	default:
		return "unknown"
	}
}

// Result is a single ranked playback candidate.
//
// Confidence is always within [0, 100]. For playlist results, Tracks holds
// the nested track results in non-increasing confidence order and Length is
// the sum of the track lengths.
type Result struct {
	// Confidence estimates how well this result matches the user's phrase,
	// clamped to [0, 100].
	Confidence int `json:"match_confidence"`

	// Level is the coarse confidence tier backing Confidence.
	Level Level `json:"match_level"`

	// MediaType is the media type of this result.
	MediaType Type `json:"media_type"`

	// Playback tells the host whether this is a single stream or a playlist.
	Playback Playback `json:"playback"`

	// URI is the playable identifier handed to the audio backend,
	// e.g. "bandcamp//https://artist.bandcamp.com/track/...".
	URI string `json:"uri"`

	// Title is the display title.
	Title string `json:"title"`

	// Artist is the owning artist's name, when known.
	Artist string `json:"artist,omitempty"`

	// Album is the owning album's title, when known.
	Album string `json:"album,omitempty"`

	// Image is the artwork URL shown next to the result.
	Image string `json:"image,omitempty"`

	// BGImage is a larger background artwork URL.
	BGImage string `json:"bg_image,omitempty"`

	// Length is the playable duration, when reported by the catalog.
	// For playlists it equals the sum of the nested track lengths.
	Length time.Duration `json:"length,omitempty"`

	// Tracks holds the ordered track results of a playlist result.
	// Nil for plain audio results.
	Tracks []Result `json:"tracks,omitempty"`
}

// Clamp bounds score to the [0, 100] confidence scale.
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
