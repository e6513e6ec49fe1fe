package catalog

import "time"

// Kind tags the concrete variant behind a [Match].
type Kind string

const (
	KindArtist Kind = "artist"
	KindAlbum  Kind = "album"
	KindTrack  Kind = "track"
)

// Match is the tagged union of the three catalog match variants. The scorer
// dispatches on Kind rather than on type assertions wherever a mixed-kind
// sequence is consumed.
type Match interface {
	// Kind identifies the concrete variant.
	Kind() Kind

	// PageURL is the canonical catalog page for this entity. It doubles as
	// the identity used for deduplication within one search pass.
	PageURL() string
}

// ArtistMatch is a catalog hit for an artist or band.
type ArtistMatch struct {
	// Name is the artist's display name.
	Name string

	// URL is the artist's catalog page.
	URL string

	// Image is the artist's profile artwork URL.
	Image string

	// Genre is the artist's self-reported genre, when listed.
	Genre string

	// Location is the artist's self-reported location, when listed.
	Location string

	// Albums lists the artist's discography as summaries. Tracklists are
	// usually empty until resolved via Provider.AlbumDetails.
	Albums []AlbumMatch

	// FeaturedTrack is the track highlighted on the artist's page, if any.
	FeaturedTrack *TrackMatch

	// FeaturedAlbum is the album highlighted on the artist's page, if any.
	FeaturedAlbum *AlbumMatch
}

func (m *ArtistMatch) Kind() Kind      { return KindArtist }
func (m *ArtistMatch) PageURL() string { return m.URL }

// AlbumMatch is a catalog hit for an album.
type AlbumMatch struct {
	// Title is the album title.
	Title string

	// URL is the album's catalog page.
	URL string

	// Artist is the owning artist's name.
	Artist string

	// Image is the cover artwork URL.
	Image string

	// ReleaseDate is the release date, when listed.
	ReleaseDate string

	// Tracks is the ordered tracklist. May be empty for summaries scraped
	// from search results or discography listings.
	Tracks []TrackMatch

	// FeaturedTrack is the track highlighted on the album page, if any.
	FeaturedTrack *TrackMatch
}

func (m *AlbumMatch) Kind() Kind      { return KindAlbum }
func (m *AlbumMatch) PageURL() string { return m.URL }

// TrackMatch is a catalog hit for a single track.
type TrackMatch struct {
	// Title is the track title.
	Title string

	// URL is the track's catalog page.
	URL string

	// Artist is the owning artist's name.
	Artist string

	// Album is the owning album's title, when known.
	Album string

	// Image is the artwork URL.
	Image string

	// Duration is the track length, when reported.
	Duration time.Duration

	// Tags lists the literal tags filed on the track.
	Tags []string

	// RelatedTags maps related tag names to their relevance weight in [0, 1].
	RelatedTags map[string]float64

	// StreamURL is the directly playable stream, when the catalog already
	// exposed one. Empty means the track needs Provider.StreamURL resolution.
	StreamURL string
}

func (m *TrackMatch) Kind() Kind      { return KindTrack }
func (m *TrackMatch) PageURL() string { return m.URL }
