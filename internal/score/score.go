// Package score converts raw catalog matches into ranked playback results.
//
// A [Pass] covers one scoring run over one classified phrase. It owns the
// per-search deduplication set and carries the classification's extracted
// fields, so results are a pure function of (match, phrase, classification)
// plus the provider calls needed for stream resolution — nothing persists
// across passes.
//
// Scores are computed as normalised similarities in [0, 1] and converted to
// confidence points on the [0, 100] scale only when a result is emitted, at
// which point the classification's base bonus and the positional decay are
// applied and the total is clamped.
package score

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/hollowbeak/bandshell/internal/classify"
	"github.com/hollowbeak/bandshell/pkg/media"
	"github.com/hollowbeak/bandshell/pkg/provider/catalog"
)

// Gate and boost constants. Gates skip a candidate outright; weights blend
// secondary signals into the running score without letting them dominate.
const (
	// gateAlbum is the minimum similarity between an extracted album field
	// and a track candidate's album label.
	gateAlbum = 0.75

	// gateArtist is the minimum similarity between an extracted artist field
	// and a candidate's artist label. Relaxed when the album gate already
	// confirmed the candidate.
	gateArtist = 0.85

	// gateArtistAlbum is the minimum best-match similarity when an extracted
	// album or track name is looked up in an artist's own discography.
	gateArtistAlbum = 0.8

	// secondaryWeight blends a losing cross-field score into the total.
	secondaryWeight = 0.5

	// tagWeight blends a losing tag score into the total.
	tagWeight = 0.3

	// tagBaseScore is the fixed base score for tag-category searches, where
	// the phrase names a genre rather than anything on the match itself.
	tagBaseScore = 0.6

	// exactThreshold promotes a match to the exact tier on its own.
	exactThreshold = 0.9

	// DefaultMinScore suppresses candidates below half confidence. A score
	// of exactly DefaultMinScore is retained.
	DefaultMinScore = 0.5
)

// URIPrefix marks result URIs as belonging to this skill's audio backend.
const URIPrefix = "bandcamp//"

// Pass scores the candidates of one search invocation. Not safe for
// concurrent use; create one Pass per invocation and discard it afterwards.
type Pass struct {
	provider catalog.Provider
	cls      classify.Classification
	phrase   string
	minScore float64
	hint     media.Type

	// seen holds the page URLs of already-emitted tracks. A track listed
	// both in a featured slot and in a full tracklist is emitted once.
	seen map[string]struct{}

	// decay is the running positional penalty, in confidence points. It
	// accumulates across an artist's listings so that catalog ordering is
	// preserved in the output ranking without ties.
	decay int
}

// NewPass creates a scoring pass for one classified phrase. minScore is the
// suppression threshold in [0, 1]; pass 0 to use DefaultMinScore.
func NewPass(provider catalog.Provider, cls classify.Classification, hint media.Type, minScore float64) *Pass {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	return &Pass{
		provider: provider,
		cls:      cls,
		phrase:   cls.Fields[classify.FieldQuery],
		minScore: minScore,
		hint:     hint,
		seen:     make(map[string]struct{}),
	}
}

// Results converts one raw match into zero or more ranked results. ordinal is
// the match's index within the catalog's own result ordering and feeds the
// positional decay. Per-candidate failures (stream resolution, album detail
// lookups) are logged and drop only the affected candidate.
func (p *Pass) Results(ctx context.Context, m catalog.Match, ordinal int) []media.Result {
	switch m := m.(type) {
	case *catalog.TrackMatch:
		if r, ok := p.trackResult(ctx, m, ordinal); ok {
			return []media.Result{r}
		}
		return nil
	case *catalog.AlbumMatch:
		return p.albumResults(ctx, m, ordinal)
	case *catalog.ArtistMatch:
		return p.artistResults(ctx, m, ordinal)
	default:
		return nil
	}
}

// mediaType is the media type stamped on emitted results.
func (p *Pass) mediaType() media.Type {
	if p.hint == media.TypeGeneric || p.hint == "" {
		return media.TypeMusic
	}
	return p.hint
}

// confidence converts a [0, 1] score into clamped confidence points with the
// base bonus and a positional penalty applied.
func (p *Pass) confidence(score float64, penalty int) int {
	return media.Clamp(p.cls.BaseBonus + int(score*100+0.5) - penalty)
}

// ---- emission ----

// emit deduplicates, resolves, and materialises one track at a given
// confidence. Returns ok=false when the track was already emitted in this
// pass or its stream cannot be resolved.
func (p *Pass) emit(ctx context.Context, t *catalog.TrackMatch, confidence int, level media.Level) (media.Result, bool) {
	if t.URL != "" {
		if _, dup := p.seen[t.URL]; dup {
			return media.Result{}, false
		}
	}

	stream := t.StreamURL
	if stream == "" {
		var err error
		stream, err = p.provider.StreamURL(ctx, t.URL)
		if err != nil {
			slog.Debug("score: dropping unresolvable track",
				"track", t.Title,
				"url", t.URL,
				"err", err,
			)
			return media.Result{}, false
		}
	}
	_ = stream // playback goes through the page URI; resolution proves playability

	if t.URL != "" {
		p.seen[t.URL] = struct{}{}
	}

	return media.Result{
		Confidence: confidence,
		Level:      level,
		MediaType:  p.mediaType(),
		Playback:   media.PlaybackAudio,
		URI:        URIPrefix + t.URL,
		Title:      t.Title,
		Artist:     t.Artist,
		Album:      t.Album,
		Image:      t.Image,
		BGImage:    t.Image,
		Length:     t.Duration,
	}, true
}

// ---- track scoring ----

// trackResult scores a single standalone track candidate. Returns ok=false
// when the candidate is gated out, below threshold, already emitted, or its
// stream cannot be resolved.
func (p *Pass) trackResult(ctx context.Context, t *catalog.TrackMatch, ordinal int) (media.Result, bool) {
	ok, multi := p.passesGates(t)
	if !ok {
		return media.Result{}, false
	}

	score, level := p.trackScore(t, multi)
	if score < p.minScore {
		return media.Result{}, false
	}

	return p.emit(ctx, t, p.confidence(score, ordinal), level)
}

// passesGates applies the classifier-driven pre-filters. multi reports that
// an extracted field was structurally confirmed on the candidate, which later
// promotes the match level.
func (p *Pass) passesGates(t *catalog.TrackMatch) (ok, multi bool) {
	albumConfirmed := false
	if album := p.cls.Fields[classify.FieldAlbum]; album != "" && t.Album != "" {
		if Similarity(album, t.Album) < gateAlbum {
			return false, false
		}
		albumConfirmed = true
	}
	if artist := p.cls.Fields[classify.FieldArtist]; artist != "" && !albumConfirmed {
		if Similarity(artist, t.Artist) < gateArtist {
			return false, false
		}
		multi = true
	}
	return true, multi || albumConfirmed
}

// trackScore computes the fuzzy score and match level for a track candidate.
func (p *Pass) trackScore(t *catalog.TrackMatch, multi bool) (float64, media.Level) {
	score, level := p.baseScore(t.Title, media.LevelTitle)

	score, level = p.crossField(score, level, t.Artist, media.LevelArtist)
	score, level = p.crossField(score, level, t.Album, media.LevelTitle)

	for _, tag := range t.Tags {
		score, level = p.tagBoost(score, level, Similarity(p.phrase, tag))
	}
	for _, weight := range t.RelatedTags {
		score, level = p.tagBoost(score, level, weight)
	}

	return p.finalize(score, level, multi)
}

// baseScore computes the primary-label score. Tag-category searches use the
// fixed tag base score, because the phrase names a genre, not the label.
func (p *Pass) baseScore(label string, level media.Level) (float64, media.Level) {
	if p.cls.Category == classify.Tag {
		return tagBaseScore, media.LevelCategory
	}
	return Similarity(p.phrase, label), level
}

// crossField folds a secondary field into the running score: replacement
// (with a multi-key upgrade) when it meets the current score, a half-weight
// nudge otherwise.
func (p *Pass) crossField(score float64, level media.Level, label string, labelLevel media.Level) (float64, media.Level) {
	if label == "" {
		return score, level
	}
	s := Similarity(p.phrase, label)
	if s >= score {
		if labelLevel > level {
			level = labelLevel
		}
		if level < media.LevelMultiKey {
			level = media.LevelMultiKey
		}
		return s, level
	}
	return score + s*secondaryWeight, level
}

// tagBoost folds one tag signal into the running score.
func (p *Pass) tagBoost(score float64, level media.Level, s float64) (float64, media.Level) {
	if s > score {
		return s, media.LevelCategory
	}
	return score + s*tagWeight, level
}

// finalize clamps the score to 1 and settles the match level: near-perfect
// scores, explicit provider requests, and structurally confirmed fields all
// land in the exact tier.
func (p *Pass) finalize(score float64, level media.Level, multi bool) (float64, media.Level) {
	if score > 1 {
		score = 1
	}
	// A structurally confirmed field is treated as exact outright, so no
	// separate multi-key fallback exists here; crossField already assigns
	// LevelMultiKey when a secondary label wins on similarity alone.
	if score >= exactThreshold || p.cls.Explicit || multi {
		level = media.LevelExact
	}
	return score, level
}

// ---- album scoring ----

// albumResults scores an album candidate and assembles its playlist. The
// featured track is emitted first at the top tier, then the full tracklist
// with positional decay; nested tracks inherit the album's score, so their
// own titles are never re-thresholded. When the classifier extracted an
// ordinal ("track number N from album Y"), only that track is returned.
func (p *Pass) albumResults(ctx context.Context, a *catalog.AlbumMatch, ordinal int) []media.Result {
	if artist := p.cls.Fields[classify.FieldArtist]; artist != "" {
		if Similarity(artist, a.Artist) < gateArtist {
			return nil
		}
	}

	score, level := p.albumScore(a)
	if score < p.minScore {
		return nil
	}

	full := a
	if len(full.Tracks) == 0 {
		resolved, err := p.provider.AlbumDetails(ctx, a.URL)
		if err != nil {
			slog.Debug("score: dropping album without tracklist",
				"album", a.Title,
				"err", err,
			)
			return nil
		}
		full = resolved
	}

	if n, ok := p.requestedOrdinal(); ok {
		if n > len(full.Tracks) {
			return nil
		}
		if r, ok := p.emit(ctx, &full.Tracks[n-1], p.confidence(score, ordinal), level); ok {
			return []media.Result{r}
		}
		return nil
	}

	var tracks []media.Result
	if full.FeaturedTrack != nil {
		if r, ok := p.emit(ctx, full.FeaturedTrack, p.confidence(score, ordinal), level); ok {
			tracks = append(tracks, r)
		}
	}
	for i := range full.Tracks {
		r, ok := p.emit(ctx, &full.Tracks[i], p.confidence(score, ordinal+i), level)
		if !ok {
			continue
		}
		tracks = append(tracks, r)
	}
	if len(tracks) == 0 {
		return nil
	}

	playlist := p.playlist(full, tracks, p.confidence(score, ordinal), level)
	return []media.Result{playlist}
}

// albumScore computes the fuzzy score and level for an album candidate: the
// album title is primary, the owning artist is the cross field.
func (p *Pass) albumScore(a *catalog.AlbumMatch) (float64, media.Level) {
	score, level := p.baseScore(a.Title, media.LevelTitle)
	score, level = p.crossField(score, level, a.Artist, media.LevelArtist)

	multi := p.cls.Fields[classify.FieldArtist] != "" &&
		Similarity(p.cls.Fields[classify.FieldArtist], a.Artist) >= gateArtist
	return p.finalize(score, level, multi)
}

// requestedOrdinal parses the classifier's ordinal field, when present.
func (p *Pass) requestedOrdinal() (int, bool) {
	raw := p.cls.Fields[classify.FieldOrdinal]
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// playlist wraps ordered track results into a playlist result, summing the
// nested durations.
func (p *Pass) playlist(a *catalog.AlbumMatch, tracks []media.Result, confidence int, level media.Level) media.Result {
	var total time.Duration
	for _, t := range tracks {
		total += t.Length
	}
	return media.Result{
		Confidence: confidence,
		Level:      level,
		MediaType:  p.mediaType(),
		Playback:   media.PlaybackPlaylist,
		URI:        URIPrefix + a.URL,
		Title:      a.Title + " (Full Album)",
		Artist:     a.Artist,
		Album:      a.Title,
		Image:      a.Image,
		BGImage:    a.Image,
		Length:     total,
		Tracks:     tracks,
	}
}

// ---- artist scoring ----

// artistResults scores an artist candidate and assembles the result group:
// the featured track first at the top tier, the featured album as a playlist
// below it, and the remaining discography as low-tier playlists. The running
// decay counter spans all three groups so the catalog's own ordering is
// preserved across the whole emission.
func (p *Pass) artistResults(ctx context.Context, a *catalog.ArtistMatch, ordinal int) []media.Result {
	score, level := p.finalize(Similarity(p.phrase, a.Name), media.LevelArtist, false)
	if score < p.minScore {
		return nil
	}

	featured := a.FeaturedAlbum

	// When the phrase named an album or track, require it to appear in the
	// artist's own discography and promote the match when it does.
	if wanted := p.wantedInDiscography(); wanted != "" {
		titles := make([]string, len(a.Albums))
		for i := range a.Albums {
			titles[i] = a.Albums[i].Title
		}
		idx, best := BestMatch(wanted, titles)
		if best < gateArtistAlbum {
			return nil
		}
		resolved, err := p.provider.AlbumDetails(ctx, a.Albums[idx].URL)
		if err != nil {
			slog.Debug("score: album detail lookup failed",
				"artist", a.Name,
				"album", a.Albums[idx].Title,
				"err", err,
			)
			return nil
		}
		featured = resolved
		score, level = p.finalize(score, level, true)
	}

	p.decay = ordinal
	var results []media.Result

	if a.FeaturedTrack != nil {
		if r, ok := p.emit(ctx, a.FeaturedTrack, p.confidence(score, p.decay), level); ok {
			if r.Artist == "" {
				r.Artist = a.Name
			}
			results = append(results, r)
		}
	}

	if featured != nil {
		if r, ok := p.artistAlbumPlaylist(ctx, a, featured, score, level); ok {
			results = append(results, r)
		}
	}

	for i := range a.Albums {
		album := &a.Albums[i]
		if featured != nil && album.URL == featured.URL {
			continue
		}
		p.decay++
		r, ok := p.artistAlbumPlaylist(ctx, a, album, score, media.LevelGeneric)
		if !ok {
			continue
		}
		results = append(results, r)
	}
	return results
}

// wantedInDiscography returns the album or track name the classifier expects
// to find in the artist's own discography, or "".
func (p *Pass) wantedInDiscography() string {
	if album := p.cls.Fields[classify.FieldAlbum]; album != "" {
		return album
	}
	return p.cls.Fields[classify.FieldTrack]
}

// artistAlbumPlaylist builds one playlist result for an album of the scored
// artist, resolving the tracklist when the summary lacks one. The pass-level
// decay counter advances by one per emitted track.
func (p *Pass) artistAlbumPlaylist(ctx context.Context, artist *catalog.ArtistMatch, album *catalog.AlbumMatch, score float64, level media.Level) (media.Result, bool) {
	full := album
	if len(full.Tracks) == 0 {
		resolved, err := p.provider.AlbumDetails(ctx, album.URL)
		if err != nil {
			slog.Debug("score: skipping album without tracklist",
				"artist", artist.Name,
				"album", album.Title,
				"err", err,
			)
			return media.Result{}, false
		}
		full = resolved
	}

	base := p.decay
	var tracks []media.Result
	for i := range full.Tracks {
		r, ok := p.emit(ctx, &full.Tracks[i], p.confidence(score, base+i), level)
		if !ok {
			continue
		}
		if r.Artist == "" {
			r.Artist = artist.Name
		}
		if r.Image == "" {
			r.Image = full.Image
		}
		tracks = append(tracks, r)
		p.decay++
	}
	if len(tracks) == 0 {
		return media.Result{}, false
	}

	playlist := p.playlist(full, tracks, p.confidence(score, base), level)
	if playlist.Artist == "" {
		playlist.Artist = artist.Name
	}
	if playlist.Image == "" {
		playlist.Image = artist.Image
		playlist.BGImage = artist.Image
	}
	return playlist, true
}

// Seen reports whether url was already emitted in this pass. Exposed for the
// pipeline's own bookkeeping and for tests.
func (p *Pass) Seen(url string) bool {
	_, ok := p.seen[url]
	return ok
}

// IsDropError reports whether err is one of the locally recoverable
// per-candidate failures (as opposed to a programming error).
func IsDropError(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
