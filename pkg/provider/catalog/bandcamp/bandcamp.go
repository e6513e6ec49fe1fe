// Package bandcamp implements the catalog.Provider interface by scraping
// bandcamp.com.
//
// Bandcamp has no public search API, so the client parses three kinds of
// pages:
//
//   - Search result pages (/search?q=...&item_type=b|a|t) for artist, album
//     and track listings. Results are paginated; the sequences returned by
//     the Search* methods fetch pages on demand and stop as soon as the
//     consumer stops.
//
//   - Track and album pages, which embed a JSON payload in the data-tralbum
//     attribute of a script tag. The payload carries the tracklist, durations
//     and the directly playable mp3-128 stream URLs.
//
//   - The tag hub (/tags), which lists every tag name the site recognises.
//     The tag list is fetched once and cached for the client's lifetime.
//
// Typical usage:
//
//	c := bandcamp.New(
//	    bandcamp.WithTimeout(10*time.Second),
//	)
//	for match, err := range c.SearchArtists(ctx, "compressorhead") {
//	    ...
//	}
package bandcamp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hollowbeak/bandshell/pkg/provider/catalog"
)

// Compile-time interface assertion.
var _ catalog.Provider = (*Client)(nil)

const (
	defaultBaseURL   = "https://bandcamp.com"
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "bandshell/1.0"

	// maxSearchPages bounds pagination per search. Bandcamp serves 18
	// results per page; consumers almost always stop far earlier.
	maxSearchPages = 5
)

// itemType values understood by the Bandcamp search endpoint.
const (
	itemTypeBand  = "b"
	itemTypeAlbum = "a"
	itemTypeTrack = "t"
)

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithBaseURL overrides the Bandcamp site root. Used by tests to point the
// client at a fixture server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(base, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 15 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Client scrapes bandcamp.com. It is safe for concurrent use; the only
// mutable state is the lazily-populated tag cache.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client

	tagsOnce sync.Once
	tags     []string
	tagsErr  error
}

// New creates a Bandcamp catalog client with the supplied options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CloseIdleConnections releases pooled keep-alive connections. Called during
// service shutdown.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Search implements catalog.Provider. It runs an untyped search and yields
// matches of any kind in site ranking order.
func (c *Client) Search(ctx context.Context, query string) iter.Seq2[catalog.Match, error] {
	return c.enrichArtists(ctx, c.searchPages(ctx, query, ""))
}

// SearchArtists implements catalog.Provider.
func (c *Client) SearchArtists(ctx context.Context, query string) iter.Seq2[*catalog.ArtistMatch, error] {
	return narrow[*catalog.ArtistMatch](c.enrichArtists(ctx, c.searchPages(ctx, query, itemTypeBand)))
}

// SearchAlbums implements catalog.Provider.
func (c *Client) SearchAlbums(ctx context.Context, query string) iter.Seq2[*catalog.AlbumMatch, error] {
	return narrow[*catalog.AlbumMatch](c.searchPages(ctx, query, itemTypeAlbum))
}

// SearchTracks implements catalog.Provider.
func (c *Client) SearchTracks(ctx context.Context, query string) iter.Seq2[*catalog.TrackMatch, error] {
	return narrow[*catalog.TrackMatch](c.searchPages(ctx, query, itemTypeTrack))
}

// SearchTag implements catalog.Provider. Bandcamp tag hubs list albums and
// tracks; only tracks are yielded, album entries are expanded via their
// featured track when one is listed inline.
func (c *Client) SearchTag(ctx context.Context, tag string) iter.Seq2[*catalog.TrackMatch, error] {
	return func(yield func(*catalog.TrackMatch, error) bool) {
		doc, err := c.fetch(ctx, c.baseURL+"/tag/"+url.PathEscape(tag))
		if err != nil {
			yield(nil, fmt.Errorf("bandcamp: tag %q: %w", tag, err))
			return
		}
		ok := true
		doc.Find("li.item").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, _ := sel.Find("a").First().Attr("href")
			if href == "" || !strings.Contains(href, "/track/") {
				return true
			}
			track := &catalog.TrackMatch{
				Title:  clean(sel.Find(".itemtext").Text()),
				URL:    stripQuery(href),
				Artist: strings.TrimPrefix(clean(sel.Find(".itemsubtext").Text()), "by "),
				Image:  firstAttr(sel.Find("img"), "src"),
				Tags:   []string{tag},
			}
			ok = yield(track, nil)
			return ok
		})
		_ = ok
	}
}

// searchPages fetches search result pages on demand and yields parsed matches.
func (c *Client) searchPages(ctx context.Context, query, itemType string) iter.Seq2[catalog.Match, error] {
	return func(yield func(catalog.Match, error) bool) {
		for page := 1; page <= maxSearchPages; page++ {
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}

			q := url.Values{"q": {query}}
			if itemType != "" {
				q.Set("item_type", itemType)
			}
			if page > 1 {
				q.Set("page", fmt.Sprint(page))
			}

			doc, err := c.fetch(ctx, c.baseURL+"/search?"+q.Encode())
			if err != nil {
				yield(nil, fmt.Errorf("bandcamp: search %q: %w", query, err))
				return
			}

			results := doc.Find("li.searchresult")
			if results.Length() == 0 {
				return
			}

			stopped := false
			results.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				match := parseSearchResult(sel)
				if match == nil {
					return true
				}
				if !yield(match, nil) {
					stopped = true
					return false
				}
				return true
			})
			if stopped {
				return
			}
		}
	}
}

// enrichArtists fills in the discography of artist matches as they pass
// through. Search result pages list only the artist's name and page; the
// scorer needs the albums and the featured slots, which live on the artist's
// /music page. Enrichment is lazy, so only matches the consumer actually
// pulls cost the extra fetches.
func (c *Client) enrichArtists(ctx context.Context, seq iter.Seq2[catalog.Match, error]) iter.Seq2[catalog.Match, error] {
	return func(yield func(catalog.Match, error) bool) {
		for m, err := range seq {
			if err != nil {
				yield(m, err)
				return
			}
			if artist, ok := m.(*catalog.ArtistMatch); ok {
				if err := c.fillDiscography(ctx, artist); err != nil {
					yield(nil, err)
					return
				}
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}

// fillDiscography scrapes the artist's /music page into m.Albums and resolves
// the first listed release as the featured album and track. An artist whose
// music page lists nothing is left as-is rather than treated as an error.
func (c *Client) fillDiscography(ctx context.Context, m *catalog.ArtistMatch) error {
	doc, err := c.fetch(ctx, m.URL+"/music")
	if err != nil {
		return fmt.Errorf("bandcamp: discography %s: %w", m.URL, err)
	}
	base, err := url.Parse(m.URL)
	if err != nil {
		return fmt.Errorf("bandcamp: artist url %q: %w", m.URL, err)
	}

	doc.Find("#music-grid li a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || !strings.Contains(href, "/album/") {
			return
		}
		if ref, err := base.Parse(href); err == nil {
			href = ref.String()
		}
		m.Albums = append(m.Albums, catalog.AlbumMatch{
			Title:  clean(sel.Find("p.title").Text()),
			URL:    stripQuery(href),
			Artist: m.Name,
			Image:  firstAttr(sel.Find("img"), "src"),
		})
	})
	if len(m.Albums) == 0 {
		return nil
	}

	// The grid leads with the artist's highlighted release. Resolving it now
	// gives the featured track and saves the scorer a second lookup.
	featured, err := c.AlbumDetails(ctx, m.Albums[0].URL)
	if err != nil {
		m.FeaturedAlbum = &m.Albums[0]
		return nil
	}
	if featured.Image == "" {
		featured.Image = m.Albums[0].Image
	}
	m.FeaturedAlbum = featured
	m.FeaturedTrack = featured.FeaturedTrack
	return nil
}

// parseSearchResult converts one search result list item into a match.
// Returns nil for item types the client does not model (labels, fans).
func parseSearchResult(sel *goquery.Selection) catalog.Match {
	pageURL := stripQuery(clean(sel.Find(".itemurl a").Text()))
	if pageURL == "" {
		pageURL = stripQuery(firstAttr(sel.Find(".heading a"), "href"))
	}
	heading := clean(sel.Find(".heading a").Text())
	image := firstAttr(sel.Find(".art img"), "src")
	subhead := clean(sel.Find(".subhead").Text())

	switch clean(sel.Find(".itemtype").Text()) {
	case "ARTIST":
		return &catalog.ArtistMatch{
			Name:     heading,
			URL:      pageURL,
			Image:    image,
			Genre:    strings.TrimPrefix(clean(sel.Find(".genre").Text()), "genre: "),
			Location: subhead,
		}
	case "ALBUM":
		return &catalog.AlbumMatch{
			Title:       heading,
			URL:         pageURL,
			Artist:      strings.TrimPrefix(subhead, "by "),
			Image:       image,
			ReleaseDate: strings.TrimPrefix(clean(sel.Find(".released").Text()), "released "),
		}
	case "TRACK":
		album, artist := splitTrackSubhead(subhead)
		return &catalog.TrackMatch{
			Title:  heading,
			URL:    pageURL,
			Artist: artist,
			Album:  album,
			Image:  image,
			Tags:   parseTagLine(clean(sel.Find(".tags").Text())),
		}
	default:
		return nil
	}
}

// splitTrackSubhead splits the 'from <album> by <artist>' line on track
// results. Either part may be absent.
func splitTrackSubhead(subhead string) (album, artist string) {
	rest := subhead
	if after, ok := strings.CutPrefix(rest, "from "); ok {
		if i := strings.LastIndex(after, " by "); i >= 0 {
			return clean(after[:i]), clean(after[i+len(" by "):])
		}
		return clean(after), ""
	}
	if after, ok := strings.CutPrefix(rest, "by "); ok {
		return "", clean(after)
	}
	return "", ""
}

// parseTagLine parses the 'tags: rock, metal' line into tag names.
func parseTagLine(line string) []string {
	line = strings.TrimPrefix(line, "tags:")
	var tags []string
	for _, t := range strings.Split(line, ",") {
		if t = clean(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Tags implements catalog.Provider. The tag hub is fetched once per client.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	c.tagsOnce.Do(func() {
		doc, err := c.fetch(ctx, c.baseURL+"/tags")
		if err != nil {
			c.tagsErr = fmt.Errorf("bandcamp: tags: %w", err)
			return
		}
		doc.Find("a.tag").Each(func(_ int, sel *goquery.Selection) {
			if name := clean(sel.Text()); name != "" {
				c.tags = append(c.tags, name)
			}
		})
	})
	return c.tags, c.tagsErr
}

// fetch GETs rawURL and parses the response body as HTML.
func (c *Client) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, nil
}

// narrow converts a mixed-kind match sequence into a single-kind one,
// silently skipping entries of other kinds.
func narrow[T catalog.Match](seq iter.Seq2[catalog.Match, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for match, err := range seq {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			typed, ok := match.(T)
			if !ok {
				continue
			}
			if !yield(typed, nil) {
				return
			}
		}
	}
}

// clean collapses interior whitespace and trims the result. Search page HTML
// is heavily indented, so scraped strings arrive full of newlines.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// firstAttr returns the named attribute of the selection's first node, or "".
func firstAttr(sel *goquery.Selection, name string) string {
	v, _ := sel.First().Attr(name)
	return v
}

// stripQuery removes the ?from=search style tracking suffix Bandcamp appends
// to result links, so URLs stay stable for deduplication.
func stripQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// tralbum is the JSON payload embedded on track and album pages.
type tralbum struct {
	Artist  string `json:"artist"`
	Current struct {
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"current"`
	TrackInfo []struct {
		Title     string            `json:"title"`
		TitleLink string            `json:"title_link"`
		Duration  float64           `json:"duration"`
		File      map[string]string `json:"file"`
	} `json:"trackinfo"`
}

// StreamURL implements catalog.Provider. It fetches the track page and
// returns the first mp3-128 stream from the embedded tralbum payload.
func (c *Client) StreamURL(ctx context.Context, pageURL string) (string, error) {
	data, err := c.fetchTralbum(ctx, pageURL)
	if err != nil {
		return "", err
	}
	for _, t := range data.TrackInfo {
		if stream := t.File["mp3-128"]; stream != "" {
			return stream, nil
		}
	}
	return "", fmt.Errorf("bandcamp: %s: %w", pageURL, catalog.ErrNotFound)
}

// AlbumDetails implements catalog.Provider. It fetches the album page and
// returns the full record, tracklist included.
func (c *Client) AlbumDetails(ctx context.Context, albumURL string) (*catalog.AlbumMatch, error) {
	data, err := c.fetchTralbum(ctx, albumURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(albumURL)
	if err != nil {
		return nil, fmt.Errorf("bandcamp: album url %q: %w", albumURL, err)
	}

	album := &catalog.AlbumMatch{
		Title:  data.Current.Title,
		URL:    stripQuery(albumURL),
		Artist: data.Artist,
	}
	for _, t := range data.TrackInfo {
		trackURL := t.TitleLink
		if ref, err := base.Parse(t.TitleLink); err == nil {
			trackURL = ref.String()
		}
		album.Tracks = append(album.Tracks, catalog.TrackMatch{
			Title:     t.Title,
			URL:       stripQuery(trackURL),
			Artist:    data.Artist,
			Album:     data.Current.Title,
			Duration:  time.Duration(t.Duration * float64(time.Second)),
			StreamURL: t.File["mp3-128"],
		})
	}
	if len(album.Tracks) > 0 {
		album.FeaturedTrack = &album.Tracks[0]
	}
	return album, nil
}

// fetchTralbum fetches a track or album page and decodes its data-tralbum
// attribute.
func (c *Client) fetchTralbum(ctx context.Context, pageURL string) (*tralbum, error) {
	doc, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("bandcamp: fetch %s: %w", pageURL, err)
	}

	raw, ok := doc.Find("script[data-tralbum]").First().Attr("data-tralbum")
	if !ok {
		return nil, fmt.Errorf("bandcamp: %s: no tralbum payload: %w", pageURL, catalog.ErrNotFound)
	}

	var data tralbum
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("bandcamp: %s: decode tralbum: %w", pageURL, err)
	}
	return &data, nil
}
