// Package lastfm implements a rate-limited, caching client for the
// Last.fm web API operations the recommendation engine relies on:
// artist.getSimilar, artist.getTopTags and artist.getInfo.
package lastfm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/beatfinder/internal/library"
)

const (
	defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"
	requestTimeout = 10 * time.Second
	placeholderKey = "your_api_key_here"
)

// ErrAPIKeyMissing is returned by New when no usable API key is
// configured. It is a configuration error: callers should print
// remediation steps and exit.
var ErrAPIKeyMissing = errors.New("last.fm API key not configured")

// ProtocolError reports a response body that could not be decoded. It is
// fatal for the whole run: in practice it means the API key is missing or
// invalid, and continuing would poison the cache with garbage.
type ProtocolError struct {
	Method string
	Body   string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("last.fm %s: undecodable response: %v", e.Method, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Client is a Last.fm API client. All operations are safe for concurrent
// use; every network call first passes through the shared rate limiter.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rateLimiter
	cache      *Cache
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithCache attaches a persistent response cache.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithMaxPerSecond sets the global request-rate ceiling.
func WithMaxPerSecond(n int) Option {
	return func(c *Client) { c.limiter = newRateLimiter(n) }
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// New creates a Client. The API key is validated eagerly so a missing or
// placeholder key fails before any work is done.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" || apiKey == placeholderKey {
		return nil, ErrAPIKeyMissing
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    newRateLimiter(5),
		cache:      OpenCache("", 0),
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Last.fm encodes most numbers as JSON strings; parse failures leave the
// zero value, matching how absent fields are treated.
type similarResponse struct {
	SimilarArtists struct {
		Artist []struct {
			Name      string `json:"name"`
			Match     string `json:"match"`
			Listeners string `json:"listeners"`
		} `json:"artist"`
	} `json:"similarartists"`
}

type topTagsResponse struct {
	TopTags struct {
		Tag []struct {
			Name string `json:"name"`
		} `json:"tag"`
	} `json:"toptags"`
}

type artistInfoResponse struct {
	Artist struct {
		Stats struct {
			Listeners string `json:"listeners"`
			Playcount string `json:"playcount"`
		} `json:"stats"`
		Tags struct {
			Tag []struct {
				Name string `json:"name"`
			} `json:"tag"`
		} `json:"tags"`
	} `json:"artist"`
}

// SimilarArtists returns artists similar to name, each enriched with its
// top tags, so a cold call issues up to 1+limit rate-limited requests.
// The decoded result, empty or not, is cached under the normalized name.
func (c *Client) SimilarArtists(name string, limit int) ([]SimilarArtist, error) {
	key := "similar_" + library.NormalizeName(name)

	var cached []SimilarArtist
	if c.cache.get(key, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("artist", name)
	params.Set("limit", strconv.Itoa(limit))

	var resp similarResponse
	ok, err := c.request("artist.getsimilar", params, &resp)
	if err != nil {
		return nil, err
	}

	similar := make([]SimilarArtist, 0)
	if ok {
		for _, a := range resp.SimilarArtists.Artist {
			similar = append(similar, SimilarArtist{
				Name:      a.Name,
				Match:     parseFloat(a.Match),
				Listeners: parseInt(a.Listeners),
			})
		}
	}

	for i := range similar {
		tags, err := c.TopTags(similar[i].Name, 10)
		if err != nil {
			return nil, err
		}
		similar[i].Tags = tags
	}

	if err := c.cache.put(key, similar); err != nil {
		c.log.Warn().Err(err).Msg("metadata cache write failed")
	}
	return similar, nil
}

// TopTags returns the top tags for an artist, most popular first.
func (c *Client) TopTags(name string, limit int) ([]string, error) {
	key := "tags_" + library.NormalizeName(name)

	var cached []string
	if c.cache.get(key, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("artist", name)
	params.Set("limit", strconv.Itoa(limit))

	var resp topTagsResponse
	ok, err := c.request("artist.gettoptags", params, &resp)
	if err != nil {
		return nil, err
	}

	tags := make([]string, 0)
	if ok {
		for _, t := range resp.TopTags.Tag {
			if t.Name != "" {
				tags = append(tags, t.Name)
			}
		}
		if len(tags) > limit {
			tags = tags[:limit]
		}
	}

	if err := c.cache.put(key, tags); err != nil {
		c.log.Warn().Err(err).Msg("metadata cache write failed")
	}
	return tags, nil
}

// ArtistInfo returns the authoritative listener and play counts for an
// artist, plus up to ten tags.
func (c *Client) ArtistInfo(name string) (ArtistInfo, error) {
	key := "info_" + library.NormalizeName(name)

	var cached ArtistInfo
	if c.cache.get(key, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("artist", name)

	var resp artistInfoResponse
	ok, err := c.request("artist.getinfo", params, &resp)
	if err != nil {
		return ArtistInfo{}, err
	}

	var info ArtistInfo
	if ok {
		info.Listeners = parseInt(resp.Artist.Stats.Listeners)
		info.Playcount = parseInt(resp.Artist.Stats.Playcount)
		for i, t := range resp.Artist.Tags.Tag {
			if i == 10 {
				break
			}
			info.Tags = append(info.Tags, t.Name)
		}
	}

	if err := c.cache.put(key, info); err != nil {
		c.log.Warn().Err(err).Msg("metadata cache write failed")
	}
	return info, nil
}

// request performs one rate-limited API call and decodes the JSON body
// into out. Transport failures (timeouts, connection errors, non-200
// statuses) are logged and reported as ok=false with a nil error so the
// caller proceeds with an empty result; an undecodable 200 body is a
// *ProtocolError.
func (c *Client) request(method string, params url.Values, out any) (bool, error) {
	params.Set("method", method)
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")

	c.limiter.acquire()

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequest(http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Str("method", method).Err(err).Msg("last.fm request failed")
		return false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Str("method", method).Str("status", resp.Status).Msg("last.fm request rejected")
		return false, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn().Str("method", method).Err(err).Msg("last.fm response read failed")
		return false, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, &ProtocolError{Method: method, Body: truncate(string(body), 200), Err: err}
	}
	return true, nil
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
