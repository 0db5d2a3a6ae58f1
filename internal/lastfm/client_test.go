package lastfm

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New("test-key",
		WithBaseURL(srv.URL),
		WithMaxPerSecond(1000),
		WithCache(OpenCache(filepath.Join(t.TempDir(), "cache.json"), time.Hour)),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestNew_RejectsMissingKey(t *testing.T) {
	for _, key := range []string{"", "your_api_key_here"} {
		if _, err := New(key); !errors.Is(err, ErrAPIKeyMissing) {
			t.Errorf("New(%q) error = %v, want ErrAPIKeyMissing", key, err)
		}
	}
}

func TestClient_SimilarArtists(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "artist.getsimilar":
			w.Write([]byte(`{"similarartists":{"artist":[
				{"name":"MF DOOM","match":"0.85","listeners":"1200000"},
				{"name":"Madlib","match":"0.60","listeners":"800000"}
			]}}`))
		case "artist.gettoptags":
			w.Write([]byte(`{"toptags":{"tag":[{"name":"hip-hop"},{"name":"underground"}]}}`))
		default:
			t.Errorf("unexpected method %q", r.URL.Query().Get("method"))
		}
	}))

	similar, err := c.SimilarArtists("Nas", 20)
	if err != nil {
		t.Fatalf("SimilarArtists: %v", err)
	}
	if len(similar) != 2 {
		t.Fatalf("got %d similar artists, want 2", len(similar))
	}
	if similar[0].Name != "MF DOOM" || similar[0].Match != 0.85 || similar[0].Listeners != 1200000 {
		t.Errorf("similar[0] = %+v", similar[0])
	}
	if len(similar[0].Tags) != 2 || similar[0].Tags[0] != "hip-hop" {
		t.Errorf("similar[0].Tags = %v", similar[0].Tags)
	}
}

func TestClient_SimilarArtists_CachesResult(t *testing.T) {
	var calls atomic.Int64
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("method") == "artist.getsimilar" {
			w.Write([]byte(`{"similarartists":{"artist":[{"name":"Madlib","match":"0.6","listeners":"800000"}]}}`))
			return
		}
		w.Write([]byte(`{"toptags":{"tag":[]}}`))
	}))

	if _, err := c.SimilarArtists("Nas", 20); err != nil {
		t.Fatal(err)
	}
	after := calls.Load()

	// Repeat calls, with different surface casing, must all hit the cache.
	for _, name := range []string{"Nas", "NAS", "nas"} {
		if _, err := c.SimilarArtists(name, 20); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != after {
		t.Errorf("cached lookups issued %d extra requests", calls.Load()-after)
	}
}

func TestClient_TopTags_RespectsLimit(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"toptags":{"tag":[{"name":"a"},{"name":"b"},{"name":"c"},{"name":""}]}}`))
	}))

	tags, err := c.TopTags("Nas", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 || tags[0] != "a" || tags[1] != "b" {
		t.Errorf("tags = %v", tags)
	}
}

func TestClient_ArtistInfo(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"artist":{"stats":{"listeners":"3500000","playcount":"90000000"},
			"tags":{"tag":[{"name":"hip-hop"},{"name":"rap"}]}}}`))
	}))

	info, err := c.ArtistInfo("Nas")
	if err != nil {
		t.Fatal(err)
	}
	if info.Listeners != 3500000 || info.Playcount != 90000000 {
		t.Errorf("info = %+v", info)
	}
	if len(info.Tags) != 2 {
		t.Errorf("tags = %v", info.Tags)
	}
}

func TestClient_UndecodableBodyIsProtocolError(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<lfm status="failed">not json</lfm>`))
	}))

	_, err := c.ArtistInfo("Nas")
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ProtocolError", err)
	}
	if perr.Method != "artist.getinfo" {
		t.Errorf("Method = %q", perr.Method)
	}
	if perr.Body == "" {
		t.Error("expected response body excerpt in error")
	}
}

func TestClient_TransportFailureCachedAsEmpty(t *testing.T) {
	// A failed fetch yields an empty result that is cached like any other,
	// so the artist is not retried until the cache document expires.
	var calls atomic.Int64
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	similar, err := c.SimilarArtists("Nas", 20)
	if err != nil {
		t.Fatalf("SimilarArtists: %v", err)
	}
	if len(similar) != 0 {
		t.Errorf("got %d results from failed fetch, want 0", len(similar))
	}
	if calls.Load() != 1 {
		t.Fatalf("server saw %d requests, want 1", calls.Load())
	}

	if _, err := c.SimilarArtists("Nas", 20); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("failed fetch was retried: server saw %d requests", calls.Load())
	}
}

func TestClient_SendsRequiredParams(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api_key") != "test-key" {
			t.Errorf("api_key = %q", q.Get("api_key"))
		}
		if q.Get("format") != "json" {
			t.Errorf("format = %q", q.Get("format"))
		}
		if q.Get("artist") != "Earth, Wind & Fire" {
			t.Errorf("artist = %q", q.Get("artist"))
		}
		w.Write([]byte(`{"toptags":{"tag":[]}}`))
	}))

	if _, err := c.TopTags("Earth, Wind & Fire", 10); err != nil {
		t.Fatal(err)
	}
}
