package lastfm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := OpenCache(path, time.Hour)
	if err := c.put("similar_nas", []SimilarArtist{{Name: "MF DOOM", Match: 0.8}}); err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened := OpenCache(path, time.Hour)
	var got []SimilarArtist
	if !reopened.get("similar_nas", &got) {
		t.Fatal("expected cache hit after reopen")
	}
	if len(got) != 1 || got[0].Name != "MF DOOM" || got[0].Match != 0.8 {
		t.Errorf("cached value = %+v", got)
	}
}

func TestCache_MissOnAbsentKey(t *testing.T) {
	c := OpenCache("", time.Hour)
	var out []string
	if c.get("tags_nobody", &out) {
		t.Error("expected miss for absent key")
	}
}

func TestCache_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := OpenCache(path, time.Hour)
	if c.Len() != 0 {
		t.Errorf("corrupt cache loaded %d entries, want 0", c.Len())
	}

	// A fresh cache over a corrupt file must still accept writes.
	if err := c.put("info_nas", ArtistInfo{Listeners: 100}); err != nil {
		t.Fatalf("put after corrupt load: %v", err)
	}
}

func TestCache_ExpiredDocumentStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	doc := cacheDocument{
		Timestamp: time.Now().Add(-48 * time.Hour),
		Data: map[string]json.RawMessage{
			"tags_nas": json.RawMessage(`["hip-hop"]`),
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	c := OpenCache(path, 24*time.Hour)
	if c.Len() != 0 {
		t.Errorf("expired cache loaded %d entries, want 0", c.Len())
	}
}

func TestCache_FreshDocumentSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	doc := cacheDocument{
		Timestamp: time.Now().Add(-1 * time.Hour),
		Data: map[string]json.RawMessage{
			"tags_nas": json.RawMessage(`["hip-hop"]`),
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	c := OpenCache(path, 24*time.Hour)
	var tags []string
	if !c.get("tags_nas", &tags) {
		t.Fatal("expected hit in unexpired cache")
	}
	if len(tags) != 1 || tags[0] != "hip-hop" {
		t.Errorf("tags = %v", tags)
	}
}

func TestCache_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")

	c := OpenCache(path, time.Hour)
	if err := c.put("tags_nas", []string{"hip-hop"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("cache file not created: %v", err)
	}
}
