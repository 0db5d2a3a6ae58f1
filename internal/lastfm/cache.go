package lastfm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// cacheDocument is the on-disk shape of the metadata cache: one timestamp
// governing expiry of the whole document, plus the raw decoded results
// keyed by method and normalized artist name.
type cacheDocument struct {
	Timestamp time.Time                  `json:"timestamp"`
	Data      map[string]json.RawMessage `json:"data"`
}

// Cache stores decoded API responses, shared by all client operations. A
// single mutex guards the in-memory map and its on-disk mirror.
type Cache struct {
	mu   sync.Mutex
	path string
	doc  cacheDocument
}

// OpenCache loads the cache document at path, starting fresh when the
// file is absent, corrupt, or older than expiry. Cache corruption is a
// full miss, never an error. An empty path keeps the cache in memory
// only.
func OpenCache(path string, expiry time.Duration) *Cache {
	c := &Cache{
		path: path,
		doc:  cacheDocument{Timestamp: time.Now(), Data: make(map[string]json.RawMessage)},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}

	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil || doc.Data == nil {
		return c
	}
	if time.Since(doc.Timestamp) >= expiry {
		return c
	}

	c.doc = doc
	return c
}

// get unmarshals the cached value for key into out and reports whether
// the key was present.
func (c *Cache) get(key string, out any) bool {
	c.mu.Lock()
	raw, ok := c.doc.Data[key]
	c.mu.Unlock()

	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// put stores a value and mirrors the whole document to disk. A value is
// stored on every cache miss, empty results included, so a transient
// fetch failure is not retried until the document itself expires.
func (c *Cache) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Data[key] = raw
	return c.flushLocked()
}

func (c *Cache) flushLocked() error {
	if c.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(c.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.doc.Data)
}
