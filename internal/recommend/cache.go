package recommend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// cacheDocument is the on-disk shape of a cached recommendation run.
type cacheDocument struct {
	Timestamp         time.Time        `json:"timestamp"`
	RarityPreference  int              `json:"rarity_preference"`
	LovedArtistsCount int              `json:"loved_artists_count"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// Cache persists the output of one generation run so repeat invocations
// with the same rarity preference skip the network entirely.
type Cache struct {
	path   string
	expiry time.Duration
	log    zerolog.Logger
}

func NewCache(path string, expiry time.Duration, log zerolog.Logger) *Cache {
	return &Cache{path: path, expiry: expiry, log: log}
}

// Save writes the run result. lovedCount records how many seeds produced
// it, for display on later cache hits.
func (c *Cache) Save(recs []Recommendation, lovedCount, rarityPref int) error {
	doc := cacheDocument{
		Timestamp:         time.Now(),
		RarityPreference:  rarityPref,
		LovedArtistsCount: lovedCount,
		Recommendations:   recs,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recommendations cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write recommendations cache: %w", err)
	}
	return nil
}

// Load returns the cached run when it is still inside the expiry window
// and was generated with the same rarity preference. Everything else,
// corruption included, is a miss.
func (c *Cache) Load(rarityPref int) ([]Recommendation, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}

	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		c.log.Warn().Err(err).Msg("recommendations cache unreadable, regenerating")
		return nil, false
	}

	age := time.Since(doc.Timestamp)
	if age >= c.expiry {
		c.log.Info().Dur("age", age).Msg("recommendations cache expired")
		return nil, false
	}
	if doc.RarityPreference != rarityPref {
		c.log.Info().
			Int("cached", doc.RarityPreference).
			Int("requested", rarityPref).
			Msg("rarity preference changed, regenerating")
		return nil, false
	}

	c.log.Info().
		Int("count", len(doc.Recommendations)).
		Dur("age", age).
		Msg("loaded recommendations from cache")
	return doc.Recommendations, true
}
