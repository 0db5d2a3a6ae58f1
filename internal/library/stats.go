// Package library holds the per-artist statistics extracted from a music
// library export and the classification rules the recommendation engine
// applies to them.
package library

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ArtistStats aggregates one artist's library statistics. It is produced
// by an external export parser and never mutated by the engine.
type ArtistStats struct {
	PlayCount          int        `json:"play_count"`
	TrackCount         int        `json:"track_count"`
	Loved              bool       `json:"loved"`
	Disliked           bool       `json:"disliked"`
	LovedTrackCount    int        `json:"loved_track_count"`
	DislikedTrackCount int        `json:"disliked_track_count"`
	Rating             int        `json:"rating"` // 0-100 (stars x 20)
	LastPlayed         *time.Time `json:"last_played,omitempty"`
}

// LoadStats reads a parsed-library document: a JSON object mapping artist
// name to statistics.
func LoadStats(path string) (map[string]ArtistStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stats file: %w", err)
	}

	var stats map[string]ArtistStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode stats file %s: %w", path, err)
	}

	return stats, nil
}
