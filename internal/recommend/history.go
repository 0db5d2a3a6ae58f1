package recommend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunRecord summarizes one completed generation run.
type RunRecord struct {
	Timestamp            time.Time `json:"timestamp"`
	RarityPreference     int       `json:"rarity_preference"`
	LovedArtistsCount    int       `json:"loved_artists_count"`
	RecommendationsCount int       `json:"recommendations_count"`
}

// maxHistoryEntries bounds the history file; the oldest runs fall off.
const maxHistoryEntries = 50

// History keeps a newest-first log of past runs in the data directory.
// Unlike the caches it is never cleared by a refresh.
type History struct {
	path string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

// Append records a run. A corrupt history file is replaced rather than
// failing the run that just succeeded.
func (h *History) Append(rec RunRecord) error {
	records, err := h.load()
	if err != nil {
		records = nil
	}
	records = append([]RunRecord{rec}, records...)
	if len(records) > maxHistoryEntries {
		records = records[:maxHistoryEntries]
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	if err := os.WriteFile(h.path, data, 0o644); err != nil {
		return fmt.Errorf("write run history: %w", err)
	}
	return nil
}

// Load returns past runs, newest first. A missing file is an empty
// history.
func (h *History) Load() ([]RunRecord, error) {
	records, err := h.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

func (h *History) load() ([]RunRecord, error) {
	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run history: %w", err)
	}

	var records []RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode run history: %w", err)
	}
	return records, nil
}
