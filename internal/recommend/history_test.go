package recommend

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHistory_AppendAndLoadNewestFirst(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "run_history.json"))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		err := h.Append(RunRecord{
			Timestamp:            base.AddDate(0, 0, i),
			RarityPreference:     7,
			LovedArtistsCount:    100 + i,
			RecommendationsCount: 15,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := h.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if !records[0].Timestamp.After(records[2].Timestamp) {
		t.Errorf("records not newest first: %v, %v", records[0].Timestamp, records[2].Timestamp)
	}
	if records[0].LovedArtistsCount != 102 {
		t.Errorf("newest record LovedArtistsCount = %d, want 102", records[0].LovedArtistsCount)
	}
}

func TestHistory_CappedAtFiftyEntries(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "run_history.json"))

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := range maxHistoryEntries + 5 {
		err := h.Append(RunRecord{
			Timestamp:         base.Add(time.Duration(i) * time.Hour),
			RarityPreference:  7,
			LovedArtistsCount: i,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	records, err := h.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != maxHistoryEntries {
		t.Fatalf("got %d records, want %d", len(records), maxHistoryEntries)
	}
	// Newest kept, oldest five dropped.
	if records[0].LovedArtistsCount != maxHistoryEntries+4 {
		t.Errorf("newest record = %d, want %d", records[0].LovedArtistsCount, maxHistoryEntries+4)
	}
	if records[len(records)-1].LovedArtistsCount != 5 {
		t.Errorf("oldest kept record = %d, want 5", records[len(records)-1].LovedArtistsCount)
	}
}

func TestHistory_MissingFileIsEmpty(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "run_history.json"))

	records, err := h.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from missing file", len(records))
	}
}

func TestHistory_CorruptFileIsReplacedOnAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_history.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(path)
	if err := h.Append(RunRecord{Timestamp: time.Now(), RarityPreference: 7}); err != nil {
		t.Fatalf("Append over corrupt file: %v", err)
	}

	records, err := h.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}
