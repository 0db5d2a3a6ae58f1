// Package config loads beatfinder configuration from layered TOML files
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/beatfinder/internal/library"
)

type Config struct {
	// Path to the parsed library stats JSON document.
	StatsFile string `koanf:"stats_file"`

	Lastfm          LastfmConfig          `koanf:"lastfm"`
	Classification  ClassificationConfig  `koanf:"classification"`
	Scoring         ScoringConfig         `koanf:"scoring"`
	Filters         FiltersConfig         `koanf:"filters"`
	Recommendations RecommendationsConfig `koanf:"recommendations"`
}

// LastfmConfig holds API access settings.
type LastfmConfig struct {
	APIKey                string `koanf:"api_key"`
	MaxRequestsPerSecond  int    `koanf:"max_requests_per_second"` // default: 5
	MaxConcurrentRequests int    `koanf:"max_concurrent_requests"` // worker pool size (default: 10)
	CacheExpiryDays       int    `koanf:"cache_expiry_days"`       // metadata cache (default: 7)
}

// ClassificationConfig holds the thresholds that sort library artists
// into known, loved and disliked.
type ClassificationConfig struct {
	KnownMinPlayCount       int `koanf:"known_min_play_count"`       // default: 3
	KnownMinTracks          int `koanf:"known_min_tracks"`           // default: 5
	LovedPlayCountThreshold int `koanf:"loved_play_count_threshold"` // default: 50
	LovedMinTrackRating     int `koanf:"loved_min_track_rating"`     // 1-5 stars (default: 4)
	LovedMinArtistPlays     int `koanf:"loved_min_artist_plays"`     // default: 10
	DislikedMinTrackCount   int `koanf:"disliked_min_track_count"`   // default: 2
	LastMonthsFilter        int `koanf:"last_months_filter"`         // 0 = no time filter
}

// ScoringConfig selects and tunes the scoring policy.
type ScoringConfig struct {
	RarityPreference             int     `koanf:"rarity_preference"` // 1-15 (default: 7)
	EnableTagSimilarity          bool    `koanf:"enable_tag_similarity"`
	EnablePlayFrequencyWeighting bool    `koanf:"enable_play_frequency_weighting"`
	FrequencyWeight              float64 `koanf:"frequency_weight"`   // default: 0.3
	TagOverlapWeight             float64 `koanf:"tag_overlap_weight"` // default: 0.3
	MatchWeight                  float64 `koanf:"match_weight"`       // default: 0.2
	RarityWeight                 float64 `koanf:"rarity_weight"`      // default: 0.2
}

// FiltersConfig holds the exclusion lists applied to candidates.
type FiltersConfig struct {
	TagBlacklist     []string `koanf:"tag_blacklist"`       // candidates carrying these tags are dropped
	TagBlacklistTopN int      `koanf:"tag_blacklist_top_n"` // 0 = check all tags, N = only the first N
	ArtistBlacklist  []string `koanf:"artist_blacklist"`
	TagIgnoreList    []string `koanf:"tag_ignore_list"` // tags excluded from the taste profile
}

// RecommendationsConfig holds output sizing and caching.
type RecommendationsConfig struct {
	Max                int `koanf:"max"`                  // default: 15
	SimilarArtistLimit int `koanf:"similar_artist_limit"` // per-seed fan-out (default: 20)
	CacheExpiryDays    int `koanf:"cache_expiry_days"`    // default: 7
}

// Load reads config files in priority order (last wins), then applies
// environment variable overrides.
func Load() (*Config, error) {
	k := koanf.New(".")

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	// Comma-separated env values for list options
	splitSliceKeys(k,
		"filters.tag_blacklist",
		"filters.artist_blacklist",
		"filters.tag_ignore_list",
	)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.StatsFile != "" {
		cfg.StatsFile = expandPath(cfg.StatsFile)
	}

	return cfg, nil
}

func configPaths() []string {
	paths := []string{}

	// 1. ~/.config/beatfinder/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "beatfinder", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

// envTransformFunc maps environment variable names to config keys.
// Unrecognized variables are skipped. Examples:
//   - LASTFM_API_KEY -> lastfm.api_key
//   - KNOWN_ARTIST_MIN_PLAY_COUNT -> classification.known_min_play_count
//   - REC_TAG_BLACKLIST -> filters.tag_blacklist
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"STATS_FILE": "stats_file",

		"LASTFM_API_KEY":          "lastfm.api_key",
		"MAX_REQUESTS_PER_SECOND": "lastfm.max_requests_per_second",
		"MAX_CONCURRENT_REQUESTS": "lastfm.max_concurrent_requests",
		"CACHE_EXPIRY_DAYS":       "lastfm.cache_expiry_days",

		"KNOWN_ARTIST_MIN_PLAY_COUNT":  "classification.known_min_play_count",
		"KNOWN_ARTIST_MIN_TRACKS":      "classification.known_min_tracks",
		"LOVED_PLAY_COUNT_THRESHOLD":   "classification.loved_play_count_threshold",
		"LOVED_MIN_TRACK_RATING":       "classification.loved_min_track_rating",
		"LOVED_MIN_ARTIST_PLAYS":       "classification.loved_min_artist_plays",
		"LIB_DISLIKED_MIN_TRACK_COUNT": "classification.disliked_min_track_count",
		"LAST_MONTHS_FILTER":           "classification.last_months_filter",

		"RARITY_PREFERENCE":               "scoring.rarity_preference",
		"ENABLE_TAG_SIMILARITY":           "scoring.enable_tag_similarity",
		"ENABLE_PLAY_FREQUENCY_WEIGHTING": "scoring.enable_play_frequency_weighting",
		"SCORING_FREQUENCY_WEIGHT":        "scoring.frequency_weight",
		"SCORING_TAG_OVERLAP_WEIGHT":      "scoring.tag_overlap_weight",
		"SCORING_MATCH_WEIGHT":            "scoring.match_weight",
		"SCORING_RARITY_WEIGHT":           "scoring.rarity_weight",

		"REC_TAG_BLACKLIST":            "filters.tag_blacklist",
		"REC_TAG_BLACKLIST_TOP_N_TAGS": "filters.tag_blacklist_top_n",
		"REC_ARTISTS_BLACKLIST":        "filters.artist_blacklist",
		"LIB_TAG_IGNORE_LIST":          "filters.tag_ignore_list",

		"MAX_RECOMMENDATIONS":               "recommendations.max",
		"SIMILAR_ARTIST_LIMIT":              "recommendations.similar_artist_limit",
		"RECOMMENDATIONS_CACHE_EXPIRY_DAYS": "recommendations.cache_expiry_days",
	}
	return envMappings[key]
}

// splitSliceKeys turns comma-separated string values into string slices
// for the named keys. Empty fragments are dropped.
func splitSliceKeys(k *koanf.Koanf, keys ...string) {
	for _, key := range keys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		_ = k.Set(key, parts)
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// Normalized returns a copy with defaults applied and out-of-range
// values clamped.
func (c *Config) Normalized() Config {
	cfg := *c

	if cfg.Lastfm.MaxRequestsPerSecond <= 0 {
		cfg.Lastfm.MaxRequestsPerSecond = 5
	}
	if cfg.Lastfm.MaxConcurrentRequests <= 0 {
		cfg.Lastfm.MaxConcurrentRequests = 10
	}
	if cfg.Lastfm.CacheExpiryDays <= 0 {
		cfg.Lastfm.CacheExpiryDays = 7
	}

	if cfg.Classification.KnownMinPlayCount <= 0 {
		cfg.Classification.KnownMinPlayCount = 3
	}
	if cfg.Classification.KnownMinTracks <= 0 {
		cfg.Classification.KnownMinTracks = 5
	}
	if cfg.Classification.LovedPlayCountThreshold <= 0 {
		cfg.Classification.LovedPlayCountThreshold = 50
	}
	if cfg.Classification.LovedMinTrackRating <= 0 || cfg.Classification.LovedMinTrackRating > 5 {
		cfg.Classification.LovedMinTrackRating = 4
	}
	if cfg.Classification.LovedMinArtistPlays <= 0 {
		cfg.Classification.LovedMinArtistPlays = 10
	}
	if cfg.Classification.DislikedMinTrackCount <= 0 {
		cfg.Classification.DislikedMinTrackCount = 2
	}
	if cfg.Classification.LastMonthsFilter < 0 {
		cfg.Classification.LastMonthsFilter = 0
	}

	if cfg.Scoring.RarityPreference == 0 {
		cfg.Scoring.RarityPreference = 7
	}
	cfg.Scoring.RarityPreference = ClampRarity(cfg.Scoring.RarityPreference)
	if cfg.Scoring.FrequencyWeight <= 0 {
		cfg.Scoring.FrequencyWeight = 0.3
	}
	if cfg.Scoring.TagOverlapWeight <= 0 {
		cfg.Scoring.TagOverlapWeight = 0.3
	}
	if cfg.Scoring.MatchWeight <= 0 {
		cfg.Scoring.MatchWeight = 0.2
	}
	if cfg.Scoring.RarityWeight <= 0 {
		cfg.Scoring.RarityWeight = 0.2
	}

	if cfg.Filters.TagBlacklistTopN < 0 {
		cfg.Filters.TagBlacklistTopN = 0
	}

	if cfg.Recommendations.Max <= 0 {
		cfg.Recommendations.Max = 15
	}
	if cfg.Recommendations.SimilarArtistLimit <= 0 {
		cfg.Recommendations.SimilarArtistLimit = 20
	}
	if cfg.Recommendations.CacheExpiryDays <= 0 {
		cfg.Recommendations.CacheExpiryDays = 7
	}

	return cfg
}

// ClampRarity bounds a rarity preference to the 1-15 dial.
func ClampRarity(p int) int {
	if p < 1 {
		return 1
	}
	if p > 15 {
		return 15
	}
	return p
}

// Thresholds returns the classification thresholds in the shape the
// library classifier consumes.
func (c *Config) Thresholds() library.Thresholds {
	return library.Thresholds{
		KnownMinPlayCount:       c.Classification.KnownMinPlayCount,
		KnownMinTracks:          c.Classification.KnownMinTracks,
		LovedPlayCountThreshold: c.Classification.LovedPlayCountThreshold,
		LovedMinTrackRating:     c.Classification.LovedMinTrackRating,
		LovedMinArtistPlays:     c.Classification.LovedMinArtistPlays,
		DislikedMinTrackCount:   c.Classification.DislikedMinTrackCount,
		LastMonthsFilter:        c.Classification.LastMonthsFilter,
	}
}
