package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/llehouerou/beatfinder/internal/config"
	"github.com/llehouerou/beatfinder/internal/lastfm"
	"github.com/llehouerou/beatfinder/internal/library"
	"github.com/llehouerou/beatfinder/internal/recommend"
)

func main() {
	rarity := flag.Int("rarity", 0, "rarity preference 1-15 (0 = use config)")
	limit := flag.Int("limit", 0, "number of recommendations to print (0 = use config)")
	statsPath := flag.String("stats", "", "path to the parsed library stats JSON (overrides config)")
	refreshCache := flag.Bool("refresh-cache", false, "clear the metadata cache before running")
	refreshRecs := flag.Bool("refresh-recommendations", false, "ignore cached recommendations")
	refreshAll := flag.Bool("refresh-all", false, "clear all caches before running")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if *refreshAll {
		*refreshCache = true
		*refreshRecs = true
	}

	if err := run(log, *rarity, *limit, *statsPath, *refreshCache, *refreshRecs); err != nil {
		printRemediation(err)
		os.Exit(1)
	}
}

func run(log zerolog.Logger, rarityFlag, limitFlag int, statsPath string, refreshCache, refreshRecs bool) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if statsPath != "" {
		loaded.StatsFile = statsPath
	}
	cfg := loaded.Normalized()

	rarity := cfg.Scoring.RarityPreference
	if rarityFlag != 0 {
		rarity = config.ClampRarity(rarityFlag)
	}
	limit := cfg.Recommendations.Max
	if limitFlag > 0 {
		limit = limitFlag
	}

	metaCachePath, err := xdg.CacheFile("beatfinder/lastfm_cache.json")
	if err != nil {
		return fmt.Errorf("resolve metadata cache path: %w", err)
	}
	recCachePath, err := xdg.CacheFile("beatfinder/recommendations_cache.json")
	if err != nil {
		return fmt.Errorf("resolve recommendations cache path: %w", err)
	}
	historyPath, err := xdg.DataFile("beatfinder/run_history.json")
	if err != nil {
		return fmt.Errorf("resolve history path: %w", err)
	}

	if refreshCache {
		if err := os.Remove(metaCachePath); err == nil {
			log.Info().Msg("metadata cache cleared")
		}
	}
	if refreshRecs {
		if err := os.Remove(recCachePath); err == nil {
			log.Info().Msg("recommendations cache cleared")
		}
	}

	recCache := recommend.NewCache(recCachePath,
		time.Duration(cfg.Recommendations.CacheExpiryDays)*24*time.Hour, log)

	if recs, ok := recCache.Load(rarity); ok {
		printRecommendations(recs, limit)
		return nil
	}

	if cfg.StatsFile == "" {
		return errors.New("no library stats file configured (set stats_file, STATS_FILE, or pass -stats)")
	}
	stats, err := library.LoadStats(cfg.StatsFile)
	if err != nil {
		return err
	}
	log.Info().Int("artists", len(stats)).Str("file", cfg.StatsFile).Msg("library stats loaded")

	class := library.Classify(stats, cfg.Thresholds(), time.Now())
	log.Info().
		Int("known", len(class.Known)).
		Int("disliked", len(class.Disliked)).
		Int("loved", len(class.Loved)).
		Msg("library classified")

	client, err := lastfm.New(cfg.Lastfm.APIKey,
		lastfm.WithMaxPerSecond(cfg.Lastfm.MaxRequestsPerSecond),
		lastfm.WithCache(lastfm.OpenCache(metaCachePath,
			time.Duration(cfg.Lastfm.CacheExpiryDays)*24*time.Hour)),
		lastfm.WithLogger(log),
	)
	if err != nil {
		return err
	}

	engine := recommend.NewEngine(stats, class, client, cfg, log)
	recs, err := engine.Generate(rarity)
	if err != nil {
		return err
	}

	if err := recCache.Save(recs, len(class.Loved), rarity); err != nil {
		log.Warn().Err(err).Msg("could not cache recommendations")
	}
	history := recommend.NewHistory(historyPath)
	if err := history.Append(recommend.RunRecord{
		Timestamp:            time.Now(),
		RarityPreference:     rarity,
		LovedArtistsCount:    len(class.Loved),
		RecommendationsCount: len(recs),
	}); err != nil {
		log.Warn().Err(err).Msg("could not record run history")
	}

	printRecommendations(recs, limit)
	return nil
}

func printRecommendations(recs []recommend.Recommendation, limit int) {
	if len(recs) == 0 {
		fmt.Println("No recommendations found. Try lowering the classification thresholds.")
		return
	}
	if len(recs) > limit {
		recs = recs[:limit]
	}

	fmt.Printf("\nTop %d recommendations:\n\n", len(recs))
	for i, rec := range recs {
		fmt.Printf("%2d. %s (score %.3f)\n", i+1, rec.Name, rec.Score)
		fmt.Printf("    %s listeners, recommended by %d loved artist(s)\n",
			humanize.Comma(int64(rec.Listeners)), rec.Frequency)
		if len(rec.Tags) > 0 {
			tags := rec.Tags
			if len(tags) > 5 {
				tags = tags[:5]
			}
			fmt.Printf("    tags: %s\n", strings.Join(tags, ", "))
		}
	}
}

func printRemediation(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var perr *lastfm.ProtocolError
	switch {
	case errors.Is(err, lastfm.ErrAPIKeyMissing):
		fmt.Fprintln(os.Stderr, "\nSet your Last.fm API key before running:")
		fmt.Fprintln(os.Stderr, "  export LASTFM_API_KEY=your_key")
		fmt.Fprintln(os.Stderr, "or add it to ~/.config/beatfinder/config.toml:")
		fmt.Fprintln(os.Stderr, "  [lastfm]")
		fmt.Fprintln(os.Stderr, "  api_key = \"your_key\"")
		fmt.Fprintln(os.Stderr, "\nGet a key at https://www.last.fm/api/account/create")
	case errors.As(err, &perr):
		fmt.Fprintln(os.Stderr, "\nThe Last.fm API returned a response this tool could not decode.")
		fmt.Fprintln(os.Stderr, "This usually means the API key is invalid or revoked.")
		if perr.Body != "" {
			fmt.Fprintf(os.Stderr, "Response excerpt: %s\n", perr.Body)
		}
	}
}
