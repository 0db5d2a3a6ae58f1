package recommend

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/llehouerou/beatfinder/internal/lastfm"
)

type tagsResult struct {
	seed string
	tags []string
	err  error
}

// buildTagProfile fetches the top tags of every seed and folds them into
// a normalized tag-weight map. When play-frequency weighting is enabled a
// seed contributes its play count instead of 1 per tag.
func (e *Engine) buildTagProfile(seeds []string) (map[string]float64, error) {
	e.log.Info().Msg("building taste profile from loved artists")

	ignore := make(map[string]struct{}, len(e.cfg.Filters.TagIgnoreList))
	for _, t := range e.cfg.Filters.TagIgnoreList {
		ignore[strings.ToLower(t)] = struct{}{}
	}

	sem := make(chan struct{}, e.cfg.Lastfm.MaxConcurrentRequests)
	results := make(chan tagsResult)

	var wg sync.WaitGroup
	for _, seed := range seeds {
		wg.Add(1)
		go func(seed string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tags, err := e.client.TopTags(seed, 10)
			results <- tagsResult{seed: seed, tags: tags, err: err}
		}(seed)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	counts := make(map[string]float64)
	var total float64
	var completed, failed int
	var fatal error

	for res := range results {
		completed++

		if res.err != nil {
			var perr *lastfm.ProtocolError
			if errors.As(res.err, &perr) {
				if fatal == nil {
					fatal = res.err
				}
			} else {
				failed++
			}
			continue
		}
		if fatal != nil {
			continue
		}

		// A seed missing from stats weighs 1; a seed present with zero
		// plays weighs 0 and contributes nothing.
		weight := 1.0
		if e.cfg.Scoring.EnablePlayFrequencyWeighting {
			if stats, ok := e.stats[res.seed]; ok {
				weight = float64(stats.PlayCount)
			}
		}

		for _, tag := range res.tags {
			lower := strings.ToLower(tag)
			if _, ok := ignore[lower]; ok {
				continue
			}
			counts[lower] += weight
			total += weight
		}

		if completed%progressInterval == 0 || completed == len(seeds) {
			e.log.Info().
				Int("completed", completed).
				Int("total", len(seeds)).
				Int("failed", failed).
				Msg("taste profile progress")
		}
	}

	if fatal != nil {
		return nil, fatal
	}

	profile := make(map[string]float64, len(counts))
	for tag, count := range counts {
		if total > 0 {
			profile[tag] = count / total
		}
	}

	e.log.Info().Strs("top_tags", topProfileTags(profile, 10)).Msg("taste profile built")
	return profile, nil
}

// tagSimilarity scores how well an artist's tags match the profile:
// the mean profile weight over its non-ignored tags.
func (e *Engine) tagSimilarity(tags []string, profile map[string]float64) float64 {
	if len(profile) == 0 || len(tags) == 0 {
		return 0
	}

	ignore := make(map[string]struct{}, len(e.cfg.Filters.TagIgnoreList))
	for _, t := range e.cfg.Filters.TagIgnoreList {
		ignore[strings.ToLower(t)] = struct{}{}
	}

	var sum float64
	var count int
	for _, tag := range tags {
		lower := strings.ToLower(tag)
		if _, ok := ignore[lower]; ok {
			continue
		}
		sum += profile[lower]
		count++
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func topProfileTags(profile map[string]float64, n int) []string {
	tags := make([]string, 0, len(profile))
	for tag := range profile {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if profile[tags[i]] != profile[tags[j]] {
			return profile[tags[i]] > profile[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}
