package recommend

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/llehouerou/beatfinder/internal/config"
	"github.com/llehouerou/beatfinder/internal/lastfm"
	"github.com/llehouerou/beatfinder/internal/library"
)

// progressInterval is how many seed completions pass between progress
// log lines.
const progressInterval = 50

// Engine generates recommendations from a classified library.
type Engine struct {
	stats  map[string]library.ArtistStats
	class  library.Classification
	client MetadataClient
	cfg    config.Config

	artistBlacklist map[string]struct{} // normalized
	log             zerolog.Logger
}

// NewEngine builds an engine. cfg is expected to be defaults-applied.
func NewEngine(
	stats map[string]library.ArtistStats,
	class library.Classification,
	client MetadataClient,
	cfg config.Config,
	log zerolog.Logger,
) *Engine {
	blacklist := make(map[string]struct{}, len(cfg.Filters.ArtistBlacklist))
	for _, name := range cfg.Filters.ArtistBlacklist {
		blacklist[library.NormalizeName(name)] = struct{}{}
	}

	return &Engine{
		stats:           stats,
		class:           class,
		client:          client,
		cfg:             cfg,
		artistBlacklist: blacklist,
		log:             log,
	}
}

// Generate produces the ranked recommendation list for the given rarity
// preference. An empty seed set yields an empty result, not an error;
// a protocol-level client failure aborts the whole run.
func (e *Engine) Generate(rarityPref int) ([]Recommendation, error) {
	rarityPref = config.ClampRarity(rarityPref)

	seeds := e.class.Loved
	if len(seeds) == 0 {
		e.log.Warn().Msg("no loved artists found, nothing to recommend")
		return []Recommendation{}, nil
	}
	e.log.Info().Int("seeds", len(seeds)).Msg("analysing loved artists")

	var profile map[string]float64
	if e.cfg.Scoring.EnableTagSimilarity {
		var err error
		profile, err = e.buildTagProfile(seeds)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := e.aggregate(seeds)
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("candidates", len(candidates)).Msg("aggregation complete")

	e.filterByTags(candidates)

	recs := e.scoreAll(candidates, profile, rarityPref)
	sortByScore(recs)

	if err := e.refineTop(recs); err != nil {
		return nil, err
	}
	sortByScore(recs)

	return recs, nil
}

type seedResult struct {
	seed    string
	similar []lastfm.SimilarArtist
	err     error
}

// aggregate fans out one similar-artists lookup per seed over a bounded
// worker pool and folds results into the candidate map on the calling
// goroutine. Per-seed failures are counted and skipped; a protocol error
// aborts.
func (e *Engine) aggregate(seeds []string) (map[string]*candidate, error) {
	sem := make(chan struct{}, e.cfg.Lastfm.MaxConcurrentRequests)
	results := make(chan seedResult)

	var wg sync.WaitGroup
	for _, seed := range seeds {
		wg.Add(1)
		go func(seed string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			similar, err := e.client.SimilarArtists(seed, e.cfg.Recommendations.SimilarArtistLimit)
			results <- seedResult{seed: seed, similar: similar, err: err}
		}(seed)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	candidates := make(map[string]*candidate)
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
				e.log.Warn().Str("seed", res.seed).Err(res.err).Msg("seed lookup failed")
			}
			continue
		}
		if fatal != nil {
			continue
		}

		for _, sim := range res.similar {
			e.fold(candidates, res.seed, sim)
		}

		if completed%progressInterval == 0 || completed == len(seeds) {
			e.log.Info().
				Int("completed", completed).
				Int("total", len(seeds)).
				Int("failed", failed).
				Msg("seed fan-out progress")
		}
	}

	if fatal != nil {
		return nil, fatal
	}
	return candidates, nil
}

// fold merges one similar-artist hit into the candidate map.
func (e *Engine) fold(candidates map[string]*candidate, seed string, sim lastfm.SimilarArtist) {
	if e.skipCandidate(sim.Name) {
		return
	}

	c, ok := candidates[sim.Name]
	if !ok {
		c = &candidate{name: sim.Name, tagSet: make(map[string]struct{})}
		candidates[sim.Name] = c
	}

	c.recommendedBy = append(c.recommendedBy, seed)
	c.matchScores = append(c.matchScores, sim.Match)
	c.listeners = sim.Listeners // last writer wins
	c.addTags(sim.Tags)

	if e.cfg.Scoring.EnablePlayFrequencyWeighting {
		weight := 1
		if stats, ok := e.stats[seed]; ok {
			weight = stats.PlayCount
		}
		c.recommenderWeights = append(c.recommenderWeights, weight)
	}
}

// skipCandidate applies the per-candidate exclusion rules: already known
// (by normalized name, raw-name stats, or any collaborator), disliked, or
// blacklisted.
func (e *Engine) skipCandidate(name string) bool {
	norm := library.NormalizeName(name)

	if _, ok := e.class.Known[norm]; ok {
		return true
	}
	if stats, ok := e.stats[name]; ok {
		if stats.PlayCount >= e.cfg.Classification.KnownMinPlayCount ||
			stats.TrackCount >= e.cfg.Classification.KnownMinTracks {
			return true
		}
	}
	if e.class.ContainsKnownArtist(name) {
		return true
	}
	if _, ok := e.class.Disliked[norm]; ok {
		return true
	}
	if _, ok := e.artistBlacklist[norm]; ok {
		return true
	}
	return false
}

// sortByScore orders best-first, with a name tiebreak so equal scores
// rank deterministically.
func sortByScore(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].Name < recs[j].Name
	})
}
