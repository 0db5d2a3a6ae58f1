package recommend

import (
	"errors"

	"github.com/llehouerou/beatfinder/internal/lastfm"
)

// refineLimit caps how many top-ranked entries get an authoritative
// listener-count lookup. Entries below it keep the provisional count
// reported alongside the similar-artist results.
const refineLimit = 100

// rarityWeights maps the 1-15 rarity dial onto the three weights of the
// default policy. The weights always sum to 1.
func rarityWeights(pref int) (rarity, frequency, match float64) {
	p := float64(pref)
	rarity = 0.1 + (p-1)*0.4/14
	frequency = 0.5 - (p-1)*0.15/14
	match = 1 - rarity - frequency
	return rarity, frequency, match
}

// rarityScore is monotonically decreasing in listeners and bounded in
// (0, 1]. A zero listener count is treated as 1, never as unknown.
func rarityScore(listeners int) float64 {
	if listeners < 1 {
		listeners = 1
	}
	return 1 / (1 + float64(listeners)/1_000_000)
}

// scoreAll turns the candidate map into scored records under the active
// policy. The feature-weighted policy applies when tag similarity or
// play-frequency weighting is enabled; otherwise the rarity dial governs.
func (e *Engine) scoreAll(candidates map[string]*candidate, profile map[string]float64, rarityPref int) []Recommendation {
	recs := make([]Recommendation, 0, len(candidates))

	for name, c := range candidates {
		frequency := len(c.recommendedBy)

		freqScore := float64(frequency)
		if e.cfg.Scoring.EnablePlayFrequencyWeighting && len(c.recommenderWeights) > 0 {
			var sum int
			for _, w := range c.recommenderWeights {
				sum += w
			}
			freqScore = float64(sum) / float64(len(c.recommenderWeights)) / 100
		}

		var matchSum float64
		for _, m := range c.matchScores {
			matchSum += m
		}
		avgMatch := matchSum / float64(len(c.matchScores))

		listeners := c.listeners
		if listeners < 1 {
			listeners = 1
		}
		rarity := rarityScore(listeners)

		var tagSim float64
		if e.cfg.Scoring.EnableTagSimilarity && len(profile) > 0 {
			tagSim = e.tagSimilarity(c.tags, profile)
		}

		tags := c.tags
		if len(tags) > 10 {
			tags = tags[:10]
		}

		recs = append(recs, Recommendation{
			Name:          name,
			Score:         e.combine(freqScore, tagSim, avgMatch, rarity, rarityPref),
			Frequency:     frequency,
			AvgMatch:      avgMatch,
			RecommendedBy: c.recommendedBy,
			Listeners:     listeners,
			Tags:          tags,
			RarityScore:   rarity,
			TagSimilarity: tagSim,
			RarityPref:    rarityPref,
		})
	}

	return recs
}

func (e *Engine) combine(freqScore, tagSim, avgMatch, rarity float64, rarityPref int) float64 {
	if e.cfg.Scoring.EnableTagSimilarity || e.cfg.Scoring.EnablePlayFrequencyWeighting {
		w := e.cfg.Scoring
		return freqScore*w.FrequencyWeight +
			tagSim*w.TagOverlapWeight +
			avgMatch*w.MatchWeight +
			rarity*w.RarityWeight
	}

	rw, fw, mw := rarityWeights(rarityPref)
	return freqScore*fw + avgMatch*mw + rarity*rw
}

// refineTop replaces provisional listener counts for the leading entries
// with authoritative ones and rescores them in place. Both policies use
// the raw recommendation count as the frequency term here. A lookup that
// returns no listeners leaves the entry untouched.
func (e *Engine) refineTop(recs []Recommendation) error {
	limit := min(refineLimit, len(recs))
	if limit == 0 {
		return nil
	}
	e.log.Info().Int("count", limit).Msg("refining top recommendations")

	for i := range recs[:limit] {
		rec := &recs[i]

		info, err := e.client.ArtistInfo(rec.Name)
		if err != nil {
			var perr *lastfm.ProtocolError
			if errors.As(err, &perr) {
				return err
			}
			e.log.Warn().Str("artist", rec.Name).Err(err).Msg("artist info lookup failed")
			continue
		}
		if info.Listeners <= 0 {
			continue
		}

		rec.Listeners = info.Listeners
		rec.RarityScore = rarityScore(info.Listeners)
		rec.Score = e.combine(float64(rec.Frequency), rec.TagSimilarity, rec.AvgMatch, rec.RarityScore, rec.RarityPref)
	}

	return nil
}
