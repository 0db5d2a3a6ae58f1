// Package recommend turns loved-artist seeds into a ranked list of new
// artists: concurrent similar-artist aggregation, candidate filtering,
// scoring under the configured policy, and result caching.
package recommend

import (
	"github.com/llehouerou/beatfinder/internal/lastfm"
)

// MetadataClient is the slice of the Last.fm client the engine consumes.
type MetadataClient interface {
	SimilarArtists(name string, limit int) ([]lastfm.SimilarArtist, error)
	TopTags(name string, limit int) ([]string, error)
	ArtistInfo(name string) (lastfm.ArtistInfo, error)
}

// candidate accumulates everything learned about one potential
// recommendation across seeds.
type candidate struct {
	name               string
	recommendedBy      []string
	matchScores        []float64
	recommenderWeights []int // seed play counts, when frequency weighting is on
	listeners          int   // last writer wins
	tags               []string
	tagSet             map[string]struct{}
}

// addTags unions tags in first-seen order. Order matters: the top-N tag
// blacklist only inspects the leading tags.
func (c *candidate) addTags(tags []string) {
	for _, t := range tags {
		if _, ok := c.tagSet[t]; ok {
			continue
		}
		c.tagSet[t] = struct{}{}
		c.tags = append(c.tags, t)
	}
}

// Recommendation is one scored output record. The JSON shape matches the
// recommendation cache document.
type Recommendation struct {
	Name          string   `json:"name"`
	Score         float64  `json:"score"`
	Frequency     int      `json:"frequency"` // number of seeds that surfaced this artist
	AvgMatch      float64  `json:"avg_match"`
	RecommendedBy []string `json:"recommended_by"`
	Listeners     int      `json:"listeners"`
	Tags          []string `json:"tags"` // at most 10
	RarityScore   float64  `json:"rarity_score"`
	TagSimilarity float64  `json:"tag_similarity"`
	RarityPref    int      `json:"rarity_pref"`
}
