package lastfm

// SimilarArtist is one entry of an artist.getSimilar response, enriched
// with the artist's top tags.
type SimilarArtist struct {
	Name      string   `json:"name"`
	Match     float64  `json:"match"`     // 0.0-1.0 similarity score
	Listeners int      `json:"listeners"` // 0 when Last.fm omits it
	Tags      []string `json:"tags"`
}

// ArtistInfo is the artist.getInfo summary used for the refinement pass.
type ArtistInfo struct {
	Listeners int      `json:"listeners"`
	Playcount int      `json:"playcount"`
	Tags      []string `json:"tags"`
}
