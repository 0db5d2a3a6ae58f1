package library

import (
	"sort"
	"strings"
	"time"
)

// Thresholds holds the classification cutoffs. Callers are expected to
// pass defaults-applied configuration.
type Thresholds struct {
	KnownMinPlayCount       int
	KnownMinTracks          int
	LovedPlayCountThreshold int
	LovedMinTrackRating     int // stars, 1-5
	LovedMinArtistPlays     int
	DislikedMinTrackCount   int
	LastMonthsFilter        int // 0 disables the recency cutoff
}

// Classification is the engine's view of the library: which artists are
// already known (excluded from recommendations), which are disliked, and
// which are loved seeds for similarity lookups.
type Classification struct {
	Known    map[string]struct{} // normalized names
	Disliked map[string]struct{} // normalized names
	Loved    []string            // raw names, sorted, used as seeds
}

// Classify derives the classification sets from raw stats. Pure: the same
// stats, thresholds, and reference time always yield the same result.
func Classify(stats map[string]ArtistStats, th Thresholds, now time.Time) Classification {
	c := Classification{
		Known:    make(map[string]struct{}),
		Disliked: make(map[string]struct{}),
	}

	var cutoff time.Time
	if th.LastMonthsFilter > 0 {
		cutoff = now.AddDate(0, 0, -th.LastMonthsFilter*30)
	}

	for artist, s := range stats {
		if s.PlayCount >= th.KnownMinPlayCount || s.TrackCount >= th.KnownMinTracks {
			c.Known[NormalizeName(artist)] = struct{}{}
		}

		// A single loved track suppresses the disliked classification.
		if s.DislikedTrackCount >= th.DislikedMinTrackCount && s.LovedTrackCount == 0 {
			c.Disliked[NormalizeName(artist)] = struct{}{}
		}

		if !isLoved(s, th) {
			continue
		}
		if !cutoff.IsZero() && s.LastPlayed != nil && s.LastPlayed.Before(cutoff) {
			continue
		}
		c.Loved = append(c.Loved, artist)
	}

	sort.Strings(c.Loved)
	return c
}

func isLoved(s ArtistStats, th Thresholds) bool {
	switch {
	case s.Loved:
		return true
	case s.PlayCount >= th.LovedPlayCountThreshold:
		return true
	case s.Rating >= th.LovedMinTrackRating*20 && s.PlayCount >= th.LovedMinArtistPlays:
		return true
	}
	return false
}

// collabSeparators split a collaboration credit into individual artists.
var collabSeparators = []string{"&", ",", "feat.", "ft.", "featuring"}

// ContainsKnownArtist reports whether any collaborator named in candidate
// normalizes into the known set, so "Nas & Damian Marley" is suppressed
// when "Nas" is already in the library.
func (c Classification) ContainsKnownArtist(candidate string) bool {
	if _, ok := c.Known[NormalizeName(candidate)]; ok {
		return true
	}
	for _, frag := range SplitCollaborators(candidate) {
		if _, ok := c.Known[frag]; ok {
			return true
		}
	}
	return false
}

// SplitCollaborators splits a collaboration credit on the usual
// separators and returns the normalized non-empty fragments.
func SplitCollaborators(name string) []string {
	parts := []string{strings.ToLower(name)}
	for _, sep := range collabSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}

	frags := make([]string, 0, len(parts))
	for _, p := range parts {
		if norm := NormalizeName(p); norm != "" {
			frags = append(frags, norm)
		}
	}
	return frags
}
