package recommend

import (
	"strings"
)

// filterByTags drops candidates whose tags intersect the configured tag
// blacklist. With a positive top-N only the leading N tags are inspected,
// so a blacklisted tag deep in the list does not disqualify an artist;
// zero means every tag counts.
func (e *Engine) filterByTags(candidates map[string]*candidate) {
	if len(e.cfg.Filters.TagBlacklist) == 0 {
		return
	}

	blacklist := make(map[string]struct{}, len(e.cfg.Filters.TagBlacklist))
	for _, t := range e.cfg.Filters.TagBlacklist {
		blacklist[strings.ToLower(t)] = struct{}{}
	}

	topN := e.cfg.Filters.TagBlacklistTopN
	dropped := 0

	for name, c := range candidates {
		tags := c.tags
		if topN > 0 && len(tags) > topN {
			tags = tags[:topN]
		}

		for _, tag := range tags {
			if _, ok := blacklist[strings.ToLower(tag)]; ok {
				delete(candidates, name)
				dropped++
				break
			}
		}
	}

	if dropped > 0 {
		e.log.Info().Int("dropped", dropped).Msg("candidates removed by tag blacklist")
	}
}
