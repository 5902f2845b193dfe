package aggregator

import (
	"math"

	"newsmill/types"
)

// scoreArticles assigns the ranking score consumed by the content surface:
// a log recency decay multiplied by a per-source variety penalty that
// doubles with each article the source already placed. Recency is anchored
// to the newest article in the feed rather than the wall clock so that
// identical inputs always score identically.
func scoreArticles(articles []types.Article) {
	if len(articles) == 0 {
		return
	}

	anchor := articles[0].PublishedAt
	for _, a := range articles {
		if a.PublishedAt.After(anchor) {
			anchor = a.PublishedAt
		}
	}

	variety := make(map[string]float64)
	for i := range articles {
		a := &articles[i]

		recency := 0.1
		if secondsAgo := anchor.Sub(a.PublishedAt).Seconds(); secondsAgo > 0 {
			recency = math.Log(secondsAgo)
		}

		last, ok := variety[a.SourceID]
		if !ok {
			last = 1.0
		}
		v := last * 2.0
		a.Score = recency * v
		variety[a.SourceID] = v
	}
}
