package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Article is a normalized feed entry. It is derived from one raw feed item
// and never mutated after the owning source's outcome is assembled.
type Article struct {
	SourceID     string    `json:"publisher_id"`
	SourceName   string    `json:"publisher_name"`
	Title        string    `json:"title"`
	URL          string    `json:"url"`
	URLHash      string    `json:"url_hash"`
	PublishedAt  time.Time `json:"publish_time"`
	Summary      string    `json:"description"`
	Category     string    `json:"category"`
	ContentType  string    `json:"content_type"`
	ImageURL     string    `json:"img,omitempty"`
	ThumbnailRef string    `json:"padded_img,omitempty"`
	Score        float64   `json:"score"`
}

// FeedDocument is the engine's aggregated output artifact: every article
// from sources that reached ok or partial status, deduplicated by URL and
// sorted by publish time descending.
type FeedDocument struct {
	Articles []Article `json:"articles"`
}

// URLHash derives the stable content hash recorded on every article.
func URLHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
