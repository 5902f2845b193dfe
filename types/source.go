package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// Source is one configured publisher feed entry, produced by the catalog
// loader from a single row of a curated CSV file. A Source is immutable for
// the duration of a run and identified by (Locale, ID).
type Source struct {
	ID                 string   `json:"publisher_id"`
	Locale             string   `json:"locale,omitempty"`
	Name               string   `json:"publisher_name"`
	FeedURL            string   `json:"feed_url"`
	SiteURL            string   `json:"site_url"`
	Enabled            bool     `json:"enabled"`
	Category           string   `json:"category"`
	ContentType        string   `json:"content_type"`
	Score              float64  `json:"score"`
	Priority           int      `json:"rank,omitempty"`
	DestinationDomains []string `json:"destination_domains"`
	Channels           []string `json:"channels,omitempty"`
	OGImages           bool     `json:"og_images,omitempty"`
	MaxEntries         int      `json:"max_entries,omitempty"`
	FaviconURL         string   `json:"favicon_url,omitempty"`
	CoverURL           string   `json:"cover_url,omitempty"`
	BackgroundColor    string   `json:"background_color,omitempty"`
}

// SourceLocale records one locale's view of a source in the global catalog.
type SourceLocale struct {
	Locale   string   `json:"locale"`
	Rank     int      `json:"rank,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// GlobalSource is a source merged across locales, keyed by ID. The record
// fields come from the first locale that defined the source; every locale
// that lists it contributes an entry to Locales.
type GlobalSource struct {
	Source
	Locales []SourceLocale `json:"locales"`
}

// SourceID derives the stable publisher id from the feed URL.
func SourceID(feedURL string) string {
	sum := sha256.Sum256([]byte(feedURL))
	return hex.EncodeToString(sum[:])
}
