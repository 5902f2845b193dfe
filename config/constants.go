package config

import "time"

// Fetch limits.
const (
	// MaxFeedBytes caps the size of a downloaded feed document.
	MaxFeedBytes = 10 << 20

	// MaxImageBytes caps the size of a downloaded article image.
	MaxImageBytes = 5 << 20

	// DefaultRequestTimeout bounds a single HTTP request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxAttempts is the retry bound for transient fetch failures.
	DefaultMaxAttempts = 3

	// RetryInitialInterval is the first backoff delay between attempts.
	RetryInitialInterval = 500 * time.Millisecond

	// RetryMaxInterval caps the backoff delay between attempts.
	RetryMaxInterval = 8 * time.Second
)

// Aggregation defaults.
const (
	// DefaultConcurrency is the bounded worker-pool size for source tasks.
	DefaultConcurrency = 8

	// DefaultRunDeadline bounds a whole aggregation run.
	DefaultRunDeadline = 10 * time.Minute

	// DefaultMaxEntries is the per-feed entry cap when a source sets none.
	DefaultMaxEntries = 20

	// MaxArticleAge drops entries older than this; anything dated in the
	// future is dropped as well. Product-type sources are exempt.
	MaxArticleAge = 60 * 24 * time.Hour

	// MaxSummaryRunes is the deterministic truncation bound for summaries.
	MaxSummaryRunes = 500
)

// Thumbnail output constants.
const (
	// ThumbnailWidth is the padded thumbnail width in pixels.
	ThumbnailWidth = 1168

	// ThumbnailHeight is the padded thumbnail height in pixels.
	ThumbnailHeight = 657

	// ThumbnailQuality is the JPEG encoding quality.
	ThumbnailQuality = 80
)

// Artifact file names.
const (
	FeedFile          = "feed.json"
	ReportFile        = "report.json"
	GlobalSourcesFile = "sources.global.json"
	FaviconLookupFile = "favicon_lookup.json"
	CoverInfoFile     = "cover_info_lookup.json"
)
