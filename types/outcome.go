package types

import "time"

// Status is the terminal state of one source within a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// ErrorKind classifies why a source failed or was degraded. Empty for ok.
type ErrorKind string

const (
	ErrorNone      ErrorKind = ""
	ErrorFetch     ErrorKind = "fetch"
	ErrorTimeout   ErrorKind = "timeout"
	ErrorParse     ErrorKind = "parse"
	ErrorCacheMiss ErrorKind = "cache_miss"
)

// SourceOutcome is the result of processing one source. Produced exactly
// once per source per run and never mutated afterwards. A failed outcome
// carries zero articles.
type SourceOutcome struct {
	SourceID       string    `json:"publisher_id"`
	FeedURL        string    `json:"feed_url"`
	Status         Status    `json:"status"`
	Error          ErrorKind `json:"error,omitempty"`
	Articles       []Article `json:"-"`
	EntriesFetched int       `json:"size_after_get"`
	ArticlesKept   int       `json:"size_after_insert"`
	DroppedEntries int       `json:"dropped_entries,omitempty"`
}

// RunReport is the machine-checkable record of one aggregation run. It is
// written alongside feed.json so downstream validation can detect silent
// data loss even when the run itself "succeeded".
type RunReport struct {
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration_ns"`
	TotalSources int             `json:"total_sources"`
	OKCount      int             `json:"ok_count"`
	PartialCount int             `json:"partial_count"`
	FailedCount  int             `json:"failed_count"`
	PerSource    []SourceOutcome `json:"feed_stats"`
}
