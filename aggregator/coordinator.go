// Package aggregator drives a whole run: it fans the catalog out over a
// bounded worker pool, collects per-source outcomes, and assembles the
// final feed document and run report.
package aggregator

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"newsmill/logger"
	"newsmill/types"
)

// ErrEmptyCatalog aborts a run before any work: an empty catalog is a
// configuration problem, not a zero-article day.
var ErrEmptyCatalog = errors.New("aggregator: catalog has no enabled sources")

// SourceProcessor runs the per-source pipeline. Implemented by
// feeds.Processor; faked in tests.
type SourceProcessor interface {
	Process(ctx context.Context, src types.Source) types.SourceOutcome
}

// Coordinator owns the concurrency and deadline policy of a run.
type Coordinator struct {
	proc        SourceProcessor
	concurrency int
	deadline    time.Duration
	now         func() time.Time
}

func NewCoordinator(proc SourceProcessor, concurrency int, deadline time.Duration) *Coordinator {
	return &Coordinator{
		proc:        proc,
		concurrency: concurrency,
		deadline:    deadline,
		now:         time.Now,
	}
}

// Run processes every enabled source and returns the aggregated feed and
// report. A single source's failure never aborts the run; the only run
// errors are an empty catalog and (elsewhere) output I/O.
func (c *Coordinator) Run(ctx context.Context, sources []types.Source) (*types.FeedDocument, *types.RunReport, error) {
	var enabled []types.Source
	for _, src := range sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	if len(enabled) == 0 {
		return nil, nil, ErrEmptyCatalog
	}

	started := c.now().UTC()
	runCtx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	logger.Log.WithFields(map[string]interface{}{
		"sources":     len(enabled),
		"concurrency": c.concurrency,
	}).Info("starting aggregation run")

	outcomes := make([]types.SourceOutcome, len(enabled))
	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for i, src := range enabled {
		i, src := i, src
		g.Go(func() error {
			if runCtx.Err() != nil {
				// Deadline passed while this source was still queued.
				outcomes[i] = types.SourceOutcome{
					SourceID: src.ID,
					FeedURL:  src.FeedURL,
					Status:   types.StatusFailed,
					Error:    types.ErrorTimeout,
				}
				return nil
			}
			outcomes[i] = c.proc.Process(runCtx, src)
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors; outcomes carry the failures

	report := buildReport(started, c.now().UTC(), outcomes)
	doc := assembleFeed(enabled, outcomes)

	logger.Log.WithFields(map[string]interface{}{
		"ok":       report.OKCount,
		"partial":  report.PartialCount,
		"failed":   report.FailedCount,
		"articles": len(doc.Articles),
	}).Info("aggregation run finished")
	return doc, report, nil
}

func buildReport(started, finished time.Time, outcomes []types.SourceOutcome) *types.RunReport {
	report := &types.RunReport{
		StartedAt:    started,
		Duration:     finished.Sub(started),
		TotalSources: len(outcomes),
		PerSource:    outcomes,
	}
	for _, o := range outcomes {
		switch o.Status {
		case types.StatusOK:
			report.OKCount++
		case types.StatusPartial:
			report.PartialCount++
		default:
			report.FailedCount++
		}
	}
	return report
}

// assembleFeed merges ok and partial outcomes into the final document:
// stable order (publish time desc, source priority, url), then first-wins
// URL deduplication, then scoring.
func assembleFeed(sources []types.Source, outcomes []types.SourceOutcome) *types.FeedDocument {
	priority := make(map[string]int, len(sources))
	for _, src := range sources {
		priority[src.ID] = src.Priority
	}

	var articles []types.Article
	for _, o := range outcomes {
		if o.Status == types.StatusFailed {
			continue
		}
		articles = append(articles, o.Articles...)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i], articles[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		if pa, pb := rankValue(priority[a.SourceID]), rankValue(priority[b.SourceID]); pa != pb {
			return pa < pb
		}
		return a.URL < b.URL
	})

	seen := make(map[string]struct{}, len(articles))
	deduped := articles[:0]
	for _, a := range articles {
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		deduped = append(deduped, a)
	}

	scoreArticles(deduped)
	return &types.FeedDocument{Articles: deduped}
}

// rankValue orders ranks ascending with 0 (unranked) last.
func rankValue(rank int) int {
	if rank == 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}
