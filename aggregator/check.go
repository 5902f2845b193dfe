package aggregator

import (
	"fmt"

	"newsmill/types"
)

// CheckReport validates a run report for silent data loss. It returns one
// problem per finding; an empty slice means the report is internally
// consistent. This is the machine check downstream automation runs after
// every aggregation.
func CheckReport(r *types.RunReport) []string {
	var problems []string

	if got := r.OKCount + r.PartialCount + r.FailedCount; got != r.TotalSources {
		problems = append(problems, fmt.Sprintf(
			"status counts sum to %d but the run saw %d sources", got, r.TotalSources))
	}

	for _, o := range r.PerSource {
		if o.Status == types.StatusFailed {
			continue
		}
		if o.ArticlesKept > o.EntriesFetched {
			problems = append(problems, fmt.Sprintf(
				"%s: kept %d articles but only fetched %d entries",
				o.SourceID, o.ArticlesKept, o.EntriesFetched))
		}
		if o.EntriesFetched == 0 {
			problems = append(problems, fmt.Sprintf(
				"%s: feed yielded no entries", o.SourceID))
		}
		if o.ArticlesKept == 0 {
			problems = append(problems, fmt.Sprintf(
				"%s: no entries survived normalization", o.SourceID))
		}
	}
	return problems
}
