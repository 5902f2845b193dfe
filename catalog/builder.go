package catalog

import (
	"sort"

	"github.com/samber/lo"

	"newsmill/logger"
	"newsmill/types"
)

// Conflict records a global-merge disagreement: a later locale defined the
// same source id with a different field value. The first-encountered value
// is kept; the conflict is surfaced instead of silently picking a variant.
type Conflict struct {
	SourceID string `json:"publisher_id"`
	Locale   string `json:"locale"`
	Field    string `json:"field"`
	Kept     string `json:"kept"`
	Dropped  string `json:"dropped"`
}

// BuildGlobal folds every locale's catalog into one global catalog. Locales
// are visited in the order given (the configured order, which makes the
// merge deterministic); within a locale, sources keep file order. The first
// locale to define an id wins the record; later locales only contribute a
// locale entry.
func BuildGlobal(locales []string, catalogs map[string]*Catalog) ([]types.GlobalSource, []Conflict) {
	merged := make(map[string]*types.GlobalSource)
	var order []string
	var conflicts []Conflict

	for _, locale := range locales {
		cat, ok := catalogs[locale]
		if !ok {
			continue
		}
		for _, src := range cat.Sources {
			entry := types.SourceLocale{
				Locale:   locale,
				Rank:     src.Priority,
				Channels: src.Channels,
			}

			existing, seen := merged[src.ID]
			if !seen {
				gs := types.GlobalSource{Source: src, Locales: []types.SourceLocale{entry}}
				gs.Locale = "" // locale lives in the Locales list
				merged[src.ID] = &gs
				order = append(order, src.ID)
				continue
			}

			conflicts = append(conflicts, diffSources(existing.Source, src, locale)...)
			if hasLocale(existing.Locales, locale) {
				continue
			}
			existing.Locales = append(existing.Locales, entry)
		}
	}

	for _, c := range conflicts {
		logger.Log.WithFields(map[string]interface{}{
			"publisher_id": c.SourceID,
			"locale":       c.Locale,
			"field":        c.Field,
		}).Warnf("conflict: keeping %q, dropping %q", c.Kept, c.Dropped)
	}

	global := lo.Map(order, func(id string, _ int) types.GlobalSource {
		return *merged[id]
	})

	// Publisher name order, ids as the deterministic tie-break.
	sort.SliceStable(global, func(i, j int) bool {
		if global[i].Name != global[j].Name {
			return global[i].Name < global[j].Name
		}
		return global[i].ID < global[j].ID
	})
	return global, conflicts
}

// SortedByName returns the catalog's sources in the canonical output order.
func (c *Catalog) SortedByName() []types.Source {
	out := make([]types.Source, len(c.Sources))
	copy(out, c.Sources)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func diffSources(kept, other types.Source, locale string) []Conflict {
	var out []Conflict
	record := func(field, k, d string) {
		if k != d {
			out = append(out, Conflict{
				SourceID: kept.ID,
				Locale:   locale,
				Field:    field,
				Kept:     k,
				Dropped:  d,
			})
		}
	}
	record("publisher_name", kept.Name, other.Name)
	record("feed_url", kept.FeedURL, other.FeedURL)
	record("category", kept.Category, other.Category)
	return out
}

func hasLocale(entries []types.SourceLocale, locale string) bool {
	return lo.ContainsBy(entries, func(e types.SourceLocale) bool {
		return e.Locale == locale
	})
}
