// Package feeds fetches publisher feed documents and normalizes their
// entries into articles. gofeed gives every feed flavor (RSS, Atom, JSON
// feed) the same item shape, so one conversion function covers them all.
package feeds

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"newsmill/config"
	"newsmill/scrub"
	"newsmill/types"
)

// ErrUnparsable marks a feed document the parser rejected outright.
var ErrUnparsable = errors.New("feeds: unparsable feed document")

// NormalizeResult carries the per-source normalization stats the run report
// needs alongside the kept articles.
type NormalizeResult struct {
	Articles       []types.Article
	EntriesFetched int
	Dropped        int
}

// Normalizer converts raw feed documents into normalized articles.
type Normalizer struct {
	MaxSummaryRunes int
	Now             func() time.Time
}

func NewNormalizer(maxSummaryRunes int) *Normalizer {
	return &Normalizer{MaxSummaryRunes: maxSummaryRunes, Now: time.Now}
}

// Normalize parses a fetched feed document for one source. A well-formed
// document with zero entries is valid; entries missing required fields are
// dropped and counted, never fatal.
func (n *Normalizer) Normalize(data []byte, src types.Source) (*NormalizeResult, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	maxEntries := src.MaxEntries
	if maxEntries <= 0 {
		maxEntries = config.DefaultMaxEntries
	}
	items := feed.Items
	if len(items) > maxEntries {
		items = items[:maxEntries]
	}

	res := &NormalizeResult{EntriesFetched: len(feed.Items)}
	for _, item := range items {
		article, ok := n.articleFromItem(item, src)
		if !ok {
			res.Dropped++
			continue
		}
		res.Articles = append(res.Articles, article)
	}
	return res, nil
}

// articleFromItem is the single conversion point from the parser's item
// shape to the canonical article.
func (n *Normalizer) articleFromItem(item *gofeed.Item, src types.Source) (types.Article, bool) {
	title := scrub.Text(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return types.Article{}, false
	}

	published, ok := n.publishTime(item)
	if !ok {
		return types.Article{}, false
	}
	if !n.withinWindow(published, src.ContentType) {
		return types.Article{}, false
	}

	if !allowedDomain(link, src.DestinationDomains) {
		return types.Article{}, false
	}

	encoded, hash := canonicalURL(link)

	summary := scrub.Text(item.Description)
	if summary == "" {
		summary = scrub.Text(item.Content)
	}

	return types.Article{
		SourceID:    src.ID,
		SourceName:  src.Name,
		Title:       title,
		URL:         encoded,
		URLHash:     hash,
		PublishedAt: published,
		Summary:     truncateRunes(summary, n.MaxSummaryRunes),
		Category:    src.Category,
		ContentType: src.ContentType,
		ImageURL:    pickImage(item),
	}, true
}

// publishTime prefers the update timestamp over the original publish
// timestamp, falling back to lenient parsing of the raw strings.
func (n *Normalizer) publishTime(item *gofeed.Item) (time.Time, bool) {
	switch {
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC(), true
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC(), true
	}
	for _, raw := range []string{item.Updated, item.Published} {
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// withinWindow drops stale and future-dated entries. Product listings have
// no meaningful publish cadence and are exempt.
func (n *Normalizer) withinWindow(published time.Time, contentType string) bool {
	if contentType == "product" {
		return true
	}
	now := n.Now().UTC()
	return !published.After(now) && published.After(now.Add(-config.MaxArticleAge))
}

// allowedDomain enforces the curated destination-domain list when one is
// configured for the source.
func allowedDomain(link string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// canonicalURL percent-encodes the path and returns the encoded URL with
// its content hash.
func canonicalURL(link string) (string, string) {
	u, err := url.Parse(link)
	if err != nil {
		return link, types.URLHash(link)
	}
	// Dropping RawPath forces String to re-encode the path canonically.
	u.RawPath = ""
	encoded := u.String()
	return encoded, types.URLHash(encoded)
}

// truncateRunes cuts s to at most max runes. Deterministic by construction.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
