// Package catalog turns curated CSV publisher lists into validated source
// catalogs, one per locale, and merges them into the global catalog.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"newsmill/logger"
	"newsmill/scrub"
	"newsmill/types"
)

var (
	// ErrMissingSources means a configured locale has no CSV file. The
	// locale list is external configuration, so this is fatal.
	ErrMissingSources = errors.New("catalog: sources file not found")

	// ErrSchema means the CSV header does not match the curated schema.
	ErrSchema = errors.New("catalog: unexpected sources file header")
)

// Header is the fixed column schema of curated source files.
var Header = []string{
	"Domain", "Feed", "Title", "Category", "Status", "Score",
	"OG-Images", "Content Type", "Destination Domains", "Channels", "Rank",
}

// Column indexes into Header.
const (
	colDomain = iota
	colFeed
	colTitle
	colCategory
	colStatus
	colScore
	colOGImages
	colContentType
	colDestDomains
	colChannels
	colRank
)

// Catalog is the validated, ordered source list for one locale.
type Catalog struct {
	Locale        string
	Sources       []types.Source
	MalformedRows int
}

// LoadLocale parses the curated CSV for one locale. Rows missing required
// fields are skipped and counted; a bad header or missing file is an error.
func LoadLocale(path, locale string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (locale %s)", ErrMissingSources, path, locale)
		}
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	cat, err := parse(f, locale)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

func parse(r io.Reader, locale string) (*Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if !headerMatches(header) {
		return nil, fmt.Errorf("%w: got %q", ErrSchema, strings.Join(header, ","))
	}

	cat := &Catalog{Locale: locale}
	log := logger.Log.WithField("locale", locale)

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.WithField("line", line).Warnf("skipping unreadable row: %v", err)
			cat.MalformedRows++
			continue
		}

		src, ok := sourceFromRow(row, locale)
		if !ok {
			log.WithField("line", line).Warn("skipping row with missing required fields")
			cat.MalformedRows++
			continue
		}
		cat.Sources = append(cat.Sources, src)
	}
	return cat, nil
}

func headerMatches(header []string) bool {
	if len(header) != len(Header) {
		return false
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(col), Header[i]) {
			return false
		}
	}
	return true
}

// sourceFromRow builds one Source from a sanitized CSV row. Rows without a
// title or feed URL carry no useful signal and are rejected.
func sourceFromRow(row []string, locale string) (types.Source, bool) {
	if len(row) < len(Header) {
		return types.Source{}, false
	}
	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = scrub.Text(cell)
	}

	title := cells[colTitle]
	feedURL := forceHTTPS(cells[colFeed])
	if title == "" || feedURL == "" {
		return types.Source{}, false
	}

	contentType := cells[colContentType]
	if contentType == "" {
		contentType = "article"
	}

	score, _ := strconv.ParseFloat(cells[colScore], 64)
	rank, _ := strconv.Atoi(cells[colRank])

	return types.Source{
		ID:                 types.SourceID(feedURL),
		Locale:             locale,
		Name:               title,
		FeedURL:            feedURL,
		SiteURL:            ensureScheme(cells[colDomain]),
		Enabled:            strings.EqualFold(cells[colStatus], "Enabled"),
		Category:           cells[colCategory],
		ContentType:        contentType,
		Score:              score,
		Priority:           rank,
		DestinationDomains: splitMulti(cells[colDestDomains]),
		Channels:           splitMulti(cells[colChannels]),
		OGImages:           strings.EqualFold(cells[colOGImages], "On"),
		MaxEntries:         0, // 0 means: use the configured default
	}, true
}

// forceHTTPS rewrites the feed URL scheme to https. Curated sheets carry a
// mix of schemes; the proxy handles the actual downgrade when needed.
func forceHTTPS(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = "https"
	return u.String()
}

// ensureScheme prefixes bare domains with https://.
func ensureScheme(domain string) string {
	if domain == "" {
		return ""
	}
	if strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}

func splitMulti(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
