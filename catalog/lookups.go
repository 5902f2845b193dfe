package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	"newsmill/config"
	"newsmill/logger"
	"newsmill/types"
)

// CoverInfo is the curated cover artwork for a publisher site.
type CoverInfo struct {
	CoverURL        string `json:"cover_url"`
	BackgroundColor string `json:"background_color"`
}

// Lookups hold the optional favicon and cover enrichment tables, keyed by
// publisher site URL. Missing files just mean no enrichment.
type Lookups struct {
	Favicons map[string]string
	Covers   map[string]CoverInfo
}

// LoadLookups reads the lookup files from dir when they exist. The files
// are maintained out-of-band (and mirrored from remote storage before a
// run unless downloads are disabled).
func LoadLookups(dir string) *Lookups {
	l := &Lookups{
		Favicons: map[string]string{},
		Covers:   map[string]CoverInfo{},
	}
	readJSON(filepath.Join(dir, config.FaviconLookupFile), &l.Favicons)
	readJSON(filepath.Join(dir, config.CoverInfoFile), &l.Covers)
	return l
}

// Apply enriches a source in place from the lookup tables.
func (l *Lookups) Apply(src *types.Source) {
	if fav, ok := l.Favicons[src.SiteURL]; ok {
		src.FaviconURL = fav
	}
	if cover, ok := l.Covers[src.SiteURL]; ok {
		src.CoverURL = cover.CoverURL
		src.BackgroundColor = cover.BackgroundColor
	}
}

func readJSON(path string, v interface{}) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Log.WithField("path", path).Warnf("lookup file unreadable: %v", err)
		}
		return
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logger.Log.WithField("path", path).Warnf("lookup file malformed: %v", err)
	}
}
