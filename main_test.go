package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsmill/catalog"
	"newsmill/config"
)

func writeSources(t *testing.T, dir, locale, header string) {
	t.Helper()
	path := filepath.Join(dir, "sources."+locale+".csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"\n"), 0o644))
}

func TestLoadCatalogsCollectsEverySchemaError(t *testing.T) {
	dir := t.TempDir()
	good := strings.Join(catalog.Header, ",")
	writeSources(t, dir, "en_US", "Totally,Wrong,Header")
	writeSources(t, dir, "en_GB", "Also,Wrong")
	writeSources(t, dir, "ja_JP", good)

	cfg := &config.Config{
		Locales:    []string{"en_US", "en_GB", "ja_JP"},
		SourcesDir: dir,
	}

	catalogs, schemaErr, err := loadCatalogs(cfg, catalog.LoadLookups(dir))
	require.NoError(t, err)
	require.Error(t, schemaErr)
	assert.ErrorIs(t, schemaErr, catalog.ErrSchema)
	assert.Contains(t, schemaErr.Error(), "en_US")
	assert.Contains(t, schemaErr.Error(), "en_GB")

	require.Len(t, catalogs, 1)
	assert.Contains(t, catalogs, "ja_JP")
}

func TestLoadCatalogsMissingFileIsFatal(t *testing.T) {
	cfg := &config.Config{
		Locales:    []string{"en_US"},
		SourcesDir: t.TempDir(),
	}

	_, _, err := loadCatalogs(cfg, catalog.LoadLookups(cfg.SourcesDir))
	assert.ErrorIs(t, err, catalog.ErrMissingSources)
}
