package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NEWSMILL_LOCALES", "en_US")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"en_US"}, cfg.Locales)
	assert.Equal(t, "sources", cfg.SourcesDir)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, ThumbnailWidth, cfg.ThumbWidth)
	assert.False(t, cfg.NoDownload)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("NEWSMILL_LOCALES", "en_US, ja_JP ,en_GB")
	t.Setenv("NEWSMILL_CONCURRENCY", "16")
	t.Setenv("NEWSMILL_REQUEST_TIMEOUT", "5s")
	t.Setenv("NEWSMILL_NO_DOWNLOAD", "true")
	t.Setenv("NEWSMILL_NO_UPLOAD", "1")
	t.Setenv("NEWSMILL_S3_PREFIX", "/brave-today/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"en_US", "ja_JP", "en_GB"}, cfg.Locales)
	assert.Equal(t, 16, cfg.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.NoDownload)
	assert.True(t, cfg.NoUpload)
	assert.Equal(t, "brave-today", cfg.S3Prefix, "prefix is stored without surrounding slashes")
}

func TestLoadRequiresLocales(t *testing.T) {
	t.Setenv("NEWSMILL_LOCALES", "")
	_, err := Load()
	assert.ErrorIs(t, err, ErrNoLocales)
}

func TestLoadMalformedNumbersFallBack(t *testing.T) {
	t.Setenv("NEWSMILL_LOCALES", "en_US")
	t.Setenv("NEWSMILL_CONCURRENCY", "lots")
	t.Setenv("NEWSMILL_REQUEST_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Locales:        []string{"en_US"},
		Concurrency:    1,
		MaxAttempts:    1,
		RequestTimeout: time.Second,
		RunDeadline:    time.Minute,
	}
	assert.NoError(t, valid.Validate())

	c := valid
	c.Concurrency = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidConcurrency)

	c = valid
	c.MaxAttempts = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidMaxAttempts)

	c = valid
	c.RunDeadline = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalidDeadline)
}

func TestPathHelpers(t *testing.T) {
	c := Config{SourcesDir: "sources", OutputDir: "output"}
	assert.Equal(t, "sources/sources.en_US.csv", c.SourcesCSV("en_US"))
	assert.Equal(t, "output/sources.en_US.json", c.SourcesJSON("en_US"))
}
