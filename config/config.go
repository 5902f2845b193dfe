package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration validation errors. All of them are fatal: a run never
// starts with a broken configuration.
var (
	ErrNoLocales          = errors.New("at least one locale is required (NEWSMILL_LOCALES)")
	ErrInvalidConcurrency = errors.New("NEWSMILL_CONCURRENCY must be at least 1")
	ErrInvalidMaxAttempts = errors.New("NEWSMILL_MAX_ATTEMPTS must be at least 1")
	ErrInvalidTimeout     = errors.New("NEWSMILL_REQUEST_TIMEOUT must be positive")
	ErrInvalidDeadline    = errors.New("NEWSMILL_RUN_DEADLINE must be positive")
)

// Config holds every option the engine recognizes. Values come from the
// environment (a .env file is loaded first when present).
type Config struct {
	Locales    []string
	SourcesDir string
	OutputDir  string
	CacheDir   string

	UserAgent       string
	Concurrency     int
	MaxAttempts     int
	RequestTimeout  time.Duration
	RunDeadline     time.Duration
	MaxSummaryRunes int

	// NoDownload switches the engine into cache-only mode: every fetch must
	// be satisfied from the disk cache, and lookup files are not pulled from
	// remote storage.
	NoDownload bool

	// NoUpload disables copying produced artifacts to remote storage.
	NoUpload bool

	ThumbWidth   int
	ThumbHeight  int
	ThumbQuality int

	S3Bucket    string
	S3Region    string
	S3Prefix    string
	S3PathStyle bool

	LogLevel string
	LogJSON  bool
}

// Load reads the configuration from the environment, applying defaults for
// everything but the locale list.
func Load() (*Config, error) {
	// A missing .env is fine; real deployments pass plain env vars.
	_ = godotenv.Load()

	cfg := &Config{
		Locales:    splitList(os.Getenv("NEWSMILL_LOCALES")),
		SourcesDir: envOrDefault("NEWSMILL_SOURCES_DIR", "sources"),
		OutputDir:  envOrDefault("NEWSMILL_OUTPUT_DIR", "output"),
		CacheDir:   envOrDefault("NEWSMILL_CACHE_DIR", "output/cache"),

		UserAgent: envOrDefault("NEWSMILL_USER_AGENT",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/107.0.0.0 Safari/537.36"),
		Concurrency:     envOrDefaultInt("NEWSMILL_CONCURRENCY", DefaultConcurrency),
		MaxAttempts:     envOrDefaultInt("NEWSMILL_MAX_ATTEMPTS", DefaultMaxAttempts),
		RequestTimeout:  envOrDefaultDuration("NEWSMILL_REQUEST_TIMEOUT", DefaultRequestTimeout),
		RunDeadline:     envOrDefaultDuration("NEWSMILL_RUN_DEADLINE", DefaultRunDeadline),
		MaxSummaryRunes: envOrDefaultInt("NEWSMILL_MAX_SUMMARY_RUNES", MaxSummaryRunes),

		NoDownload: envBool("NEWSMILL_NO_DOWNLOAD"),
		NoUpload:   envBool("NEWSMILL_NO_UPLOAD"),

		ThumbWidth:   envOrDefaultInt("NEWSMILL_THUMB_WIDTH", ThumbnailWidth),
		ThumbHeight:  envOrDefaultInt("NEWSMILL_THUMB_HEIGHT", ThumbnailHeight),
		ThumbQuality: envOrDefaultInt("NEWSMILL_THUMB_QUALITY", ThumbnailQuality),

		S3Bucket:    strings.TrimSpace(os.Getenv("NEWSMILL_S3_BUCKET")),
		S3Region:    strings.TrimSpace(os.Getenv("NEWSMILL_S3_REGION")),
		S3Prefix:    strings.Trim(strings.TrimSpace(os.Getenv("NEWSMILL_S3_PREFIX")), "/"),
		S3PathStyle: envBool("NEWSMILL_S3_PATH_STYLE"),

		LogLevel: envOrDefault("NEWSMILL_LOG_LEVEL", "info"),
		LogJSON:  envBool("NEWSMILL_LOG_JSON"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface mid-run.
func (c *Config) Validate() error {
	if len(c.Locales) == 0 {
		return ErrNoLocales
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RunDeadline <= 0 {
		return ErrInvalidDeadline
	}
	return nil
}

// SourcesCSV returns the curated CSV path for one locale.
func (c *Config) SourcesCSV(locale string) string {
	return fmt.Sprintf("%s/sources.%s.csv", c.SourcesDir, locale)
}

// SourcesJSON returns the output catalog path for one locale.
func (c *Config) SourcesJSON(locale string) string {
	return fmt.Sprintf("%s/sources.%s.json", c.OutputDir, locale)
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envBool(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1"
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
