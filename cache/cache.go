// Package cache implements the on-disk fetch cache shared by every fetch
// task in a run. Entries are content-addressed by the sha256 of the
// normalized request URL and persist across runs, which is what makes
// cache-only (no-download) runs possible.
//
// There is no eviction: the cache grows until the operator prunes the
// directory. Staleness is the caller's concern via Refresh.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"newsmill/logger"
)

// ErrMiss is returned on a cache miss when downloads are disabled.
var ErrMiss = errors.New("cache: entry not resident and downloads are disabled")

// FetchFunc performs the actual network fetch for a key. It returns the
// payload and its content type.
type FetchFunc func(ctx context.Context) ([]byte, string, error)

// Meta is the sidecar record written next to every payload.
type Meta struct {
	URL         string    `json:"url"`
	FetchedAt   time.Time `json:"fetched_at"`
	ContentType string    `json:"content_type,omitempty"`
	ETag        string    `json:"etag,omitempty"`
}

// Cache is safe for concurrent use. At most one network fetch per key is in
// flight at any time; concurrent callers for the same key share the result.
type Cache struct {
	dir        string
	noDownload bool
	group      singleflight.Group
}

// New opens (and creates if needed) a cache rooted at dir.
func New(dir string, noDownload bool) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	return &Cache{dir: dir, noDownload: noDownload}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string { return c.dir }

// GetOrFetch returns the cached payload for key, fetching and persisting it
// on a miss. In no-download mode a miss returns ErrMiss.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fn FetchFunc) ([]byte, error) {
	digest := Key(key)
	if data, err := os.ReadFile(c.payloadPath(digest)); err == nil {
		return data, nil
	}

	v, err, _ := c.group.Do(digest, func() (interface{}, error) {
		// A concurrent caller may have populated the entry while we waited
		// on the flight group.
		if data, err := os.ReadFile(c.payloadPath(digest)); err == nil {
			return data, nil
		}
		if c.noDownload {
			return nil, fmt.Errorf("%w: %s", ErrMiss, key)
		}
		return c.fetchAndStore(ctx, key, digest, fn)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Refresh bypasses any resident entry and re-fetches the key, replacing the
// stored payload. It still collapses concurrent refreshes of the same key.
func (c *Cache) Refresh(ctx context.Context, key string, fn FetchFunc) ([]byte, error) {
	if c.noDownload {
		return nil, fmt.Errorf("%w: %s", ErrMiss, key)
	}
	digest := Key(key)
	v, err, _ := c.group.Do("refresh\x00"+digest, func() (interface{}, error) {
		return c.fetchAndStore(ctx, key, digest, fn)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Contains reports whether key is resident on disk.
func (c *Cache) Contains(key string) bool {
	_, err := os.Stat(c.payloadPath(Key(key)))
	return err == nil
}

func (c *Cache) fetchAndStore(ctx context.Context, key, digest string, fn FetchFunc) ([]byte, error) {
	data, contentType, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	meta := Meta{URL: key, FetchedAt: time.Now().UTC(), ContentType: contentType}
	if err := c.store(digest, data, meta); err != nil {
		// A write failure should not lose the fetched payload for this run.
		logger.Log.WithField("key", key).Warnf("cache write failed: %v", err)
	}
	return data, nil
}

// store writes payload and sidecar atomically so readers never observe a
// partial entry.
func (c *Cache) store(digest string, data []byte, meta Meta) error {
	if err := writeAtomic(c.payloadPath(digest), data); err != nil {
		return err
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeAtomic(c.metaPath(digest), raw)
}

// ReadMeta returns the sidecar record for a resident key.
func (c *Cache) ReadMeta(key string) (*Meta, error) {
	raw, err := os.ReadFile(c.metaPath(Key(key)))
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// WriteNamed stores an arbitrary derived artifact (e.g. a generated
// thumbnail) under the cache dir, atomically, and returns its full path.
func (c *Cache) WriteNamed(name string, data []byte) (string, error) {
	path := filepath.Join(c.dir, name)
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// HasNamed reports whether a derived artifact is already present.
func (c *Cache) HasNamed(name string) bool {
	_, err := os.Stat(filepath.Join(c.dir, name))
	return err == nil
}

func (c *Cache) payloadPath(digest string) string {
	return filepath.Join(c.dir, digest)
}

func (c *Cache) metaPath(digest string) string {
	return filepath.Join(c.dir, digest+".meta.json")
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
