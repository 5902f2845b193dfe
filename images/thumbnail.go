// Package images produces the representative thumbnails for articles. The
// transform is deterministic: identical input bytes always encode to
// identical thumbnail bytes, which keeps the results content-addressable.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"

	"newsmill/cache"
	"newsmill/config"
	"newsmill/fetch"
)

// ErrUnsupportedImage marks bytes that could not be decoded as an image.
var ErrUnsupportedImage = errors.New("images: unsupported or corrupt image")

// Generator resizes and re-encodes source images into padded JPEG
// thumbnails of a fixed dimension, caching results by source image URL.
type Generator struct {
	cache   *cache.Cache
	client  *fetch.Client
	width   int
	height  int
	quality int
}

func NewGenerator(c *cache.Cache, client *fetch.Client, width, height, quality int) *Generator {
	return &Generator{
		cache:   c,
		client:  client,
		width:   width,
		height:  height,
		quality: quality,
	}
}

// Thumbnail transforms raw image bytes into the padded JPEG. The image is
// fitted inside the target box, centered on a white canvas of exactly the
// target dimensions, and encoded at the fixed quality.
func (g *Generator) Thumbnail(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	fitted := imaging.Fit(img, g.width, g.height, imaging.Lanczos)
	canvas := imaging.New(g.width, g.height, color.White)
	canvas = imaging.PasteCenter(canvas, fitted)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(g.quality)); err != nil {
		return nil, fmt.Errorf("images: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// FromURL fetches the image through the cache, generates its thumbnail and
// stores it under the cache dir. It returns the thumbnail file name to
// record on the article. An already-present thumbnail short-circuits both
// the fetch and the transform.
func (g *Generator) FromURL(ctx context.Context, imageURL string) (string, error) {
	name := Ref(imageURL)
	if g.cache.HasNamed(name) {
		return name, nil
	}

	raw, err := g.cache.GetOrFetch(ctx, imageURL, func(ctx context.Context) ([]byte, string, error) {
		return g.client.Get(ctx, imageURL, config.MaxImageBytes)
	})
	if err != nil {
		return "", err
	}

	thumb, err := g.Thumbnail(raw)
	if err != nil {
		return "", err
	}
	if _, err := g.cache.WriteNamed(name, thumb); err != nil {
		return "", fmt.Errorf("images: store thumbnail: %w", err)
	}
	return name, nil
}

// Ref is the thumbnail file name for a source image URL.
func Ref(imageURL string) string {
	return cache.Key(imageURL) + ".pad.jpg"
}
