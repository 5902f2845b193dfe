package feeds

import (
	"bytes"
	"context"
	"net/url"

	readability "github.com/go-shiori/go-readability"

	"newsmill/cache"
	"newsmill/config"
	"newsmill/fetch"
)

// leadImageFromPage fetches the article page through the cache and asks
// readability for its lead image (og:image and friends). Used when the feed
// entry carried no image, or when the source is curated to prefer page
// metadata. Any failure just means no image.
func leadImageFromPage(ctx context.Context, c *cache.Cache, client *fetch.Client, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	data, err := c.GetOrFetch(ctx, pageURL, func(ctx context.Context) ([]byte, string, error) {
		return client.Get(ctx, pageURL, config.MaxFeedBytes)
	})
	if err != nil {
		return ""
	}

	page, err := readability.FromReader(bytes.NewReader(data), u)
	if err != nil {
		return ""
	}
	return page.Image
}
