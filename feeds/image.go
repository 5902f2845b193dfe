package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// pickImage chooses the representative image for one feed entry. Precedence
// mirrors how publishers actually annotate entries: an explicit item image,
// then image enclosures, then the largest media:content / media:thumbnail,
// and as a last resort the first <img> in the entry HTML.
func pickImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}

	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		if url := largestMedia(media["content"]); url != "" {
			return url
		}
		if url := largestMedia(media["thumbnail"]); url != "" {
			return url
		}
	}

	if url := firstImgSrc(item.Description); url != "" {
		return url
	}
	return firstImgSrc(item.Content)
}

// largestMedia picks the variant with the largest declared width (falling
// back to height, then declaration order).
func largestMedia(variants []ext.Extension) string {
	best := ""
	bestSize := -1
	for _, v := range variants {
		url := v.Attrs["url"]
		if url == "" {
			continue
		}
		size := atoiOr(v.Attrs["width"], atoiOr(v.Attrs["height"], 0))
		if size > bestSize {
			best, bestSize = url, size
		}
	}
	return best
}

// firstImgSrc extracts the first img src from an HTML fragment.
func firstImgSrc(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return src
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
	}
	return n
}
