package feeds

import (
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseItem runs a single-item RSS document through the real parser so the
// extension maps look exactly as production input does.
func parseItem(t *testing.T, itemXML string) *gofeed.Item {
	t.Helper()
	doc := `<?xml version="1.0"?><rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/"><channel><title>T</title><item><title>x</title><link>https://example.com/x</link>` +
		itemXML + `</item></channel></rss>`
	feed, err := gofeed.NewParser().Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	return feed.Items[0]
}

func TestPickImageEnclosure(t *testing.T) {
	item := parseItem(t, `<enclosure url="https://cdn.example.com/pic.jpg" type="image/jpeg" length="1"/>`)
	assert.Equal(t, "https://cdn.example.com/pic.jpg", pickImage(item))
}

func TestPickImageSkipsNonImageEnclosures(t *testing.T) {
	item := parseItem(t,
		`<enclosure url="https://cdn.example.com/ep.mp3" type="audio/mpeg" length="1"/>`+
			`<enclosure url="https://cdn.example.com/pic.png" type="image/png" length="1"/>`)
	assert.Equal(t, "https://cdn.example.com/pic.png", pickImage(item))
}

func TestPickImageLargestMediaContent(t *testing.T) {
	item := parseItem(t,
		`<media:content url="https://cdn.example.com/small.jpg" width="200"/>`+
			`<media:content url="https://cdn.example.com/large.jpg" width="1200"/>`+
			`<media:content url="https://cdn.example.com/medium.jpg" width="600"/>`)
	assert.Equal(t, "https://cdn.example.com/large.jpg", pickImage(item))
}

func TestPickImageMediaThumbnailFallback(t *testing.T) {
	item := parseItem(t, `<media:thumbnail url="https://cdn.example.com/thumb.jpg" width="150"/>`)
	assert.Equal(t, "https://cdn.example.com/thumb.jpg", pickImage(item))
}

func TestPickImageEnclosureBeatsMedia(t *testing.T) {
	item := parseItem(t,
		`<enclosure url="https://cdn.example.com/enc.jpg" type="image/jpeg" length="1"/>`+
			`<media:content url="https://cdn.example.com/media.jpg" width="2000"/>`)
	assert.Equal(t, "https://cdn.example.com/enc.jpg", pickImage(item))
}

func TestPickImageFromDescriptionHTML(t *testing.T) {
	item := parseItem(t, `<description>&lt;p&gt;text&lt;/p&gt;&lt;img src="https://cdn.example.com/inline.gif"/&gt;</description>`)
	assert.Equal(t, "https://cdn.example.com/inline.gif", pickImage(item))
}

func TestPickImageNone(t *testing.T) {
	item := parseItem(t, `<description>plain text only</description>`)
	assert.Empty(t, pickImage(item))
}

func TestAtoiOr(t *testing.T) {
	assert.Equal(t, 640, atoiOr("640", 0))
	assert.Equal(t, 7, atoiOr("", 7))
	assert.Equal(t, 7, atoiOr("12px", 7))
}
