package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Key derives the content address for a request URL. URLs that differ only
// in scheme/host casing or a trailing fragment map to the same entry.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(Normalize(rawURL)))
	return hex.EncodeToString(sum[:])
}

// Normalize canonicalizes a URL for cache addressing.
func Normalize(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String()
}
