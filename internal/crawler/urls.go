package crawler

import (
	"net/url"
	"strings"
)

// normalizeURL returns the canonical form used as page identity: scheme and
// host lower-cased, fragment removed, empty path replaced with "/".
//
// Design decision: the link index compares URLs as plain strings, so the
// parser, the fetcher and the spider must all agree on this form.
func normalizeURL(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" && c.Opaque == "" {
		c.Path = "/"
	}
	return c.String()
}

// NormalizeSeed parses a seed URL and returns its canonical form.
// Only absolute http(s) URLs are accepted.
func NormalizeSeed(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidSeed
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidSeed
	}
	return normalizeURL(u), nil
}
