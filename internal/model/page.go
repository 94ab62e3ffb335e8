package model

import (
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/pagehunter/internal/search"
	"golang.org/x/crypto/sha3"
)

// Page represents a fetched HTML page and what was extracted from it.
//
// URL is the canonical URL: the final URL after redirects, without
// fragment. It is the identity of the page in the link index.
type Page struct {
	// URL is the canonical absolute URL of the page.
	URL string `json:"url"`

	// Title is the text of <head><title>, cut to MaxTitleLength runes.
	Title string `json:"title,omitempty"`

	// Text is the visible body text, one block element per line.
	Text string `json:"-"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the media type of the response without parameters.
	ContentType string `json:"content_type"`

	// OutboundLinks are the distinct absolute http(s) links of the page,
	// self-links excluded, in document order.
	OutboundLinks []string `json:"outbound_links"`

	// Raw is the response body, limited by the fetcher's body size.
	Raw []byte `json:"-"`

	// Hash is the hex SHA3-256 digest of Raw.
	Hash string `json:"hash"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// MaxTitleLength is the maximum number of runes kept from a page title.
const MaxTitleLength = 64

// MaxTextSize is the maximum size of the extracted text in bytes.
const MaxTextSize = 512 * 1024 // 512 KB

// ComputeHash sets Hash from the page's raw content.
// An empty body produces an empty hash.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	sum := sha3.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// TruncateText ensures the text doesn't exceed MaxTextSize.
// The cut never splits a UTF-8 sequence.
func (p *Page) TruncateText() {
	if len(p.Text) <= MaxTextSize {
		return
	}
	cut := MaxTextSize
	for cut > 0 && !isRuneStart(p.Text[cut]) {
		cut--
	}
	p.Text = p.Text[:cut]
}

// Host returns the lower-cased host of the page URL, or "" when the URL
// can't be parsed.
func (p *Page) Host() string {
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// Words returns the distinct index terms of the page title and text.
func (p *Page) Words() []string {
	return search.Unique(search.Tokenize(p.Title + "\n" + p.Text))
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
