package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/pagehunter/internal/model"
)

const (
	// DefaultUserAgent identifies the crawler to servers.
	DefaultUserAgent = "pagehunter/1.0 (+https://github.com/nao1215/pagehunter)"

	// DefaultMaxBodySize is the default limit of bytes read from a response.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024 // 5MB
)

// Fetcher downloads a page and turns it into a model.Page.
// It is the only component that talks HTTP for page content.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets how many bytes of a response body are read.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewFetcher creates a Fetcher that sends requests through client.
//
// Design decision: the client is built by the transport package so that
// proxies, cookies and injected headers are configured in one place.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// UserAgent returns the User-Agent sent with every request.
func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// Client returns the underlying HTTP client.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch downloads pageURL and parses it.
//
// The returned page URL is the final URL after redirects, without fragment.
// Responses with status >= 400 fail with ErrUnexpectedStatus and responses
// that are not text/html fail with ErrNotHTML.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, pageURL)
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if contentType != "text/html" {
		return nil, fmt.Errorf("%w: %q from %s", ErrNotHTML, contentType, pageURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", pageURL, err)
	}

	final := normalizeURL(resp.Request.URL)
	parser, err := NewParser(final)
	if err != nil {
		return nil, err
	}
	parsed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", final, err)
	}

	page := &model.Page{
		URL:           final,
		Title:         parsed.Title,
		Text:          parsed.Text,
		StatusCode:    resp.StatusCode,
		ContentType:   contentType,
		OutboundLinks: parsed.Links,
		Raw:           body,
		FetchedAt:     time.Now(),
	}
	page.ComputeHash()
	page.TruncateText()
	return page, nil
}

// mediaType returns the lower-cased media type of a Content-Type header
// without parameters.
func mediaType(header string) string {
	if header == "" {
		return "application/octet-stream"
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		mt, _, _ = strings.Cut(header, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
