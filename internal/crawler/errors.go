package crawler

import "errors"

var (
	// ErrNotHTML is returned by Fetch when the response is not text/html.
	ErrNotHTML = errors.New("content type is not text/html")

	// ErrUnexpectedStatus is returned by Fetch for HTTP status codes >= 400.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrRelativePageURL is returned when a parser is created for a URL
	// without scheme and host.
	ErrRelativePageURL = errors.New("page URL must be absolute")

	// ErrInvalidSeed is returned by Crawl when a seed is not an absolute
	// http(s) URL.
	ErrInvalidSeed = errors.New("seed must be an absolute http or https URL")

	// ErrNoSeed is returned by Crawl when called without seeds.
	ErrNoSeed = errors.New("at least one seed URL is required")
)
