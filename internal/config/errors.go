package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoSeed is returned when no start URL is given by argument,
	// PAGEHUNTER_BEGIN or the config file.
	ErrNoSeed = errors.New("no start URL specified: pass a URL or set PAGEHUNTER_BEGIN")

	// ErrInvalidSeed is returned when a start URL is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid start URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxPages is returned when the visit budget is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidCrawlDepth is returned when the crawl depth is negative.
	ErrInvalidCrawlDepth = errors.New("invalid crawl depth: must be non-negative, 0 means unlimited")

	// ErrInvalidAlpha is returned when the damping factor is outside (0, 1).
	ErrInvalidAlpha = errors.New("invalid alpha: must be strictly between 0 and 1")

	// ErrInvalidEpsilon is returned when the convergence threshold is not positive.
	ErrInvalidEpsilon = errors.New("invalid epsilon: must be positive")

	// ErrInvalidMaxIterations is returned when the iteration cap is not positive.
	ErrInvalidMaxIterations = errors.New("invalid max iterations: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// A negative delay is invalid; use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Use 0 to disable rate limiting.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrConflictingProxy is returned when both --proxy and --tor are given.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")

	// ErrInvalidEnv is returned when a PAGEHUNTER_* variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
