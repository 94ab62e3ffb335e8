package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/pagehunter/internal/crawler"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pagehunter"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxPages is the visit budget of one crawl.
	// Every dispatched visit counts, including failed ones.
	DefaultMaxPages = 128

	// DefaultConcurrency is the number of page visits in flight.
	DefaultConcurrency = 8

	// DefaultCrawlDepth of 0 means the link distance from a seed is unlimited;
	// the visit budget bounds the crawl instead.
	DefaultCrawlDepth = 0

	// DefaultCrawlDelay is the minimum delay between two requests to the same host.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultRateLimit is the sustained request rate per host, in requests per second.
	DefaultRateLimit = 10.0

	// DefaultRateBurst is the token bucket size of the per-host rate limiter.
	DefaultRateBurst = 1

	// DefaultUserAgent identifies pagehunter in HTTP requests.
	DefaultUserAgent = crawler.DefaultUserAgent

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultAlpha is the damping factor: the probability that the random
	// surfer follows a link instead of jumping to a random page.
	DefaultAlpha = 0.85

	// DefaultEpsilon is the L1 convergence threshold of power iteration.
	DefaultEpsilon = 1e-6

	// DefaultMaxIterations caps power iteration.
	DefaultMaxIterations = 1000

	// DefaultTopN is the number of pages listed in reports.
	DefaultTopN = 20

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultServeAddr is the listen address of the search front end.
	DefaultServeAddr = ":4000"
)

// Config holds all configuration options for pagehunter.
// This struct is populated from defaults, the environment and CLI flags,
// in that order, and passed through the application via dependency injection.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable.
type Config struct {
	// Seeds are the absolute http(s) URLs the crawl starts from.
	Seeds []string

	// Timeout is the timeout of each HTTP request, not of the whole crawl.
	Timeout time.Duration

	// MaxPages is the visit budget of one crawl.
	MaxPages int

	// Concurrency is the number of page visits in flight.
	Concurrency int

	// CrawlDepth is the maximum link distance from a seed. 0 means unlimited.
	CrawlDepth int

	// CrawlDelay is the minimum delay between two requests to the same host.
	CrawlDelay time.Duration

	// RateLimit is the per-host request rate in requests per second.
	// 0 disables rate limiting.
	RateLimit float64

	// UserAgent is the User-Agent header sent with HTTP requests and the
	// agent name matched against robots.txt groups.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// RespectRobots skips URLs disallowed by the host's robots.txt.
	RespectRobots bool

	// SameHost restricts the crawl to the hosts of the seeds.
	SameHost bool

	// Alpha is the damping factor, strictly between 0 and 1.
	Alpha float64

	// Epsilon is the convergence threshold, strictly positive.
	Epsilon float64

	// MaxIterations caps power iteration.
	MaxIterations int

	// TopN is the number of pages listed in reports. 0 lists all pages.
	TopN int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .pagehunter in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ProxyAddress is a SOCKS5 proxy in "host:port" format. Empty means direct.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and crawls through it.
	// Mutually exclusive with ProxyAddress.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor daemon.
	TorStartupTimeout time.Duration

	// DBDir is the directory of the SQLite database.
	// Defaults to XDG data directory (~/.local/share/pagehunter on Linux).
	DBDir string

	// DatabaseURL is a PostgreSQL DSN. When set it is used instead of SQLite.
	DatabaseURL string

	// SaveToDB indicates whether crawled pages and rank runs are stored.
	SaveToDB bool

	// ServeAddr is the listen address of the search front end.
	ServeAddr string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., alpha, timeout).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		MaxPages:          DefaultMaxPages,
		Concurrency:       DefaultConcurrency,
		CrawlDepth:        DefaultCrawlDepth,
		CrawlDelay:        DefaultCrawlDelay,
		RateLimit:         DefaultRateLimit,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		RespectRobots:     true,
		Alpha:             DefaultAlpha,
		Epsilon:           DefaultEpsilon,
		MaxIterations:     DefaultMaxIterations,
		TopN:              DefaultTopN,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		ServeAddr:         DefaultServeAddr,
	}
}

// XDGDataDir returns the XDG data directory for pagehunter.
// On Linux: ~/.local/share/pagehunter
// On macOS: ~/Library/Application Support/pagehunter
// On Windows: %LOCALAPPDATA%\pagehunter
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pagehunter.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks a crawl configuration.
// It returns the first failing sentinel error.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any crawling begins.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	for _, seed := range c.Seeds {
		if _, err := crawler.NormalizeSeed(seed); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
		}
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}

	if err := c.ValidateRank(); err != nil {
		return err
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	return nil
}

// ValidateRank checks only the ranking parameters. Re-ranking a stored
// graph needs no seeds or crawl settings.
func (c *Config) ValidateRank() error {
	if !(c.Alpha > 0 && c.Alpha < 1) {
		return ErrInvalidAlpha
	}
	if !(c.Epsilon > 0) {
		return ErrInvalidEpsilon
	}
	if c.MaxIterations <= 0 {
		return ErrInvalidMaxIterations
	}
	return nil
}
