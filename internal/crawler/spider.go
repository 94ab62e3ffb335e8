package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/nao1215/pagehunter/internal/linkindex"
	"github.com/nao1215/pagehunter/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxPages is the default visit budget of a crawl.
	DefaultMaxPages = 128

	// DefaultConcurrency is the default number of visits in flight.
	DefaultConcurrency = 8
)

// PageFetcher fetches one page. *Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*model.Page, error)
}

// PageHandler is called for every page added to the link index.
// It may be called from several goroutines at once. An error is logged
// and does not stop the crawl.
type PageHandler func(ctx context.Context, page *model.Page) error

// Stats counts what happened during a crawl.
type Stats struct {
	// Dispatched is the number of visits started. It never exceeds the budget.
	// Visits refused by robots.txt are not counted.
	Dispatched int

	// Indexed is the number of pages pushed into the link index.
	Indexed int

	// Failed is the number of visits whose fetch or parse failed.
	Failed int

	// Duplicates is the number of visits whose final URL was already indexed,
	// typically because of a redirect.
	Duplicates int

	// Disallowed is the number of URLs skipped because of robots.txt.
	Disallowed int
}

// Spider is the crawl orchestrator. It walks the web breadth-first from a
// set of seeds, fetches pages concurrently and pushes every fetched page
// with its outbound links into a link index.
//
// Design decision: a single coordinator goroutine owns the frontier and
// the visited set, so only the link index, the robots agent and the page
// handler see concurrent access. The index serializes Push itself.
type Spider struct {
	fetcher PageFetcher
	index   *linkindex.Index

	// maxPages is the visit budget. Every dispatched visit consumes one unit,
	// whether it succeeds or not. A visit refused by robots.txt gives its
	// unit back.
	maxPages int

	// concurrency bounds the number of visits in flight.
	concurrency int

	// maxDepth limits the link distance from a seed. 0 means unlimited.
	maxDepth int

	// sameHost restricts the crawl to the hosts of the seeds.
	sameHost bool

	// ignorePatterns are URL path globs that are never crawled.
	ignorePatterns []string

	// followPatterns are URL path globs; when set, only matching paths are crawled.
	followPatterns []string

	robots  *RobotsAgent
	limiter *DomainLimiter
	handler PageHandler
	logger  *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the visit budget.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithConcurrency sets the number of visits in flight.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxDepth sets the maximum link distance from a seed.
// 0 = unlimited, 1 = seeds and the pages they link to, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithSameHost restricts the crawl to the hosts of the seed URLs.
func WithSameHost(sameHost bool) SpiderOption {
	return func(s *Spider) {
		s.sameHost = sameHost
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// WithRobots makes the spider skip URLs disallowed by robots.txt.
func WithRobots(agent *RobotsAgent) SpiderOption {
	return func(s *Spider) {
		s.robots = agent
	}
}

// WithLimiter sets the per-host politeness limiter.
func WithLimiter(limiter *DomainLimiter) SpiderOption {
	return func(s *Spider) {
		s.limiter = limiter
	}
}

// WithPageHandler sets a callback run for every indexed page.
func WithPageHandler(h PageHandler) SpiderOption {
	return func(s *Spider) {
		s.handler = h
	}
}

// WithSpiderLogger sets the logger.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider that fetches with fetcher and records pages
// in index.
func NewSpider(fetcher PageFetcher, index *linkindex.Index, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     fetcher,
		index:       index,
		maxPages:    DefaultMaxPages,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// queueItem is a frontier entry.
type queueItem struct {
	url   string
	depth int
}

// visitResult is what a visit reports back to the coordinator.
type visitResult struct {
	item       queueItem
	page       *model.Page
	err        error
	disallowed bool
}

// Crawl visits pages breadth-first starting from seeds until the frontier
// is empty or the visit budget is spent.
//
// Fetch failures and duplicate pages are counted and logged; they never
// stop the crawl. When ctx is cancelled no new visit is started, in-flight
// visits are awaited and ctx.Err() is returned with the stats so far.
func (s *Spider) Crawl(ctx context.Context, seeds ...string) (Stats, error) {
	var stats Stats
	if len(seeds) == 0 {
		return stats, ErrNoSeed
	}

	seen := make(map[string]struct{})
	hosts := make(map[string]struct{})
	queue := make([]queueItem, 0, len(seeds))
	for _, raw := range seeds {
		seed, err := NormalizeSeed(raw)
		if err != nil {
			return stats, fmt.Errorf("%w: %q", err, raw)
		}
		if _, ok := seen[seed]; ok {
			continue
		}
		seen[seed] = struct{}{}
		if u, err := url.Parse(seed); err == nil {
			hosts[u.Host] = struct{}{}
		}
		queue = append(queue, queueItem{url: seed})
	}

	results := make(chan visitResult, s.concurrency)
	var eg errgroup.Group
	inflight := 0

	for {
		for ctx.Err() == nil && inflight < s.concurrency && len(queue) > 0 && stats.Dispatched < s.maxPages {
			item := queue[0]
			queue = queue[1:]

			stats.Dispatched++
			inflight++
			eg.Go(func() error {
				results <- s.visit(ctx, item)
				return nil
			})
		}

		if inflight == 0 {
			break
		}

		res := <-results
		inflight--

		switch {
		case res.disallowed:
			// The budget only pays for pages that were actually requested.
			stats.Dispatched--
			stats.Disallowed++
			s.logger.Debug("disallowed by robots.txt", "url", res.item.url)
			continue
		case errors.Is(res.err, linkindex.ErrDuplicateNode):
			stats.Duplicates++
			s.logger.Debug("page already indexed", "url", res.item.url, "error", res.err)
			continue
		case res.err != nil:
			stats.Failed++
			s.logger.Debug("visit failed", "url", res.item.url, "error", res.err)
			continue
		}

		stats.Indexed++
		seen[res.page.URL] = struct{}{}

		if s.maxDepth > 0 && res.item.depth >= s.maxDepth {
			continue
		}
		for _, link := range res.page.OutboundLinks {
			if _, ok := seen[link]; ok {
				continue
			}
			if !s.shouldCrawl(link, hosts) {
				continue
			}
			seen[link] = struct{}{}
			queue = append(queue, queueItem{url: link, depth: res.item.depth + 1})
		}
	}

	// Every visit has reported through results; Wait only releases the group.
	_ = eg.Wait()

	s.logger.Info("crawl finished",
		"dispatched", stats.Dispatched,
		"indexed", stats.Indexed,
		"failed", stats.Failed,
		"duplicates", stats.Duplicates,
		"disallowed", stats.Disallowed,
	)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// visit fetches one page and pushes it into the index.
// It runs concurrently with other visits.
func (s *Spider) visit(ctx context.Context, item queueItem) visitResult {
	res := visitResult{item: item}

	if !s.robotsAllowed(ctx, item.url) {
		res.disallowed = true
		return res
	}

	if s.limiter != nil {
		if u, err := url.Parse(item.url); err == nil {
			if err := s.limiter.Wait(ctx, u.Host); err != nil {
				res.err = err
				return res
			}
		}
	}

	s.logger.Debug("visiting", "url", item.url, "depth", item.depth)
	page, err := s.fetcher.Fetch(ctx, item.url)
	if err != nil {
		res.err = err
		return res
	}

	if err := s.index.Push(page.URL, page.OutboundLinks); err != nil {
		res.err = err
		return res
	}
	res.page = page

	if s.handler != nil {
		if err := s.handler(ctx, page); err != nil {
			s.logger.Warn("page handler failed", "url", page.URL, "error", err)
		}
	}
	return res
}

func (s *Spider) robotsAllowed(ctx context.Context, target string) bool {
	if s.robots == nil {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return s.robots.Allowed(ctx, u)
}

// shouldCrawl checks the host restriction and the ignore/follow patterns.
//
// Logic:
//  1. If same-host crawling is on and the host is not a seed host, skip it
//  2. If URL matches any ignorePattern, skip it
//  3. If followPatterns is set and URL matches none, skip it
//  4. Otherwise, crawl it
func (s *Spider) shouldCrawl(target string, hosts map[string]struct{}) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}

	if s.sameHost {
		if _, ok := hosts[strings.ToLower(u.Host)]; !ok {
			return false
		}
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Bare filename patterns such as "*.pdf" match the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
