// Package crawler fetches web pages and builds the link graph that is
// ranked by the rank package.
//
// # Components
//
//   - Parser: extracts title, visible text and outbound links of an HTML page
//   - Fetcher: downloads one page and returns a model.Page
//   - RobotsAgent: evaluates robots.txt with a per-host cache
//   - DomainLimiter: per-host delay and token-bucket rate limit
//   - Spider: the crawl orchestrator that drives fetch, extract and push
//
// # Link extraction
//
// Every a[href] is resolved against the page URL. Fragments are removed,
// only http and https links are kept, links equal to the page URL are
// dropped and repeated links are reported once. The same rules must hold
// for every page of a run, since they decide the outdegree of each node
// and therefore the ranking.
//
// # Usage
//
//	idx := linkindex.New()
//	spider := crawler.NewSpider(crawler.NewFetcher(client), idx,
//		crawler.WithMaxPages(128),
//		crawler.WithConcurrency(8),
//	)
//	stats, err := spider.Crawl(ctx, "https://example.com/")
//
// # Politeness
//
//   - Respects robots.txt when a RobotsAgent is configured (fail-open)
//   - Delays and rate-limits requests per host when a DomainLimiter is set
//   - Limits concurrent requests
//   - Limits the number of visits and the crawl depth
package crawler
