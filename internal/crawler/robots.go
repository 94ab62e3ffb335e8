package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// DefaultRobotsTTL is how long parsed robots.txt rules are cached per host.
const DefaultRobotsTTL = 30 * time.Minute

// RobotsAgent answers whether a URL may be crawled according to the
// robots.txt of its host. Rules are cached per host.
//
// Errors while fetching or parsing robots.txt allow the URL, and the
// failure is cached like a successful fetch.
type RobotsAgent struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu    sync.RWMutex
	cache map[string]robotsEntry
	group singleflight.Group
}

type robotsEntry struct {
	fetched time.Time

	// rules is nil when robots.txt could not be fetched or parsed.
	rules *robotstxt.RobotsData
}

// NewRobotsAgent creates an agent that fetches robots.txt through client
// and matches groups against userAgent. A non-positive ttl uses
// DefaultRobotsTTL.
func NewRobotsAgent(client *http.Client, userAgent string, ttl time.Duration) *RobotsAgent {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultRobotsTTL
	}
	return &RobotsAgent{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		cache:     make(map[string]robotsEntry),
	}
}

// Allowed reports whether target may be fetched.
func (a *RobotsAgent) Allowed(ctx context.Context, target *url.URL) bool {
	if target == nil || !target.IsAbs() {
		return false
	}

	rules := a.rules(ctx, target)
	if rules == nil {
		return true
	}

	group := rules.FindGroup(a.userAgent)
	if group == nil {
		return true
	}
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}
	return group.Test(path)
}

// rules returns the cached rules of the target host, fetching them once per
// TTL. A nil result allows everything. Concurrent callers for the same host
// share one fetch.
func (a *RobotsAgent) rules(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(target.Host)
	if entry, ok := a.cached(host); ok {
		return entry.rules
	}

	v, _, _ := a.group.Do(host, func() (any, error) {
		if entry, ok := a.cached(host); ok {
			return entry.rules, nil
		}
		data, err := a.fetch(ctx, target)
		if err != nil && ctx.Err() != nil {
			// Cancellation says nothing about the host; let the next caller retry.
			return nil, nil
		}
		// A failed fetch is cached as allow-all so a slow or broken host
		// is asked once per TTL instead of once per URL.
		a.mu.Lock()
		a.cache[host] = robotsEntry{fetched: time.Now(), rules: data}
		a.mu.Unlock()
		return data, nil
	})
	data, _ := v.(*robotstxt.RobotsData)
	return data
}

func (a *RobotsAgent) cached(host string) (robotsEntry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entry, ok := a.cache[host]
	if !ok || time.Since(entry.fetched) >= a.ttl {
		return robotsEntry{}, false
	}
	return entry, true
}

func (a *RobotsAgent) fetch(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build robots request: %w", err)
	}
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	// FromResponse treats 4xx as allow-all and 5xx as disallow-all.
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return data, nil
}
