package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter enforces politeness per host: a minimum delay between two
// requests and a token bucket of requests per second.
// The zero delay and a non-positive rate disable the respective rule.
type DomainLimiter struct {
	delay time.Duration
	rps   float64
	burst int

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewDomainLimiter creates a limiter. rps is the number of requests per
// second allowed per host; burst is clamped to at least 1.
func NewDomainLimiter(delay time.Duration, rps float64, burst int) *DomainLimiter {
	return &DomainLimiter{
		delay:    delay,
		rps:      rps,
		burst:    max(burst, 1),
		last:     make(map[string]time.Time),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d == nil || host == "" {
		return nil
	}
	if d.delay <= 0 && d.rps <= 0 {
		return nil
	}
	host = strings.ToLower(host)

	var (
		sleep   time.Duration
		limiter *rate.Limiter
	)

	d.mu.Lock()
	if d.delay > 0 {
		if last, ok := d.last[host]; ok {
			sleep = time.Until(last.Add(d.delay))
		}
		// Reserve the slot now so concurrent callers queue behind us.
		d.last[host] = time.Now().Add(max(sleep, 0))
	}
	if d.rps > 0 {
		limiter = d.limiters[host]
		if limiter == nil {
			limiter = rate.NewLimiter(rate.Limit(d.rps), d.burst)
			d.limiters[host] = limiter
		}
	}
	d.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if limiter != nil {
		return limiter.Wait(ctx)
	}
	return nil
}
