package linkindex

import (
	"slices"
	"sync"
)

// Index is the directed link graph of a crawl.
//
// Push and Finalize are the only mutating operations. Both take the write
// lock, so concurrent pushes never interleave and two pushes racing on the
// same URL produce exactly one success and one *DuplicateNodeError.
// Read methods take the read lock; after Finalize there are no writers
// left, so readers never wait on each other.
type Index struct {
	// mu guards every field below.
	mu sync.RWMutex

	// links maps a page URL to its outbound links, as pushed.
	links map[string][]string

	// order is the visitation sequence until Finalize, then the sorted one.
	order []string

	// finalized is set once by Finalize.
	finalized bool
}

// New creates an empty Index ready for crawling.
func New() *Index {
	return &Index{
		links: make(map[string][]string),
		order: make([]string, 0),
	}
}

// Push records a visited page and its outbound links.
//
// The links are stored verbatim: they are expected to be absolute http(s)
// URLs with self-links already removed. The slice is copied, so the caller
// may reuse it afterwards.
func (x *Index) Push(url string, outbound []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.finalized {
		return &InvalidOrderError{Op: "push", Reason: "index is already finalized"}
	}
	if _, ok := x.links[url]; ok {
		return &DuplicateNodeError{URL: url}
	}

	stored := make([]string, len(outbound))
	copy(stored, outbound)
	x.links[url] = stored
	x.order = append(x.order, url)
	return nil
}

// Finalize freezes the index and sorts its URL sequence lexicographically.
// It must be called exactly once, after the last Push.
func (x *Index) Finalize() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.finalized {
		return &InvalidOrderError{Op: "finalize", Reason: "index is already finalized"}
	}
	slices.Sort(x.order)
	x.finalized = true
	return nil
}

// Finalized reports whether Finalize has been called.
func (x *Index) Finalized() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.finalized
}

// Len returns the number of indexed pages.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.order)
}

// Contains reports whether url has been pushed.
func (x *Index) Contains(url string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.links[url]
	return ok
}

// OutboundLinksOf returns a copy of the links recorded for url.
// Unknown URLs yield an empty result.
func (x *Index) OutboundLinksOf(url string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Clone(x.links[url])
}

// HasEdge reports whether target is among the outbound links of url.
func (x *Index) HasEdge(url, target string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Contains(x.links[url], target)
}

// OutDegree returns the number of distinct outbound links recorded for url,
// including links that leave the index. See IndexedOutDegree for the
// denominator of the transition matrix.
func (x *Index) OutDegree(url string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	links := x.links[url]
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// IndexedOutDegree returns the number of distinct outbound links of url
// whose target is itself in the index, self-links excluded. 0 means url is
// a dangling node.
func (x *Index) IndexedOutDegree(url string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	links := x.links[url]
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		if l == url {
			continue
		}
		if _, ok := x.links[l]; !ok {
			continue
		}
		seen[l] = struct{}{}
	}
	return len(seen)
}

// OrderedURLs returns a copy of the URL sequence. After Finalize this is
// the sorted order that defines matrix positions 0..N-1.
func (x *Index) OrderedURLs() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Clone(x.order)
}
