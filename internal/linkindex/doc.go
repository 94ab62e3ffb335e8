// Package linkindex records the hyperlink graph discovered by a crawl.
//
// An Index holds one node per visited page: the page's canonical URL and
// the outbound links extracted from it. Nodes are added with Push while the
// crawl runs, possibly from many goroutines at once. When the crawl is over
// the caller calls Finalize exactly once; this sorts the URL sequence, and the
// sorted positions become the row and column numbers of the rank matrix.
//
// # Lifecycle
//
//	idx := linkindex.New()
//	_ = idx.Push("https://a.example/", []string{"https://b.example/"})
//	_ = idx.Push("https://b.example/", nil)
//	_ = idx.Finalize()
//	urls := idx.OrderedURLs() // ["https://a.example/", "https://b.example/"]
//
// Pushing a URL twice fails with a *DuplicateNodeError and leaves the index
// untouched. Pushing after Finalize, or finalizing twice, fails with an
// *InvalidOrderError.
package linkindex
