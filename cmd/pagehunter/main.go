// Package main provides the entry point for the pagehunter CLI.
//
// pagehunter crawls the web from a set of start URLs, builds a link graph
// of the pages it visits and ranks them with PageRank. Crawled pages and
// rankings are stored so they can be searched and re-ranked later.
//
// Usage:
//
//	pagehunter crawl <start-url>...
//	pagehunter search <terms>...
//	pagehunter serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
