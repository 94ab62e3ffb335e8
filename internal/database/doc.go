// Package database stores crawled pages, the link graph and rank runs.
//
// This package implements the CrawlDB, which stores:
//   - pages with their title, text and content hash
//   - the index terms of every page, used for keyword search
//   - the outbound links of every page, so a graph can be re-ranked
//     without crawling again
//   - rank runs and the scores they produced
//
// Design decision: SQLite (via modernc.org/sqlite) is the default because
// the database is a single file and the driver needs no cgo. PostgreSQL
// (via github.com/lib/pq) is supported for a shared deployment of the
// search front end. Queries are written once with "?" placeholders and
// rebound to "$n" for PostgreSQL.
package database
