// Package web serves keyword search over the stored pages.
//
// The server exposes an HTML search form, an HTML result page and a JSON
// endpoint. Results come from a Searcher, normally *database.CrawlDB, and
// are ordered by the page score of the latest rank run.
//
// Routes:
//   - GET /              search form
//   - GET /q?search=...  HTML results; an empty query redirects to /
//   - GET /api/search?q=...&limit=N  JSON results
//   - GET /healthz       liveness probe
package web
