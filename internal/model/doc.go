// Package model defines the data structures shared across pagehunter.
//
// This package contains the following main types:
//   - Page: a fetched HTML page with its extracted text and outbound links
//   - RankedPage: one (url, score) pair of a ranking
//   - Run: the state and result of one crawl-and-rank run
//
// Design decision: We keep models in their own package so that crawler,
// rank, database and report can share them without import cycles.
//
// The models are serializable to JSON for report output and storage.
package model
