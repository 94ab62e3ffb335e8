// Package report renders crawl-and-rank runs.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text output for terminal display
//   - JSONWriter and FullJSONWriter: structured JSON for tool integration
//   - MarkdownWriter: tables and a mermaid rank chart for sharing
//
// Design decision: We separate report writing from the run data structure
// (which is in the model package). New output formats can be added without
// touching the model.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter.
package report
