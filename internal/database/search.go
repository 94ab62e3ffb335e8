package database

import (
	"context"
	"fmt"

	"github.com/nao1215/pagehunter/internal/search"
)

// SearchResult is one page matching a keyword search.
type SearchResult struct {
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Search returns pages that contain every term, ordered by their score in
// the latest rank run. Pages without a score rank last. Terms must already
// be tokenized with search.Terms. limit <= 0 means no limit.
func (cdb *CrawlDB) Search(ctx context.Context, terms []string, limit int) ([]SearchResult, error) {
	results := make([]SearchResult, 0)
	terms = search.Unique(terms)
	if len(terms) == 0 {
		return results, nil
	}

	query := `
	SELECT p.url, p.title, COALESCE(MAX(r.page_rank), 0) AS score
	FROM pages p
	JOIN words w ON w.url = p.url
	LEFT JOIN ranks r ON r.url = p.url
		AND r.run_id = (SELECT id FROM rank_runs ORDER BY started_at DESC, id DESC LIMIT 1)
	WHERE w.word IN (` + placeholders(len(terms)) + `)
	GROUP BY p.url, p.title
	HAVING COUNT(DISTINCT w.word) = ?
	ORDER BY score DESC, p.url ASC
	`
	args := make([]any, 0, len(terms)+2)
	for _, t := range terms {
		args = append(args, t)
	}
	args = append(args, len(terms))
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, cdb.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.URL, &r.Title, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
