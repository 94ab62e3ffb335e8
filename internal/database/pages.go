package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/pagehunter/internal/linkindex"
	"github.com/nao1215/pagehunter/internal/model"
)

// PageRecord is a stored page.
type PageRecord struct {
	URL         string
	Title       string
	Body        string
	ContentHash string
	StatusCode  int
	CrawledAt   time.Time
}

// SavePage stores page with its index terms and outbound links.
// A page that is already stored is replaced; its old terms and links are
// removed in the same transaction.
func (cdb *CrawlDB) SavePage(ctx context.Context, page *model.Page) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after Commit

	crawledAt := page.FetchedAt
	if crawledAt.IsZero() {
		crawledAt = time.Now()
	}

	upsert := `
	INSERT INTO pages (url, title, body, content_hash, status_code, crawled_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		title = excluded.title,
		body = excluded.body,
		content_hash = excluded.content_hash,
		status_code = excluded.status_code,
		crawled_at = excluded.crawled_at
	`
	if _, err := tx.ExecContext(ctx, cdb.rebind(upsert),
		page.URL,
		page.Title,
		page.Text,
		page.Hash,
		page.StatusCode,
		formatTimestamp(crawledAt),
	); err != nil {
		return fmt.Errorf("failed to save page %s: %w", page.URL, err)
	}

	if _, err := tx.ExecContext(ctx, cdb.rebind(`DELETE FROM words WHERE url = ?`), page.URL); err != nil {
		return fmt.Errorf("failed to clear words of %s: %w", page.URL, err)
	}
	if _, err := tx.ExecContext(ctx, cdb.rebind(`DELETE FROM links WHERE from_url = ?`), page.URL); err != nil {
		return fmt.Errorf("failed to clear links of %s: %w", page.URL, err)
	}

	wordStmt, err := tx.PrepareContext(ctx, cdb.rebind(
		`INSERT INTO words (word, url) VALUES (?, ?) ON CONFLICT DO NOTHING`))
	if err != nil {
		return fmt.Errorf("failed to prepare word insert: %w", err)
	}
	defer wordStmt.Close()
	for _, w := range page.Words() {
		if _, err := wordStmt.ExecContext(ctx, w, page.URL); err != nil {
			return fmt.Errorf("failed to save word %q: %w", w, err)
		}
	}

	linkStmt, err := tx.PrepareContext(ctx, cdb.rebind(
		`INSERT INTO links (from_url, to_url, position) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`))
	if err != nil {
		return fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer linkStmt.Close()
	for i, link := range page.OutboundLinks {
		if _, err := linkStmt.ExecContext(ctx, page.URL, link, i); err != nil {
			return fmt.Errorf("failed to save link %s: %w", link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit page %s: %w", page.URL, err)
	}
	return nil
}

// GetPage returns the stored page with url, or nil if it is not stored.
func (cdb *CrawlDB) GetPage(ctx context.Context, url string) (*PageRecord, error) {
	query := `
	SELECT url, title, body, content_hash, status_code, crawled_at
	FROM pages
	WHERE url = ?
	`

	var rec PageRecord
	var crawledAt string
	err := cdb.db.QueryRowContext(ctx, cdb.rebind(query), url).Scan(
		&rec.URL,
		&rec.Title,
		&rec.Body,
		&rec.ContentHash,
		&rec.StatusCode,
		&crawledAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	rec.CrawledAt = parseTimestamp(crawledAt)
	return &rec, nil
}

// PageCount returns the number of stored pages.
func (cdb *CrawlDB) PageCount(ctx context.Context) (int, error) {
	var n int
	if err := cdb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}

// LoadGraph rebuilds a link index from the stored pages and links.
// Every stored page becomes a node with its links in document order.
// The index is returned unfinalized.
func (cdb *CrawlDB) LoadGraph(ctx context.Context) (*linkindex.Index, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT p.url, l.to_url
	FROM pages p
	LEFT JOIN links l ON l.from_url = p.url
	ORDER BY p.url, l.position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load links: %w", err)
	}
	defer rows.Close()

	order := make([]string, 0)
	outbound := make(map[string][]string)
	for rows.Next() {
		var from string
		var to sql.NullString
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		if _, ok := outbound[from]; !ok {
			order = append(order, from)
			outbound[from] = make([]string, 0)
		}
		if to.Valid {
			outbound[from] = append(outbound[from], to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}

	idx := linkindex.New()
	for _, u := range order {
		if err := idx.Push(u, outbound[u]); err != nil {
			return nil, err
		}
	}
	return idx, nil
}
