package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/pagehunter/internal/model"
	"github.com/nao1215/pagehunter/internal/search"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for a missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := db.SavePage(context.Background(), &model.Page{URL: "https://a.example/"}); err != nil {
			t.Fatal(err)
		}
		db.Close()

		reopened, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen: %v", err)
		}
		defer reopened.Close()

		n, err := reopened.PageCount(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("expected 1 page, got %d", n)
		}
	})
}

// TestSavePage tests page persistence.
func TestSavePage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	page := &model.Page{
		URL:           "https://a.example/",
		Title:         "Ranking Pages",
		Text:          "Power iteration converges",
		StatusCode:    200,
		OutboundLinks: []string{"https://b.example/", "https://c.example/"},
		Hash:          "abc",
		FetchedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := db.SavePage(ctx, page); err != nil {
		t.Fatalf("SavePage() error = %v", err)
	}

	got, err := db.GetPage(ctx, page.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected the stored page")
	}
	if got.Title != page.Title || got.Body != page.Text || got.ContentHash != "abc" || got.StatusCode != 200 {
		t.Errorf("unexpected record %+v", got)
	}
	if !got.CrawledAt.Equal(page.FetchedAt) {
		t.Errorf("CrawledAt = %v, want %v", got.CrawledAt, page.FetchedAt)
	}

	t.Run("saving again replaces links and words", func(t *testing.T) {
		updated := *page
		updated.Title = "Updated"
		updated.Text = "nothing else"
		updated.OutboundLinks = []string{"https://c.example/"}
		if err := db.SavePage(ctx, &updated); err != nil {
			t.Fatal(err)
		}

		idx, err := db.LoadGraph(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if links := idx.OutboundLinksOf(page.URL); !slices.Equal(links, []string{"https://c.example/"}) {
			t.Errorf("links = %v", links)
		}

		results, err := db.Search(ctx, search.Terms("power"), 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 0 {
			t.Errorf("stale words are still searchable: %v", results)
		}
	})

	t.Run("unknown page", func(t *testing.T) {
		rec, err := db.GetPage(ctx, "https://missing.example/")
		if err != nil || rec != nil {
			t.Errorf("expected nil, nil; got %v, %v", rec, err)
		}
	})
}

// TestLoadGraph tests rebuilding the link index.
func TestLoadGraph(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	pages := []*model.Page{
		{URL: "https://b.example/", OutboundLinks: []string{"https://c.example/", "https://a.example/"}},
		{URL: "https://a.example/", OutboundLinks: []string{"https://b.example/"}},
		{URL: "https://c.example/"},
	}
	for _, p := range pages {
		if err := db.SavePage(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := db.LoadGraph(ctx)
	if err != nil {
		t.Fatalf("LoadGraph() error = %v", err)
	}
	if idx.Finalized() {
		t.Error("expected an unfinalized index")
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 nodes, got %d", idx.Len())
	}
	if links := idx.OutboundLinksOf("https://b.example/"); !slices.Equal(links, []string{"https://c.example/", "https://a.example/"}) {
		t.Errorf("links keep document order, got %v", links)
	}
	if idx.OutDegree("https://c.example/") != 0 {
		t.Error("expected a dangling node")
	}
}

func sampleRun(id string, started time.Time, rankings ...model.RankedPage) *model.Run {
	return &model.Run{
		ID:         id,
		Seeds:      []string{"https://a.example/"},
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Alpha:      0.85,
		Epsilon:    1e-6,
		Iterations: 12,
		Delta:      5e-7,
		Converged:  true,
		Rankings:   rankings,
	}
}

// TestRankRuns tests storing and reading rank runs.
func TestRankRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	if _, err := db.LatestRankRun(ctx); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound on an empty database, got %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := sampleRun("run-1", base,
		model.RankedPage{URL: "https://a.example/", Score: 0.6, Display: 0.6},
		model.RankedPage{URL: "https://b.example/", Score: 0.4, Display: 0.4},
	)
	second := sampleRun("run-2", base.Add(time.Hour),
		model.RankedPage{URL: "https://b.example/", Score: 0.7, Display: 0.7},
		model.RankedPage{URL: "https://a.example/", Score: 0.3, Display: 0.3},
	)
	for _, r := range []*model.Run{first, second} {
		if err := db.SaveRankRun(ctx, r); err != nil {
			t.Fatalf("SaveRankRun() error = %v", err)
		}
	}

	latest, err := db.LatestRankRun(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != "run-2" {
		t.Errorf("expected run-2, got %s", latest.ID)
	}
	if len(latest.Rankings) != 2 || latest.Rankings[0].URL != "https://b.example/" {
		t.Errorf("rankings not restored in order: %+v", latest.Rankings)
	}
	if !latest.Converged || latest.Pages != 2 || latest.Alpha != 0.85 {
		t.Errorf("unexpected run metadata %+v", latest)
	}
	if !slices.Equal(latest.Seeds, []string{"https://a.example/"}) {
		t.Errorf("seeds = %v", latest.Seeds)
	}

	prev, err := db.PreviousRankRun(ctx, "run-2")
	if err != nil {
		t.Fatal(err)
	}
	if prev.ID != "run-1" {
		t.Errorf("expected run-1, got %s", prev.ID)
	}
	if _, err := db.PreviousRankRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected no run before run-1, got %v", err)
	}

	runs, err := db.ListRankRuns(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Errorf("unexpected run list %+v", runs)
	}
	if limited, err := db.ListRankRuns(ctx, 1); err != nil || len(limited) != 1 {
		t.Errorf("expected 1 run, got %d (%v)", len(limited), err)
	}

	got, err := db.GetRankRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Rankings[0].Score != 0.6 {
		t.Errorf("unexpected score %v", got.Rankings[0].Score)
	}
	if _, err := db.GetRankRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

// TestSearch tests keyword search ordered by rank.
func TestSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	pages := []*model.Page{
		{URL: "https://a.example/", Title: "Go crawler", Text: "A web crawler written in Go"},
		{URL: "https://b.example/", Title: "Crawling", Text: "Crawlers rank pages"},
		{URL: "https://c.example/", Title: "Cooking", Text: "Pasta recipes"},
	}
	for _, p := range pages {
		if err := db.SavePage(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	run := sampleRun("run-1", time.Now(),
		model.RankedPage{URL: "https://b.example/", Score: 0.5},
		model.RankedPage{URL: "https://a.example/", Score: 0.3},
		model.RankedPage{URL: "https://c.example/", Score: 0.2},
	)
	if err := db.SaveRankRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		query string
		limit int
		want  []string
	}{
		{name: "ordered by rank", query: "crawler", want: []string{"https://b.example/", "https://a.example/"}},
		{name: "all terms must match", query: "crawler go", want: []string{"https://a.example/"}},
		{name: "limit", query: "crawlers", limit: 1, want: []string{"https://b.example/"}},
		{name: "no match", query: "quantum", want: []string{}},
		{name: "only stopwords", query: "the and", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			results, err := db.Search(ctx, search.Terms(tt.query), tt.limit)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			got := make([]string, 0, len(results))
			for _, r := range results {
				got = append(got, r.URL)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

// TestRebind tests placeholder conversion.
func TestRebind(t *testing.T) {
	t.Parallel()

	pg := &CrawlDB{dialect: dialectPostgres}
	if got := pg.rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)"); got != "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)" {
		t.Errorf("unexpected rebind %q", got)
	}

	lite := &CrawlDB{dialect: dialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite query must be unchanged, got %q", got)
	}

	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
}

// TestParseTimestamp tests lenient timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	for _, s := range []string{
		formatTimestamp(want),
		"2024-03-04T05:06:07Z",
		"2024-03-04 05:06:07",
	} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v", s, got)
		}
	}
	if !parseTimestamp("garbage").IsZero() {
		t.Error("expected zero time")
	}
}
