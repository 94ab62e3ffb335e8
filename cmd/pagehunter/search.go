package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/pagehunter/internal/search"
	"github.com/nao1215/pagehunter/internal/web"
	"github.com/spf13/cobra"
)

// errNoSearchTerms is returned when a query consists of stopwords only.
var errNoSearchTerms = errors.New("query has no searchable terms")

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <terms...>",
		Short: "Search stored pages by keyword",
		Long: `Search lists the stored pages that contain every given term, highest
ranked first. Terms are matched by their stem, so "crawling" also finds
pages containing "crawl". Common words such as "the" are ignored.

Examples:
  pagehunter search page rank
  pagehunter search --limit 5 --json crawler`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().IntP("limit", "l", web.DefaultResultLimit,
		"Maximum number of results (0 means no limit)")
	cmd.Flags().BoolP("json", "j", false,
		"Output results in JSON format")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	terms := search.Terms(query)
	if len(terms) == 0 {
		return fmt.Errorf("%w: %q", errNoSearchTerms, query)
	}

	logger := newLogger(cmd, cfg.Verbose)
	ctx := cmd.Context()

	db, err := openDatabase(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.Search(ctx, terms, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, results)
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No pages match %q.\n", query)
		return nil
	}

	fmt.Fprintf(out, "%d page(s) match %q:\n\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(out, "  %3d. %.6f  %s\n", i+1, r.Score, r.URL)
		if r.Title != "" {
			fmt.Fprintf(out, "       %s\n", r.Title)
		}
	}
	return nil
}
