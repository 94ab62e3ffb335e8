package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/pagehunter/internal/config"
	"github.com/nao1215/pagehunter/internal/database"
	"github.com/nao1215/pagehunter/internal/model"
	"github.com/nao1215/pagehunter/internal/pipeline"
	"github.com/spf13/cobra"
)

// errNoStoredPages is returned when there is nothing to rank.
var errNoStoredPages = errors.New("no pages stored (run 'pagehunter crawl' first)")

// NewRankCmd creates the rank command.
func NewRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the stored link graph again",
		Long: `Rank rebuilds the link graph from the pages stored by previous crawls and
ranks it without fetching anything. The result is stored as a new rank run.

This is useful to try other ranking parameters, or to rank the pages of
several crawls together.

Examples:
  # Re-rank with a lower damping factor
  pagehunter rank --alpha 0.5

  # Re-rank and list every page as JSON
  pagehunter rank --top 0 --json`,
		Args: cobra.NoArgs,
		RunE: runRankCmd,
	}

	addRankFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// runRankCmd executes the rank command.
func runRankCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := readRankFlags(cmd, cfg); err != nil {
		return err
	}
	if err := readReportFlags(cmd, cfg); err != nil {
		return err
	}

	if err := cfg.ValidateRank(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.JSONReport && cfg.MarkdownReport {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}

	logger := newLogger(cmd, cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runRank(ctx, cmd, cfg, logger)
}

// runRank executes the load, rank and persist pipeline and writes the report.
func runRank(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	db, err := openDatabase(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	pages, err := db.PageCount(ctx)
	if err != nil {
		return err
	}
	if pages == 0 {
		return errNoStoredPages
	}

	// The stored graph has no seeds of its own; report those of the last run.
	var seeds []string
	latest, err := db.LatestRankRun(ctx)
	switch {
	case err == nil:
		seeds = latest.Seeds
	case !errors.Is(err, database.ErrRunNotFound):
		return err
	}

	p := pipeline.RerankPipeline(db,
		[]pipeline.Option{pipeline.WithLogger(logger)},
		pipeline.WithPipelineAlpha(cfg.Alpha),
		pipeline.WithPipelineEpsilon(cfg.Epsilon),
		pipeline.WithPipelineMaxIterations(cfg.MaxIterations),
	)

	run := model.NewRun(seeds)
	execErr := p.Execute(ctx, run)

	if err := outputReport(cmd, cfg, run); err != nil && execErr == nil {
		return err
	}
	return execErr
}
