package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/pagehunter/internal/database"
	"github.com/nao1215/pagehunter/internal/model"
	"github.com/spf13/cobra"
)

// latestRunID selects the most recent run in the history command.
const latestRunID = "latest"

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List rank runs or show how a run moved pages",
		Long: `History lists the stored rank runs, newest first.

Given a run ID (or "latest"), it shows that run's ranking together with the
movement of every page against the run before it:
  +2    the page climbed two positions
  new   the page was not ranked in the previous run

Pages that dropped out of the ranking are listed at the end.

Examples:
  pagehunter history
  pagehunter history latest
  pagehunter history --json 3f0c2b1e-8d7a-4c55-9e61-2a4b6f8e9d10`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", 20,
		"Number of runs to list, or pages to show for a run (0 means all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// rankMovement is the change of one page between two runs.
type rankMovement struct {
	URL   string  `json:"url"`
	Title string  `json:"title,omitempty"`
	Score float64 `json:"score"`

	// Position is the 1-based position in the run.
	Position int `json:"position"`

	// PreviousPosition is the 1-based position in the previous run,
	// 0 if the page was not ranked there.
	PreviousPosition int `json:"previous_position,omitempty"`

	// PreviousScore is the score in the previous run.
	PreviousScore float64 `json:"previous_score,omitempty"`
}

// Change returns the number of positions climbed. New pages report 0.
func (m rankMovement) Change() int {
	if m.PreviousPosition == 0 {
		return 0
	}
	return m.PreviousPosition - m.Position
}

// runComparison is a run and its movement against the previous run.
type runComparison struct {
	Run        *model.Run     `json:"run"`
	PreviousID string         `json:"previous_id,omitempty"`
	Movements  []rankMovement `json:"movements"`
	Dropped    []string       `json:"dropped"`
}

// compareRuns computes the rank movement of current against previous.
// previous may be nil.
func compareRuns(previous, current *model.Run) *runComparison {
	result := &runComparison{
		Run:       current,
		Movements: make([]rankMovement, len(current.Rankings)),
		Dropped:   make([]string, 0),
	}

	prevPos := make(map[string]int)
	prevScore := make(map[string]float64)
	if previous != nil {
		result.PreviousID = previous.ID
		for i, p := range previous.Rankings {
			prevPos[p.URL] = i + 1
			prevScore[p.URL] = p.Score
		}
	}

	seen := make(map[string]struct{}, len(current.Rankings))
	for i, p := range current.Rankings {
		seen[p.URL] = struct{}{}
		result.Movements[i] = rankMovement{
			URL:              p.URL,
			Score:            p.Score,
			Position:         i + 1,
			PreviousPosition: prevPos[p.URL],
			PreviousScore:    prevScore[p.URL],
		}
	}

	if previous != nil {
		for _, p := range previous.Rankings {
			if _, ok := seen[p.URL]; !ok {
				result.Dropped = append(result.Dropped, p.URL)
			}
		}
	}
	return result
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
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

	logger := newLogger(cmd, cfg.Verbose)
	ctx := cmd.Context()

	db, err := openDatabase(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 0 {
		return listRuns(ctx, cmd.OutOrStdout(), db, limit, jsonOutput)
	}
	return showRun(ctx, cmd.OutOrStdout(), db, args[0], limit, jsonOutput)
}

// listRuns prints the stored runs, newest first.
func listRuns(ctx context.Context, out io.Writer, db *database.CrawlDB, limit int, jsonOutput bool) error {
	runs, err := db.ListRankRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list rank runs: %w", err)
	}

	if jsonOutput {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No rank runs found in the database.")
		fmt.Fprintln(out, "\nUse 'pagehunter crawl <start-url>' to crawl and rank pages.")
		return nil
	}

	fmt.Fprintf(out, "Rank runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %6s  %10s  %s\n", "ID", "Started", "Pages", "Iterations", "Converged")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %6d  %10d  %t\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Pages,
			run.Iterations,
			run.Converged,
		)
	}
	fmt.Fprintln(out, "\nUse 'pagehunter history <run-id>' to see how a run moved pages.")
	return nil
}

// showRun prints one run with its movement against the previous run.
func showRun(ctx context.Context, out io.Writer, db *database.CrawlDB, id string, limit int, jsonOutput bool) error {
	var (
		current *model.Run
		err     error
	)
	if id == latestRunID {
		current, err = db.LatestRankRun(ctx)
	} else {
		current, err = db.GetRankRun(ctx, id)
	}
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return fmt.Errorf("%w: %s", err, id)
		}
		return err
	}

	previous, err := db.PreviousRankRun(ctx, current.ID)
	if err != nil && !errors.Is(err, database.ErrRunNotFound) {
		return err
	}

	result := compareRuns(previous, current)
	movements := result.Movements
	if limit > 0 && limit < len(movements) {
		movements = movements[:limit]
	}
	if err := addTitles(ctx, db, movements); err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, result)
	}

	fmt.Fprintf(out, "Rank run %s\n", current.ID)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "Started:    %s\n", current.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Seeds:      %s\n", strings.Join(current.Seeds, ", "))
	fmt.Fprintf(out, "Pages:      %d\n", current.Pages)
	fmt.Fprintf(out, "Iterations: %d (converged: %t)\n", current.Iterations, current.Converged)
	if previous != nil {
		fmt.Fprintf(out, "Compared to %s\n", previous.ID)
	} else {
		fmt.Fprintln(out, "No previous run to compare with.")
	}
	fmt.Fprintln(out)

	for _, m := range movements {
		fmt.Fprintf(out, "  %3d. %-5s %.6f  %s", m.Position, formatMovement(m, previous != nil), m.Score, m.URL)
		if m.Title != "" {
			fmt.Fprintf(out, "  (%s)", m.Title)
		}
		fmt.Fprintln(out)
	}

	if len(result.Dropped) > 0 {
		fmt.Fprintf(out, "\nDropped (%d):\n", len(result.Dropped))
		for _, u := range result.Dropped {
			fmt.Fprintf(out, "  [-] %s\n", u)
		}
	}
	return nil
}

// addTitles fills in the stored page titles of movements.
// Pages that are no longer stored keep an empty title.
func addTitles(ctx context.Context, db *database.CrawlDB, movements []rankMovement) error {
	for i := range movements {
		page, err := db.GetPage(ctx, movements[i].URL)
		if err != nil {
			return err
		}
		if page != nil {
			movements[i].Title = page.Title
		}
	}
	return nil
}

// formatMovement formats the position change of a page for display.
func formatMovement(m rankMovement, compared bool) string {
	if !compared {
		return ""
	}
	if m.PreviousPosition == 0 {
		return "new"
	}
	return formatDelta(m.Change())
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
