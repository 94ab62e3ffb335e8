package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/pagehunter/internal/model"
)

// pieSlices is the number of pages drawn as their own slice in the rank
// distribution chart. The remaining pages are merged into "others".
const pieSlices = 5

// MarkdownWriter outputs runs in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides tables, code blocks and GitHub-flavored alerts.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...Option) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output, opts...),
	}
}

// Write outputs the run in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeCrawl(md, run)
	w.writeRanking(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the title, the run summary and the status alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run) {
	md.H1("pagehunter Report")
	md.PlainText("")

	seeds := make([]string, len(run.Seeds))
	for i, s := range run.Seeds {
		seeds[i] = "`" + s + "`"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + run.ID + "`"},
			{"Seeds", strings.Join(seeds, "<br>")},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", run.Elapsed().Round(time.Millisecond).String()},
			{"Status", statusText(run)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, run)
}

// statusText decorates the run status for Markdown.
func statusText(run *model.Run) string {
	switch {
	case run.TimedOut:
		return "⚠️ Cancelled (partial results)"
	case run.ErrorMessage != "":
		return "❌ Error - " + run.ErrorMessage
	case !run.Converged && run.Iterations > 0:
		return "⚠️ Not converged"
	default:
		return "✅ Complete"
	}
}

// writeAlert writes an alert describing how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run) {
	switch {
	case run.ErrorMessage != "":
		md.Cautionf("The run stopped with an error: %s", run.ErrorMessage)
	case run.TimedOut:
		md.Warningf("The run was cancelled after %d page visit(s); the ranking is incomplete.", run.Dispatched)
	case !run.Converged && run.Iterations > 0:
		md.Warningf("Ranking did not converge after %d iteration(s) (delta %g).", run.Iterations, run.Delta)
	case len(run.Rankings) == 0:
		md.Note("No pages were indexed.")
	default:
		md.Tip("Ranking converged. Scores sum to 1.")
	}
	md.PlainText("")
}

// writeCrawl writes the crawl and ranking statistics.
func (w *MarkdownWriter) writeCrawl(md *markdown.Markdown, run *model.Run) {
	md.H2("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages ranked", strconv.Itoa(run.Pages)},
			{"Visits dispatched", strconv.Itoa(run.Dispatched)},
			{"Pages indexed", strconv.Itoa(run.Indexed)},
			{"Failed visits", strconv.Itoa(run.Failed)},
			{"Duplicate visits", strconv.Itoa(run.Duplicates)},
			{"Disallowed by robots.txt", strconv.Itoa(run.Disallowed)},
			{"Damping factor", formatFloat(run.Alpha)},
			{"Epsilon", formatFloat(run.Epsilon)},
			{"Iterations", strconv.Itoa(run.Iterations)},
			{"Final delta", formatFloat(run.Delta)},
			{"Converged", strconv.FormatBool(run.Converged)},
		},
	})
	md.PlainText("")
}

// writeRanking writes the ranking table and the rank distribution chart.
func (w *MarkdownWriter) writeRanking(md *markdown.Markdown, run *model.Run) {
	md.H2("Ranking")
	md.PlainText("")

	pages := w.top(run)
	if len(pages) == 0 {
		md.PlainText("No ranked pages.")
		md.PlainText("")
		return
	}

	if len(pages) < len(run.Rankings) {
		md.PlainTextf("Top %d of %d pages.", len(pages), len(run.Rankings))
		md.PlainText("")
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			p.URL,
			formatScore(p.Score),
			formatFloat(p.Display),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Score", "Display"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, run.Rankings)
}

// writePieChart writes a mermaid pie chart of the rank share of the top
// pages. Values are basis points of the total rank.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, pages []model.RankedPage) {
	if len(pages) < 2 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Rank Share (basis points)"),
		piechart.WithShowData(true),
	)

	var others float64
	for i, p := range pages {
		if i < pieSlices {
			chart.LabelAndIntValue(p.URL, basisPoints(p.Score))
			continue
		}
		others += p.Score
	}
	if bp := basisPoints(others); bp > 0 {
		chart.LabelAndIntValue("others", bp)
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pagehunter](https://github.com/nao1215/pagehunter)*")
}

// basisPoints converts a score in [0, 1] to rounded basis points.
func basisPoints(score float64) uint64 {
	if score <= 0 {
		return 0
	}
	return uint64(score*10000 + 0.5)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 6, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
