package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/pagehunter/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose adds the crawl counters and convergence details.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithSimpleTopN limits the ranking to the n highest ranked pages.
func WithSimpleTopN(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		WithTopN(n)(&w.baseWriter)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run in human-readable format.
func (w *SimpleWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	if w.verbose {
		w.writeDetails(&sb, run)
	}
	w.writeRanking(&sb, run)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func rule(sb *strings.Builder, c string) {
	sb.WriteString(strings.Repeat(c, 70))
	sb.WriteString("\n")
}

// writeHeader writes the run summary.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.Run) {
	sb.WriteString("\n")
	rule(sb, "=")
	sb.WriteString("                        PAGEHUNTER REPORT\n")
	rule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Run:            %s\n", run.ID)
	for i, seed := range run.Seeds {
		label := "Seed:"
		if i > 0 {
			label = ""
		}
		fmt.Fprintf(sb, "%-16s%s\n", label, seed)
	}
	fmt.Fprintf(sb, "Started:        %s\n", run.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:        %s\n", run.Elapsed().Round(time.Millisecond))
	fmt.Fprintf(sb, "Pages Ranked:   %d\n", run.Pages)
	fmt.Fprintf(sb, "Status:         %s\n", status(run))
	sb.WriteString("\n")
}

// writeDetails writes crawl counters and convergence information.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, run *model.Run) {
	rule(sb, "-")
	sb.WriteString("CRAWL\n")
	rule(sb, "-")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "  Dispatched:   %d\n", run.Dispatched)
	fmt.Fprintf(sb, "  Indexed:      %d\n", run.Indexed)
	fmt.Fprintf(sb, "  Failed:       %d\n", run.Failed)
	fmt.Fprintf(sb, "  Duplicates:   %d\n", run.Duplicates)
	fmt.Fprintf(sb, "  Disallowed:   %d\n", run.Disallowed)
	sb.WriteString("\n")

	fmt.Fprintf(sb, "  Alpha:        %g\n", run.Alpha)
	fmt.Fprintf(sb, "  Epsilon:      %g\n", run.Epsilon)
	fmt.Fprintf(sb, "  Iterations:   %d\n", run.Iterations)
	fmt.Fprintf(sb, "  Delta:        %g\n", run.Delta)
	fmt.Fprintf(sb, "  Converged:    %t\n", run.Converged)
	sb.WriteString("\n")
}

// writeRanking writes the ranked pages, highest score first.
func (w *SimpleWriter) writeRanking(sb *strings.Builder, run *model.Run) {
	rule(sb, "-")
	sb.WriteString("RANKING\n")
	rule(sb, "-")
	sb.WriteString("\n")

	pages := w.top(run)
	if len(pages) == 0 {
		sb.WriteString("  No ranked pages\n\n")
		return
	}

	for i, p := range pages {
		fmt.Fprintf(sb, "  %3d. %-10s %s\n", i+1, formatFloat(p.Display), p.URL)
	}
	if rest := len(run.Rankings) - len(pages); rest > 0 {
		fmt.Fprintf(sb, "  ... and %d more\n", rest)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	rule(sb, "=")
	sb.WriteString("Report generated by pagehunter\n")
	sb.WriteString("https://github.com/nao1215/pagehunter\n")
	rule(sb, "=")
}
