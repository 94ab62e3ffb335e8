package report

import (
	"io"

	"github.com/nao1215/pagehunter/internal/model"
)

// DefaultTopN is the number of ranked pages a writer shows unless
// configured otherwise.
const DefaultTopN = 20

// Writer defines the interface for report output.
// Implementations write run results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the run to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.Run) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Option configures the behaviour shared by all writers.
type Option func(*baseWriter)

// WithTopN limits the ranking section to the n highest ranked pages.
// n <= 0 shows every page.
func WithTopN(n int) Option {
	return func(b *baseWriter) {
		b.topN = n
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
	topN   int
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer, opts ...Option) baseWriter {
	b := baseWriter{output: output, topN: DefaultTopN}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// top returns the rankings the writer should show.
func (b *baseWriter) top(run *model.Run) []model.RankedPage {
	return run.Top(b.topN)
}

// status describes how the run ended.
func status(run *model.Run) string {
	switch {
	case run.TimedOut:
		return "cancelled (partial results)"
	case run.ErrorMessage != "":
		return "error: " + run.ErrorMessage
	case !run.Converged && run.Iterations > 0:
		return "not converged"
	default:
		return "complete"
	}
}
