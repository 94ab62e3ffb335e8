package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pagehunter/internal/model"
)

// JSONWriter outputs runs in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// The ranking is written in full: the top-N option of the other writers
// only shortens what a person reads, tools get every page.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output, WithTopN(0)),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run in JSON format.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(run)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps a run with metadata about the tool that produced it.
type JSONReport struct {
	// Version is the pagehunter version that generated this report.
	Version string `json:"version"`

	// ScoreSum is the sum of the raw scores, 1 for a complete ranking.
	ScoreSum float64 `json:"score_sum"`

	// Run is the crawl-and-rank run.
	Run *model.Run `json:"run"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(run *model.Run, version string) *JSONReport {
	return &JSONReport{
		Version:  version,
		ScoreSum: model.ScoreSum(run.Rankings),
		Run:      run,
	}
}

// FullJSONWriter outputs runs with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the pagehunter version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the run wrapped with metadata.
func (w *FullJSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(NewJSONReport(run, w.version))
}
