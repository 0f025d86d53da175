package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/crawlchunk/internal/model"
)

// JSONWriter outputs the run summary in JSON format.
// Page text is written as is: <, > and & are not escaped.
type JSONWriter struct {
	baseWriter

	// pretty enables two-space indentation.
	pretty bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.pretty = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs run.Summary() in JSON format.
func (w *JSONWriter) Write(run *model.CrawlRun) (int, error) {
	return w.writeJSON(run.Summary())
}

// writeJSON encodes v followed by a newline and writes it in one call,
// so nothing reaches the output when encoding fails.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// JSONReport wraps a full run with its summary and the tool version.
type JSONReport struct {
	// Version is the crawlchunk version that produced the run.
	Version string `json:"version"`

	// Summary is the run summary for quick access.
	Summary model.RunSummary `json:"summary"`

	// Run is the full run including documents and chunks.
	Run *model.CrawlRun `json:"run"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(run *model.CrawlRun, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: run.Summary(),
		Run:     run,
	}
}

// FullJSONWriter outputs complete runs with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the crawlchunk version string.
	version string
}

// NewFullJSONWriter creates a writer for complete runs with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the full run wrapped with metadata.
func (w *FullJSONWriter) Write(run *model.CrawlRun) (int, error) {
	return w.writeJSON(NewJSONReport(run, w.version))
}
