package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/crawlchunk/internal/model"
)

// maxListedFailures is how many fetch failures are listed without WithVerbose.
const maxListedFailures = 10

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to list are shown.
	showEmpty bool

	// verbose lists every document and every failure.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
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

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(run *model.CrawlRun) (int, error) {
	summary := run.Summary()

	var sb strings.Builder
	w.writeHeader(&sb, summary)
	w.writeSummary(&sb, summary)
	w.writeDomains(&sb, summary)
	w.writeDocuments(&sb, run)
	w.writeFailures(&sb, run)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, s model.RunSummary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        CRAWLCHUNK REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:         %s\n", s.ID)
	fmt.Fprintf(sb, "Started:        %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", s.Duration.Round(time.Millisecond))
	for i, seed := range s.Seeds {
		label := "Seeds:"
		if i > 0 {
			label = ""
		}
		fmt.Fprintf(sb, "%-15s %s\n", label, seed)
	}
	fmt.Fprintf(sb, "Status:         %s\n", statusText(s))
	sb.WriteString("\n")
}

// writeSummary writes the counters of the run.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.RunSummary) {
	section(sb, "SUMMARY")

	fmt.Fprintf(sb, "  Pages fetched:     %d\n", s.PagesFetched)
	fmt.Fprintf(sb, "  Fetch failures:    %d\n", s.Failures)
	fmt.Fprintf(sb, "  Documents:         %d\n", s.Documents)
	fmt.Fprintf(sb, "  Characters:        %d\n", s.CharsExtracted)
	fmt.Fprintf(sb, "  Chunks:            %d\n", s.Chunks)
	if s.Chunks > 0 {
		fmt.Fprintf(sb, "  Avg chunk length:  %d\n", s.AvgChunkLength)
		fmt.Fprintf(sb, "  Max chunk length:  %d\n", s.MaxChunkLength)
	}
	sb.WriteString("\n")
}

// writeDomains writes the per-domain counts.
func (w *SimpleWriter) writeDomains(sb *strings.Builder, s model.RunSummary) {
	if len(s.Domains) == 0 && !w.showEmpty {
		return
	}

	section(sb, "DOMAINS")

	if len(s.Domains) == 0 {
		sb.WriteString("  No documents\n\n")
		return
	}
	for _, d := range s.Domains {
		fmt.Fprintf(sb, "  %-40s %5d documents %6d chunks\n", truncateString(d.Domain, 40), d.Documents, d.Chunks)
	}
	sb.WriteString("\n")
}

// writeDocuments lists the documents. Only shown in verbose mode.
func (w *SimpleWriter) writeDocuments(sb *strings.Builder, run *model.CrawlRun) {
	if !w.verbose {
		return
	}
	if len(run.Documents) == 0 && !w.showEmpty {
		return
	}

	section(sb, "DOCUMENTS")

	if len(run.Documents) == 0 {
		sb.WriteString("  No documents\n\n")
		return
	}
	for _, doc := range run.Documents {
		fmt.Fprintf(sb, "  [+] %s\n", doc.URL)
		if doc.Title != "" {
			fmt.Fprintf(sb, "      Title:  %s\n", truncateString(doc.Title, 60))
		}
		fmt.Fprintf(sb, "      Length: %d\n", doc.Length)
	}
	sb.WriteString("\n")
}

// writeFailures lists the pages that could not be fetched.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, run *model.CrawlRun) {
	if len(run.Failures) == 0 && !w.showEmpty {
		return
	}

	section(sb, "FETCH FAILURES")

	if len(run.Failures) == 0 {
		sb.WriteString("  No failures\n\n")
		return
	}

	failures := run.Failures
	if !w.verbose && len(failures) > maxListedFailures {
		failures = failures[:maxListedFailures]
	}
	for _, f := range failures {
		fmt.Fprintf(sb, "  [-] %s\n", f.URL)
		fmt.Fprintf(sb, "      %s\n", f.Error)
	}
	if hidden := len(run.Failures) - len(failures); hidden > 0 {
		fmt.Fprintf(sb, "  ... and %d more (use --verbose to list all)\n", hidden)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by crawlchunk\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
