package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/crawlchunk/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// maxChartSlices caps the pie chart; the remaining domains are merged
// into an "other" slice.
const maxChartSlices = 8

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(run *model.CrawlRun) (int, error) {
	summary := run.Summary()
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeSummary(md, summary)
	w.writeDomains(md, summary)
	w.writeFailures(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s model.RunSummary) {
	md.H1("crawlchunk Report")
	md.PlainText("")

	seeds := "-"
	if len(s.Seeds) > 0 {
		quoted := make([]string, len(s.Seeds))
		for i, seed := range s.Seeds {
			quoted[i] = "`" + seed + "`"
		}
		seeds = strings.Join(quoted, "<br>")
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.ID + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
			{"Seeds", seeds},
			{"Status", statusText(s)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the counters, the domain chart and a status alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.RunSummary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages fetched", strconv.Itoa(s.PagesFetched)},
			{"Fetch failures", strconv.Itoa(s.Failures)},
			{"Documents", strconv.Itoa(s.Documents)},
			{"Characters extracted", strconv.Itoa(s.CharsExtracted)},
			{"Chunks", strconv.Itoa(s.Chunks)},
			{"Average chunk length", strconv.Itoa(s.AvgChunkLength)},
			{"Longest chunk", strconv.Itoa(s.MaxChunkLength)},
		},
	})
	md.PlainText("")

	if s.Documents > 0 {
		w.writePieChart(md, s)
	}

	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart of documents per domain.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.RunSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Documents per Domain"),
		piechart.WithShowData(true),
	)

	var other uint64
	for i, d := range s.Domains {
		if d.Documents == 0 {
			continue
		}
		if i < maxChartSlices {
			chart.LabelAndIntValue(d.Domain, uint64(d.Documents))
			continue
		}
		other += uint64(d.Documents)
	}
	if other > 0 {
		chart.LabelAndIntValue("other", other)
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert describing how the run ended.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s model.RunSummary) {
	switch {
	case s.Error != "":
		md.Cautionf("The run failed: %s", s.Error)
	case s.TimedOut:
		md.Warningf("The run was cut short. %d document(s) were collected before the deadline.", s.Documents)
	case s.Documents == 0:
		md.Importantf("None of the %d fetched page(s) produced a document.", s.PagesFetched)
	case s.Failures > 0:
		md.Note(strconv.Itoa(s.Failures) + " page(s) could not be fetched.")
	default:
		md.Tip("All fetched pages were processed.")
	}
	md.PlainText("")
}

// writeDomains writes the per-domain table.
func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, s model.RunSummary) {
	md.H2("Domains")
	md.PlainText("")

	if len(s.Domains) == 0 {
		md.PlainText("No documents were extracted.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Domains))
	for i, d := range s.Domains {
		rows[i] = []string{"`" + d.Domain + "`", strconv.Itoa(d.Documents), strconv.Itoa(d.Chunks)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Documents", "Chunks"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the table of pages that could not be fetched.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, run *model.CrawlRun) {
	if len(run.Failures) == 0 {
		return
	}

	md.H2("Fetch Failures")
	md.PlainText("")

	rows := make([][]string, len(run.Failures))
	for i, f := range run.Failures {
		rows[i] = []string{truncateString(f.URL, 80), truncateString(f.Error, 80)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by crawlchunk*")
}
