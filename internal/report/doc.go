// Package report renders the summary of a crawl run.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: the run summary as JSON for tool integration
//   - MarkdownWriter: Markdown tables and a mermaid pie chart of
//     documents per domain, for sharing
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed with MultiWriter.
package report
