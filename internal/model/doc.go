// Package model defines the data structures shared across crawlchunk.
//
// This package contains the following main types:
//   - Document: the cleaned main content of one crawled page
//   - ChunkRecord: a bounded, overlapping slice of a Document
//   - FetchTask: a pending page fetch discovered by the crawler
//   - ContentCandidate: a scored block during main-content extraction
//   - CrawlRun: everything produced by one invocation, plus its summary
//
// The types are kept free of behaviour beyond small constructors so the
// crawler, chunker, pipeline, report and database packages can all depend on
// them without import cycles. Document and ChunkRecord serialize to the JSON
// file formats read and written by the CLI.
package model
