// Package pipeline runs the stages of a crawlchunk run in sequence.
//
// A run is a model.CrawlRun that each Step reads and fills: LoadStep or
// CrawlStep produce documents, ChunkStep turns them into chunk records,
// WriteStep writes the JSON outputs and StoreStep saves the run to the
// database. The CLI assembles the steps a command needs.
//
// Chunking of many documents is spread over a bounded number of goroutines
// by BatchChunker, which uses errgroup and keeps the input order.
package pipeline
