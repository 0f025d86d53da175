// Package chunker splits cleaned document text into overlapping,
// size-bounded chunks for retrieval indexing.
//
// Text is first cut into units by a Splitter (sentence boundaries by
// default). Units are then packed greedily into chunks of at most chunkSize
// characters. Each new chunk starts with the last overlap characters of the
// previous one so context survives chunk boundaries. A single unit longer
// than chunkSize is emitted whole and never re-split.
package chunker
