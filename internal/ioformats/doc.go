// Package ioformats reads and writes the files exchanged by crawlchunk:
// the document array produced by a crawl, the chunk array produced by the
// chunker, and seed URL lists (CSV, NDJSON or plain text).
package ioformats
