// Package database provides SQLite-based storage for crawlchunk.
//
// RunDB stores every run of the tool:
//   - run metadata (seeds, timing, counters, fetch failures)
//   - the documents the crawler extracted, in crawl order
//   - the chunk records built from them, in output order
//
// The database is a single file opened through modernc.org/sqlite, a
// CGO-free driver, in WAL mode with a single writer connection.
// Runs can be looked up by their full ID or any unambiguous prefix.
package database
