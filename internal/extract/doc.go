// Package extract finds and cleans the main textual content of a page.
//
// The Scorer walks candidate container blocks (main, article, section, div)
// of a parsed page and picks the one that looks most like body text: long,
// rich in paragraphs, poor in links. Clean normalizes the winning text to
// single-spaced printable ASCII.
package extract
