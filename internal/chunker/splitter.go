package chunker

import (
	"regexp"
	"strings"
)

// Splitter cuts cleaned text into the units the Chunker packs into chunks.
type Splitter interface {
	Split(text string) []string
}

// SplitterFunc adapts a plain function to the Splitter interface.
type SplitterFunc func(text string) []string

// Split calls f(text).
func (f SplitterFunc) Split(text string) []string {
	return f(text)
}

var sentenceBoundaryRe = regexp.MustCompile(`\.\s+`)

// SentenceSplitter splits on a period followed by whitespace.
// Segments shorter than MinLength after trimming are dropped, and a period
// is appended to every kept segment, so a text ending in "." gives a last
// segment ending in "..".
type SentenceSplitter struct {
	MinLength int
}

// Split implements Splitter.
func (s SentenceSplitter) Split(text string) []string {
	segments := sentenceBoundaryRe.Split(text, -1)

	units := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" || len(seg) < s.MinLength {
			continue
		}
		units = append(units, seg+".")
	}
	return units
}
