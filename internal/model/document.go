package model

import (
	"net/url"
	"strings"
)

// MinDocumentLength is the content length below which a document is not
// worth chunking. Documents shorter than this are dropped when loaded from
// disk, and the crawler only emits documents strictly longer than it.
const MinDocumentLength = 200

// Document is the cleaned main content of one crawled page.
// It is created once per page after scoring and cleaning and never modified.
type Document struct {
	// URL is the final URL the page was served from.
	URL string `json:"url"`

	// Domain is the host part of URL, including a non-default port.
	Domain string `json:"domain"`

	// Title is the text of the page's <title> element, trimmed.
	Title string `json:"title"`

	// Content is the cleaned main content.
	Content string `json:"content"`

	// Length is the number of characters in Content.
	Length int `json:"length"`
}

// NewDocument builds a Document for pageURL, deriving Domain and Length.
func NewDocument(pageURL, title, content string) Document {
	return Document{
		URL:     pageURL,
		Domain:  DomainOf(pageURL),
		Title:   title,
		Content: content,
		Length:  len(content),
	}
}

// DomainOf returns the host (with port, if any) of rawURL.
// It returns an empty string when rawURL cannot be parsed.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// ChunkRecord is one bounded slice of a document's cleaned text.
// ChunkID values of one document form the sequence 0..n-1 in text order.
type ChunkRecord struct {
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Title   string `json:"title"`
	ChunkID int    `json:"chunk_id"` //nolint:tagliatelle // file format shared with existing indexers
	Text    string `json:"text"`
	Length  int    `json:"length"`
}

// ContentCandidate is a scored block considered during main-content
// extraction. Candidates only live for the duration of one page.
type ContentCandidate struct {
	// Tag is the element name of the candidate block (main, article, ...).
	Tag string `json:"tag"`

	// Text is the joined text of the block.
	Text string `json:"text"`

	// Score is the heuristic score of the block.
	Score float64 `json:"score"`
}

// Metadata keys used on FetchTask.
const (
	// MetaReferrer holds the URL of the page the link was found on.
	MetaReferrer = "referrer"
)

// FetchTask is a pending page fetch.
// It is created when a link is discovered and claimed in the visited set,
// and consumed when the fetch completes.
type FetchTask struct {
	// URL is the absolute URL to fetch.
	URL string `json:"url"`

	// Depth is the number of link hops from the seed (seeds are 0).
	Depth int `json:"depth"`

	// Metadata carries free-form data about the task, such as the referrer.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// NewFetchTask creates a task for rawURL discovered on referrer.
// An empty referrer marks a seed task.
func NewFetchTask(rawURL string, depth int, referrer string) FetchTask {
	task := FetchTask{
		URL:      rawURL,
		Depth:    depth,
		Metadata: make(map[string]string),
	}
	if referrer != "" {
		task.Metadata[MetaReferrer] = referrer
	}
	return task
}

// Referrer returns the page the task was discovered on, if any.
func (t FetchTask) Referrer() string {
	if t.Metadata == nil {
		return ""
	}
	return t.Metadata[MetaReferrer]
}
