package crawler

import (
	"net/url"
	"strings"
	"sync"
)

// VisitedSet is the set of URLs claimed during one crawl.
// URLs are normalized before they are stored, so "HTTP://Example.com#top"
// and "http://example.com/" are the same entry. It is safe for concurrent use.
type VisitedSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{urls: make(map[string]struct{})}
}

// MarkIfNotVisited adds rawURL to the set and reports whether it was absent.
// Exactly one of any number of concurrent callers for the same URL gets true.
func (v *VisitedSet) MarkIfNotVisited(rawURL string) bool {
	key := NormalizeURL(rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.urls[key]; ok {
		return false
	}
	v.urls[key] = struct{}{}
	return true
}

// Contains reports whether rawURL has been claimed.
func (v *VisitedSet) Contains(rawURL string) bool {
	key := NormalizeURL(rawURL)

	v.mu.Lock()
	defer v.mu.Unlock()

	_, ok := v.urls[key]
	return ok
}

// Len returns the number of claimed URLs.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.urls)
}

// Reset empties the set.
func (v *VisitedSet) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.urls = make(map[string]struct{})
}

// NormalizeURL returns the form of rawURL used for deduplication:
// the fragment is dropped, scheme and host are lowercased and an empty path
// becomes "/". Unparsable input is returned unchanged.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
