package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// SiteRules are crawl settings for one host.
type SiteRules struct {
	// Headers are added to every request sent to the host.
	Headers map[string]string

	// MaxDepth overrides the spider's depth limit for the host when positive.
	MaxDepth int

	// IgnorePatterns are glob patterns on the URL path; matching links are skipped.
	IgnorePatterns []string

	// FollowPatterns, when set, restrict crawling to matching paths.
	FollowPatterns []string

	// SameHost keeps the crawl on the host of the page the link was found on.
	SameHost bool
}

// RulesFunc returns the rules for a host (lowercase, with port if any).
type RulesFunc func(host string) SiteRules

// StaticRules returns a RulesFunc that applies r to every host.
func StaticRules(r SiteRules) RulesFunc {
	return func(string) SiteRules {
		return r
	}
}

func noRules(string) SiteRules {
	return SiteRules{}
}

// allows reports whether targetURL passes the ignore and follow patterns.
// Ignore patterns win over follow patterns.
func (r SiteRules) allows(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range r.IgnorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(r.FollowPatterns) == 0 {
		return true
	}
	for _, pattern := range r.FollowPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern reports whether path matches a glob pattern.
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in .pdf
//   - other patterns use filepath.Match, and patterns without a slash are
//     also tried against the last path element
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") && strings.HasSuffix(path, pattern[1:]) {
		return true
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
