package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/crawlchunk/internal/htmldoc"
	"github.com/nao1215/crawlchunk/internal/model"
)

// skippedPrefixes are href prefixes that never lead to a crawlable page.
var skippedPrefixes = []string{"mailto:", "javascript:", "#"}

// Frontier turns the links of a page into crawl candidates.
type Frontier struct {
	visited *VisitedSet
	rules   RulesFunc
}

// FrontierOption configures a Frontier.
type FrontierOption func(*Frontier)

// WithFrontierRules sets the per-host link rules.
func WithFrontierRules(fn RulesFunc) FrontierOption {
	return func(f *Frontier) {
		if fn != nil {
			f.rules = fn
		}
	}
}

// NewFrontier creates a Frontier that skips URLs already in visited.
// A nil visited set is replaced by an empty one.
func NewFrontier(visited *VisitedSet, opts ...FrontierOption) *Frontier {
	if visited == nil {
		visited = NewVisitedSet()
	}
	f := &Frontier{
		visited: visited,
		rules:   noRules,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Visited returns the set the frontier checks against.
func (f *Frontier) Visited() *VisitedSet {
	return f.visited
}

// ExtractLinks returns the absolute http(s) URLs linked from tree that have
// not been visited yet, in document order and without duplicates.
//
// Relative links resolve against the page's <base href> when it has one,
// otherwise against baseURL (or the tree's own URL when baseURL is empty).
// Links with an empty href, or starting with "mailto:", "javascript:" or "#"
// are ignored. Membership in the visited set is only checked here; claiming
// a URL is left to the caller.
func (f *Frontier) ExtractLinks(tree *htmldoc.Tree, baseURL string) []string {
	pageURL := baseURL
	if pageURL == "" {
		pageURL = tree.URL()
	}

	base := tree.Base()
	if !tree.DeclaresBase() && baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			base = u
		}
	}

	pageHost := model.DomainOf(pageURL)
	sameHost := f.rules(pageHost).SameHost

	seen := make(map[string]struct{})
	var links []string

	tree.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		link, ok := resolveLink(base, href)
		if !ok {
			return
		}

		key := NormalizeURL(link)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		linkHost := model.DomainOf(link)
		if sameHost && linkHost != pageHost {
			return
		}
		if !f.rules(linkHost).allows(link) {
			return
		}
		if f.visited.Contains(link) {
			return
		}

		links = append(links, link)
	})

	return links
}

// resolveLink turns an href into an absolute http(s) URL without fragment.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}

	lower := strings.ToLower(href)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return "", false
	}

	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}
