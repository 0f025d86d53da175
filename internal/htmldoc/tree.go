package htmldoc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// strippedSelector matches elements whose text never belongs to page content.
const strippedSelector = "script, style, noscript, template"

// ErrNoBaseURL is returned by Resolve when a relative reference cannot be
// resolved because the tree has no base URL.
var ErrNoBaseURL = errors.New("document has no base URL")

// Tree is a parsed HTML page.
type Tree struct {
	doc  *goquery.Document
	url  string
	base *url.URL

	// declaredBase is set when the page carries a usable <base href>.
	declaredBase bool
}

// Parse reads an HTML page from r and builds a Tree.
// contentType is the value of the Content-Type response header (may be empty)
// and is used, together with <meta charset>, to decode the body to UTF-8.
// pageURL is the URL the page was served from; it may be empty.
func Parse(r io.Reader, contentType, pageURL string) (*Tree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	doc.Find(strippedSelector).Remove()

	t := &Tree{doc: doc, url: pageURL}

	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("invalid page URL %q: %w", pageURL, err)
		}
		t.base = u
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := t.resolveURL(strings.TrimSpace(href)); err == nil {
			t.base = b
			t.declaredBase = true
		}
	}

	return t, nil
}

// ParseString parses an HTML string. It is a convenience for callers that
// already hold the page in memory.
func ParseString(s, pageURL string) (*Tree, error) {
	return Parse(strings.NewReader(s), "text/html; charset=utf-8", pageURL)
}

// URL returns the URL the page was served from, as passed to Parse.
func (t *Tree) URL() string {
	return t.url
}

// Document returns the underlying goquery document.
func (t *Tree) Document() *goquery.Document {
	return t.doc
}

// Find returns the elements matching a CSS selector, in document order.
func (t *Tree) Find(selector string) *goquery.Selection {
	return t.doc.Find(selector)
}

// Title returns the trimmed text of the first <title> element.
func (t *Tree) Title() string {
	return strings.TrimSpace(t.doc.Find("title").First().Text())
}

// Base returns the URL relative references resolve against, or nil.
func (t *Tree) Base() *url.URL {
	if t.base == nil {
		return nil
	}
	u := *t.base
	return &u
}

// DeclaresBase reports whether the page set its own base URL with <base href>.
func (t *Tree) DeclaresBase() bool {
	return t.declaredBase
}

// Resolve resolves ref against the tree's base URL and returns the absolute
// URL string.
func (t *Tree) Resolve(ref string) (string, error) {
	u, err := t.resolveURL(ref)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (t *Tree) resolveURL(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	if t.base == nil {
		if !u.IsAbs() {
			return nil, ErrNoBaseURL
		}
		return u, nil
	}
	return t.base.ResolveReference(u), nil
}

// Text joins the trimmed, non-empty text nodes below every element of sel
// with single spaces, in document order.
func Text(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		parts = appendText(parts, n)
	}
	return strings.Join(parts, " ")
}

// NodeText is Text for a single node.
func NodeText(n *html.Node) string {
	return strings.Join(appendText(nil, n), " ")
}

func appendText(parts []string, n *html.Node) []string {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			parts = append(parts, s)
		}
		return parts
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		parts = appendText(parts, c)
	}
	return parts
}
