// Package htmldoc wraps a parsed HTML page.
//
// A Tree is produced once per fetched page. Parsing decodes the body to
// UTF-8 using the Content-Type header and any <meta charset> declaration,
// drops script, style, noscript and template subtrees, and remembers the
// base URL that relative links on the page resolve against (the page URL,
// overridden by <base href> when present). Queries go through goquery
// selectors.
package htmldoc
