package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// printable maps every rune outside printable ASCII to a space.
func printable(r rune) rune {
	if r < 0x20 || r > 0x7E {
		return ' '
	}
	return r
}

var nonPrintable = runes.Map(printable)

// Clean collapses whitespace runs into one space, replaces characters
// outside printable ASCII with a space and trims the result.
// Clean(Clean(s)) == Clean(s) for every s.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	mapped, _, err := transform.String(nonPrintable, text)
	if err != nil {
		mapped = strings.Map(printable, text)
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(mapped, " "))
}
