package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var brTag = regexp.MustCompile(`(?i)<br\s*/?>`)

// StripHTML converts a catalog HTML fragment to plain text. Line breaks
// survive as newlines so sentence boundaries stay intact.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = brTag.ReplaceAllString(s, "\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		// Not reachable for fragment input in practice; fall back to raw text.
		return s
	}
	return strings.TrimSpace(doc.Text())
}
