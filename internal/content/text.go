package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noise is removed before collecting text.
const noise = "script, style, noscript, template, svg, iframe"

// Readable parses an HTML document and returns its <title> and the visible
// text of the page, one non-empty line per block. It is the fallback payload
// when structured extraction is unavailable or fails.
func Readable(html string) (title string, text string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", collapseLines(html)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find(noise).Remove()
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	// Block elements get a trailing newline so paragraphs don't run together.
	root.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, tr, pre, section, article").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return title, collapseLines(root.Text())
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
