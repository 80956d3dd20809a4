package content

import "regexp"

// bodyPattern is case-insensitive and lets '.' span newlines; the lazy group
// stops at the first closing tag.
var bodyPattern = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)

// ExtractBody returns the inner content of the first <body> element, or the
// input unchanged when the document has no body tag.
func ExtractBody(html string) string {
	m := bodyPattern.FindStringSubmatch(html)
	if m == nil {
		return html
	}
	return m[1]
}
