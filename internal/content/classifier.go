// Package content inspects fetched payloads: it decides which processing type
// applies, trims HTML down to its body, and derives readable fallback text.
// Everything here is a pure function of its inputs.
package content

import (
	"encoding/json"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/fleveque/webacquire/internal/model"
)

// headerRules are checked in order; the first substring match wins.
var headerRules = []struct {
	substr string
	typ    model.ContentType
}{
	{"text/html", model.ContentHTML},
	{"application/xhtml", model.ContentHTML},
	{"application/json", model.ContentJSON},
	{"text/json", model.ContentJSON},
	{"application/xml", model.ContentXML},
	{"text/xml", model.ContentXML},
	{"application/javascript", model.ContentJavaScript},
	{"text/javascript", model.ContentJavaScript},
	{"text/css", model.ContentCSS},
	{"text/plain", model.ContentText},
}

var extensionTypes = map[string]model.ContentType{
	".json": model.ContentJSON,
	".xml":  model.ContentXML,
	".rss":  model.ContentXML,
	".atom": model.ContentXML,
	".js":   model.ContentJavaScript,
	".mjs":  model.ContentJavaScript,
	".css":  model.ContentCSS,
	".txt":  model.ContentText,
}

// htmlPatterns match lower-cased, trimmed content. The doctype must open the
// document; any other tag may appear anywhere, as long as it is followed by
// whitespace, '>' or '/' (so <pre> is not read as <p>).
var htmlPatterns = buildHTMLPatterns()

func buildHTMLPatterns() []*regexp.Regexp {
	tags := []string{
		"html", "head", "body", "title", "meta", "div", "p", "span",
		"article", "section", "header", "footer", "nav", "main",
	}
	patterns := []*regexp.Regexp{regexp.MustCompile(`^<!doctype html`)}
	for _, tag := range tags {
		patterns = append(patterns, regexp.MustCompile(`<`+tag+`(?:[\s>/]|$)`))
	}
	return patterns
}

// Classify decides how a payload should be processed.
//
// Decision order, first match wins:
//  1. content-type header
//  2. URL file extension
//  3. HTML tag sniffing
//  4. strict JSON parse
//  5. leading "<?xml" or "<" → xml
//  6. unsupported
//
// There is no silent fallback to text: content that matches nothing is
// reported as unsupported.
func Classify(body string, contentTypeHeader string, rawURL string) model.ContentType {
	if t, ok := fromHeader(contentTypeHeader); ok {
		return t
	}
	if t, ok := fromExtension(rawURL); ok {
		return t
	}

	trimmed := strings.TrimSpace(strings.TrimPrefix(body, "\ufeff"))
	lower := strings.ToLower(trimmed)

	for _, re := range htmlPatterns {
		if re.MatchString(lower) {
			return model.ContentHTML
		}
	}

	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return model.ContentJSON
	}

	if strings.HasPrefix(lower, "<?xml") || strings.HasPrefix(lower, "<") {
		return model.ContentXML
	}

	return model.ContentUnsupported
}

func fromHeader(header string) (model.ContentType, bool) {
	header = strings.ToLower(header)
	if header == "" {
		return "", false
	}
	for _, rule := range headerRules {
		if strings.Contains(header, rule.substr) {
			return rule.typ, true
		}
	}
	return "", false
}

func fromExtension(rawURL string) (model.ContentType, bool) {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	t, ok := extensionTypes[ext]
	return t, ok
}

// SupportedList renders the supported types for error messages.
func SupportedList() string {
	names := make([]string, len(model.SupportedContentTypes))
	for i, t := range model.SupportedContentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
