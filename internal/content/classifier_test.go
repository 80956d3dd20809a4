package content

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleveque/webacquire/internal/model"
)

func TestClassify_HeaderWins(t *testing.T) {
	tests := []struct {
		header string
		want   model.ContentType
	}{
		{"text/html; charset=utf-8", model.ContentHTML},
		{"application/xhtml+xml", model.ContentHTML},
		{"application/json", model.ContentJSON},
		{"text/json", model.ContentJSON},
		{"application/xml", model.ContentXML},
		{"text/xml; charset=iso-8859-1", model.ContentXML},
		{"application/javascript", model.ContentJavaScript},
		{"text/javascript", model.ContentJavaScript},
		{"text/css", model.ContentCSS},
		{"TEXT/PLAIN", model.ContentText},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			// Body and URL both point elsewhere; the header must still win.
			got := Classify("<html><body>x</body></html>", tt.header, "https://example.com/a.css")
			if tt.want == model.ContentHTML {
				got = Classify("{}", tt.header, "https://example.com/a.json")
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_JSONHeaderBeatsExtension(t *testing.T) {
	got := Classify(`{"a":1}`, "application/json", "https://example.com/page.html")
	assert.Equal(t, model.ContentJSON, got)
}

func TestClassify_ExtensionFallback(t *testing.T) {
	tests := map[string]model.ContentType{
		"https://example.com/data.json":   model.ContentJSON,
		"https://example.com/feed.rss":    model.ContentXML,
		"https://example.com/feed.atom":   model.ContentXML,
		"https://example.com/sitemap.XML": model.ContentXML,
		"https://example.com/app.mjs":     model.ContentJavaScript,
		"https://example.com/app.js?v=3":  model.ContentJavaScript,
		"https://example.com/site.css#x":  model.ContentCSS,
		"https://example.com/robots.txt":  model.ContentText,
	}
	for rawURL, want := range tests {
		// An unrecognized header falls through to the extension.
		assert.Equal(t, want, Classify("whatever", "application/octet-stream", rawURL), rawURL)
	}
}

func TestClassify_HTMLSniffing(t *testing.T) {
	docs := []string{
		"<!DOCTYPE html><html><body>hi</body></html>",
		"   <html lang=\"en\">",
		"<head><title>x</title></head>",
		"<div class=\"a\">x</div>",
		"<p>paragraph</p>",
		"<main>\n<article>x</article></main>",
		"text before\n<section>x</section>",
		"Hello<div>x</div>",
		"note:<p>hi</p>",
	}
	for _, doc := range docs {
		assert.Equal(t, model.ContentHTML, Classify(doc, "", "https://example.com/page"), doc)
	}
}

func TestClassify_TagPrefixIsNotATag(t *testing.T) {
	// <pre> must not be read as <p>, <header-x> not as <header>.
	assert.Equal(t, model.ContentXML, Classify("<pre>code</pre>", "", "https://example.com/x"))
	assert.Equal(t, model.ContentXML, Classify("<header-x>1</header-x>", "", "https://example.com/x"))
}

func TestClassify_JSONSniffing(t *testing.T) {
	assert.Equal(t, model.ContentJSON, Classify(`  {"items":[1,2,3]} `, "", "https://example.com/api"))
	assert.Equal(t, model.ContentJSON, Classify(`[1,2]`, "", "https://example.com/api"))
}

func TestClassify_XMLSniffing(t *testing.T) {
	assert.Equal(t, model.ContentXML, Classify(`<?xml version="1.0"?><rss></rss>`, "", "https://example.com/feed"))
	assert.Equal(t, model.ContentXML, Classify(`<urlset><url/></urlset>`, "", "https://example.com/sitemap"))
}

func TestClassify_Unsupported(t *testing.T) {
	assert.Equal(t, model.ContentUnsupported, Classify("just some words", "", "https://example.com/x"))
	assert.Equal(t, model.ContentUnsupported, Classify("", "", "https://example.com/x"))
	assert.Equal(t, model.ContentUnsupported, Classify("%PDF-1.7", "application/pdf", "https://example.com/doc"))
}

func TestClassify_IsPure(t *testing.T) {
	inputs := [][3]string{
		{"<p>x</p>", "", "https://a.com"},
		{`{"a":1}`, "application/json", "https://a.com/x.xml"},
		{"plain", "", "https://a.com/x"},
	}
	for _, in := range inputs {
		first := Classify(in[0], in[1], in[2])
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Classify(in[0], in[1], in[2]))
		}
	}
}

func TestSupportedList(t *testing.T) {
	assert.Equal(t, "html, json, xml, javascript, css, text", SupportedList())
}
