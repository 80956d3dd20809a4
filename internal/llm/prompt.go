package llm

import (
	"fmt"
	"strings"

	"github.com/fleveque/webacquire/internal/model"
)

// BuildPrompt creates the user prompt for an extraction kind.
func BuildPrompt(kind model.ExtractionKind, content string, hint model.ExtractionHint) string {
	if kind == model.KindSearchResults {
		return buildSearchPrompt(content, hint)
	}
	return buildPagePrompt(content, hint)
}

func buildSearchPrompt(content string, hint model.ExtractionHint) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Below is the HTML of a search engine results page for the query %q.\n\n", hint.Query)
	b.WriteString(`Extract every organic search result on the page. For each result return:
- source: the name of the website or publisher
- title: the result title exactly as shown
- excerpt: the snippet text shown under the title
- url: the canonical destination URL (not a redirect or tracking link)

Skip ads, "people also ask" boxes and navigation links.
Only return results that are actually present in the HTML. Do not invent results.
If there are no results, return an empty list.
`)
	if hint.Context != "" {
		fmt.Fprintf(&b, "\nThe user is trying to answer: %q. Keep results in page order regardless.\n", hint.Context)
	}
	b.WriteString("\nHTML:\n")
	b.WriteString(content)

	return b.String()
}

func buildPagePrompt(content string, hint model.ExtractionHint) string {
	var b strings.Builder

	if hint.URL != "" {
		fmt.Fprintf(&b, "Below is the body HTML of the web page %s.\n\n", hint.URL)
	} else {
		b.WriteString("Below is the body HTML of a web page.\n\n")
	}
	b.WriteString(`Return:
- title: the page title, or null if there is none
- content: the main content as clean text. Remove navigation, ads, cookie banners and footers.
  Strip all HTML tags except <pre> and <code> blocks, which must be kept verbatim.
- follow_up_queries: 1 to 5 search queries a researcher could run next to go deeper on this topic
`)
	if hint.Context != "" {
		fmt.Fprintf(&b, "\nThe reader wants to answer: %q. Favor content relevant to that question and tailor the follow-up queries to it.\n", hint.Context)
	}
	b.WriteString("\nHTML:\n")
	b.WriteString(content)

	return b.String()
}
