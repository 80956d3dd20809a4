// Package search builds search-engine query URLs for the SERP proxy zone.
package search

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultBaseURL     = "https://www.google.com/search"
	DefaultScholarURL  = "https://scholar.google.com/scholar"
	DefaultResultCount = 10
)

// Vertical is a result category selector.
type Vertical string

const (
	VerticalWeb      Vertical = "web"
	VerticalNews     Vertical = "news"
	VerticalImages   Vertical = "images"
	VerticalVideos   Vertical = "videos"
	VerticalShopping Vertical = "shopping"
	VerticalScholar  Vertical = "scholar"
)

// verticalTBM maps verticals to the engine's tbm sub-parameter.
// Scholar uses its own hostname instead.
var verticalTBM = map[Vertical]string{
	VerticalNews:     "nws",
	VerticalImages:   "isch",
	VerticalVideos:   "vid",
	VerticalShopping: "shop",
}

// timeRanges maps friendly names to the tbs filter. Anything else is passed
// through verbatim so callers can send raw tbs expressions.
var timeRanges = map[string]string{
	"hour":  "qdr:h",
	"day":   "qdr:d",
	"week":  "qdr:w",
	"month": "qdr:m",
	"year":  "qdr:y",
}

// Params are the optional query parameters. Pointer fields distinguish
// "not provided" from zero.
type Params struct {
	CountryCode   string
	LanguageCode  string
	ResultCount   *int
	StartOffset   *int
	Vertical      string
	TimeRange     string
	VerticalBoost string // engine's udm selector
}

// Builder constructs query URLs against configurable endpoints.
type Builder struct {
	baseURL    string
	scholarURL string
}

// NewBuilder creates a Builder. Empty endpoints fall back to the defaults.
func NewBuilder(baseURL, scholarURL string) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if scholarURL == "" {
		scholarURL = DefaultScholarURL
	}
	return &Builder{baseURL: baseURL, scholarURL: scholarURL}
}

// ParseVertical normalizes a caller-supplied vertical. Unknown or empty
// values mean plain web search.
func ParseVertical(s string) Vertical {
	switch v := Vertical(strings.ToLower(strings.TrimSpace(s))); v {
	case VerticalNews, VerticalImages, VerticalVideos, VerticalShopping, VerticalScholar:
		return v
	case "video":
		return VerticalVideos
	case "nws", "isch", "vid", "shop":
		for vert, tbm := range verticalTBM {
			if tbm == string(v) {
				return vert
			}
		}
	}
	return VerticalWeb
}

// NormalizeResultCount applies the bounds policy for num: multiples of 10
// within [10,100] are kept, anything else becomes DefaultResultCount.
func NormalizeResultCount(n int) int {
	if n < 10 || n > 100 || n%10 != 0 {
		return DefaultResultCount
	}
	return n
}

// Build returns the query URL. The query is always sent as q; every other
// parameter is added only when present and valid. The output is
// deterministic because url.Values encodes keys in sorted order.
func (b *Builder) Build(query string, p Params) string {
	vertical := ParseVertical(p.Vertical)

	base := b.baseURL
	if vertical == VerticalScholar {
		base = b.scholarURL
	}

	q := url.Values{}
	q.Set("q", query)

	if tbm, ok := verticalTBM[vertical]; ok {
		q.Set("tbm", tbm)
	}
	if c := strings.TrimSpace(p.CountryCode); c != "" {
		q.Set("gl", strings.ToLower(c))
	}
	if l := strings.TrimSpace(p.LanguageCode); l != "" {
		q.Set("hl", l)
	}
	if p.ResultCount != nil {
		q.Set("num", strconv.Itoa(NormalizeResultCount(*p.ResultCount)))
	}
	if p.StartOffset != nil && *p.StartOffset >= 0 {
		q.Set("start", strconv.Itoa(*p.StartOffset))
	}
	if tr := strings.TrimSpace(p.TimeRange); tr != "" {
		if tbs, ok := timeRanges[strings.ToLower(tr)]; ok {
			tr = tbs
		}
		q.Set("tbs", tr)
	}
	if udm := strings.TrimSpace(p.VerticalBoost); udm != "" {
		q.Set("udm", udm)
	}

	return base + "?" + q.Encode()
}
