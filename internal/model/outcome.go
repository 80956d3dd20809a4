package model

import "encoding/json"

// ContentType is the processing type the classifier assigns to a payload.
type ContentType string

const (
	ContentHTML        ContentType = "html"
	ContentJSON        ContentType = "json"
	ContentXML         ContentType = "xml"
	ContentJavaScript  ContentType = "javascript"
	ContentCSS         ContentType = "css"
	ContentText        ContentType = "text"
	ContentUnsupported ContentType = "unsupported"
)

// SupportedContentTypes lists every type a fetch can return, in display order.
var SupportedContentTypes = []ContentType{
	ContentHTML, ContentJSON, ContentXML, ContentJavaScript, ContentCSS, ContentText,
}

// ExtractionKind selects the prompt and schema used for structured extraction.
type ExtractionKind string

const (
	KindSearchResults ExtractionKind = "search_results"
	KindPageContent   ExtractionKind = "page_content"
)

// FetchOutcome is the result of one proxy call. Exactly one of Payload or
// Error is meaningful, as indicated by Success.
type FetchOutcome struct {
	Item              string
	Index             int
	Success           bool
	Payload           []byte
	ContentTypeHeader string
	Classified        ContentType
	StatusCode        int // upstream status; 0 when the transport failed
	Error             string
}

// ExtractionOutcome is the result of one structured-extraction call.
type ExtractionOutcome struct {
	Item     string
	Index    int
	Success  bool
	Data     json.RawMessage
	Provider string
	Error    string
}

// ExtractionHint steers the extraction prompt.
type ExtractionHint struct {
	Query   string // original search query
	URL     string // page being extracted
	Context string // caller's context question
}
