package model

import "encoding/json"

// Envelope is the uniform response returned to the caller.
//
// When the caller sent a scalar query/url, Result holds the single item.
// When the caller sent a list, Results holds one entry per input item, in
// input order, along with the totals and the truncation flag.
type Envelope struct {
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	Action    Action   `json:"action,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`

	Result  *ItemResult  `json:"result,omitempty"`
	Results []ItemResult `json:"results,omitempty"`

	TotalQueries int   `json:"total_queries,omitempty"`
	TotalURLs    int   `json:"total_urls,omitempty"`
	Truncated    *bool `json:"truncated,omitempty"`
}

// Failed builds a call-level failure envelope.
func Failed(action Action, msg string) Envelope {
	return Envelope{Success: false, Action: action, Error: msg}
}

// ItemResult is the per-item entry of an envelope. Failed items carry Error
// instead of content.
type ItemResult struct {
	Index   int    `json:"index"`
	Query   string `json:"query,omitempty"`
	URL     string `json:"url,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	ContentType ContentType `json:"content_type,omitempty"`
	Extracted   bool        `json:"extracted"`
	Provider    string      `json:"provider,omitempty"`

	Hits []SearchHit `json:"hits,omitempty"` // search: extracted result entries
	Page *PageData   `json:"page,omitempty"` // fetch: extracted page content

	// Title/Content carry pass-through payloads (json, xml, text, ...) and the
	// fallback text when structured extraction is unavailable or failed.
	Title           string `json:"title,omitempty"`
	Content         string `json:"content,omitempty"`
	ExtractionError string `json:"extraction_error,omitempty"`

	Image *ImageData `json:"image,omitempty"`
}

// SearchHit is one organic result extracted from a search-results page.
type SearchHit struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

// SearchExtraction is the object the search-results schema describes.
type SearchExtraction struct {
	Results []SearchHit `json:"results"`
}

// PageData is the object the page-content schema describes.
type PageData struct {
	Title           *string  `json:"title"`
	Content         string   `json:"content"`
	FollowUpQueries []string `json:"follow_up_queries"`
}

// ImageData describes a downloaded image.
type ImageData struct {
	MimeType   string `json:"mime_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Bytes      int    `json:"bytes"`
	Downscaled bool   `json:"downscaled"`
	Data       string `json:"data"` // base64
}

// DecodeSearch parses extraction output produced with the search-results schema.
func DecodeSearch(raw json.RawMessage) (*SearchExtraction, error) {
	var out SearchExtraction
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodePage parses extraction output produced with the page-content schema.
func DecodePage(raw json.RawMessage) (*PageData, error) {
	var out PageData
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
