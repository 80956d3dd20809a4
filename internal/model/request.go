// Package model defines the request, outcome and response types shared by the
// acquisition pipeline. Struct tags (`json:"..."`, `db:"..."`) tell the
// serialization libraries how to map fields.
package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// Action selects what the caller wants done.
// Go doesn't have enums, so we use typed string constants.
type Action string

const (
	ActionSearch        Action = "search"
	ActionFetch         Action = "fetch"
	ActionDownloadImage Action = "download_image"
)

// Valid reports whether a is one of the supported actions.
func (a Action) Valid() bool {
	switch a {
	case ActionSearch, ActionFetch, ActionDownloadImage:
		return true
	default:
		return false
	}
}

// StringList holds a field the caller may send either as a single string or
// as a list of strings. Scalar remembers which form was used so the response
// can mirror it.
type StringList struct {
	Items  []string
	Scalar bool
}

// One wraps a single value.
func One(s string) StringList {
	return StringList{Items: []string{s}, Scalar: true}
}

// Many wraps a list of values.
func Many(items ...string) StringList {
	return StringList{Items: items}
}

// IsZero reports whether nothing was provided.
func (l StringList) IsZero() bool {
	return len(l.Items) == 0
}

// UnmarshalJSON accepts "x", ["x", "y"] or null.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*l = StringList{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "decoding string value")
		}
		*l = One(s)
		return nil
	case data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return eris.Wrap(err, "decoding string list")
		}
		*l = Many(items...)
		return nil
	default:
		return eris.Errorf("expected a string or a list of strings, got %s", string(data))
	}
}

// MarshalJSON writes the same shape that was read.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l.Scalar && len(l.Items) == 1 {
		return json.Marshal(l.Items[0])
	}
	if l.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Items)
}

// Truncate keeps at most max items and reports whether anything was dropped.
func (l StringList) Truncate(max int) (StringList, bool) {
	if max <= 0 || len(l.Items) <= max {
		return l, false
	}
	kept := make([]string, max)
	copy(kept, l.Items[:max])
	return StringList{Items: kept, Scalar: l.Scalar}, true
}

// SearchRequest carries the parameters of a search action.
type SearchRequest struct {
	Query     StringList `json:"query"`
	Country   string     `json:"country,omitempty"`
	Language  string     `json:"language,omitempty"`
	Num       *int       `json:"num,omitempty"`
	Start     *int       `json:"start,omitempty"`
	Type      string     `json:"search_type,omitempty"` // web, news, images, videos, shopping, scholar
	TimeRange string     `json:"time_range,omitempty"`
	UDM       string     `json:"udm,omitempty"`
	Context   string     `json:"context,omitempty"` // only steers extraction relevance
}

// FetchRequest carries the parameters of a fetch action.
type FetchRequest struct {
	URL      StringList `json:"url"`
	Context  string     `json:"context,omitempty"`
	Markdown bool       `json:"markdown,omitempty"` // ask the unblocker for data_format=markdown
}

// ImageRequest carries the parameters of a download_image action.
type ImageRequest struct {
	URL string `json:"url"`
}

// Request is a tagged union: Action says which one of the variant pointers is set.
// On the wire it is a flat object, e.g. {"action":"fetch","url":["https://a"]}.
type Request struct {
	Action Action
	Search *SearchRequest
	Fetch  *FetchRequest
	Image  *ImageRequest
}

// UnmarshalJSON decodes the flat wire form into the matching variant.
// An unknown action is not a decode error: validation reports it later so the
// caller still gets an envelope.
func (r *Request) UnmarshalJSON(data []byte) error {
	var head struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return eris.Wrap(err, "decoding request")
	}

	*r = Request{Action: Action(strings.TrimSpace(string(head.Action)))}

	switch r.Action {
	case ActionSearch:
		r.Search = &SearchRequest{}
		return decodeVariant(data, r.Search)
	case ActionFetch:
		r.Fetch = &FetchRequest{}
		return decodeVariant(data, r.Fetch)
	case ActionDownloadImage:
		r.Image = &ImageRequest{}
		return decodeVariant(data, r.Image)
	}
	return nil
}

// MarshalJSON writes the flat wire form.
func (r Request) MarshalJSON() ([]byte, error) {
	var variant any
	switch {
	case r.Search != nil:
		variant = r.Search
	case r.Fetch != nil:
		variant = r.Fetch
	case r.Image != nil:
		variant = r.Image
	default:
		return json.Marshal(map[string]Action{"action": r.Action})
	}

	raw, err := json.Marshal(variant)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	action, _ := json.Marshal(r.Action)
	fields["action"] = action
	return json.Marshal(fields)
}

func decodeVariant(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrap(err, "decoding request parameters")
	}
	return nil
}
