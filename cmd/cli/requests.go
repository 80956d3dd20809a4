package main

import "github.com/fleveque/webacquire/internal/model"

// listOf keeps the scalar/list distinction: one argument is a scalar
// request and gets a single result back.
func listOf(args []string) model.StringList {
	if len(args) == 1 {
		return model.One(args[0])
	}
	return model.Many(args...)
}

type searchOptions struct {
	country    string
	language   string
	num        int
	numSet     bool
	start      int
	startSet   bool
	searchType string
	timeRange  string
	udm        string
	context    string
}

func (o searchOptions) request(queries []string) model.Request {
	sr := &model.SearchRequest{
		Query:     listOf(queries),
		Country:   o.country,
		Language:  o.language,
		Type:      o.searchType,
		TimeRange: o.timeRange,
		UDM:       o.udm,
		Context:   o.context,
	}
	// Unset flags stay nil so the URL builder omits the parameter.
	if o.numSet {
		n := o.num
		sr.Num = &n
	}
	if o.startSet {
		s := o.start
		sr.Start = &s
	}
	return model.Request{Action: model.ActionSearch, Search: sr}
}

type fetchOptions struct {
	context  string
	markdown bool
}

func (o fetchOptions) request(urls []string) model.Request {
	return model.Request{
		Action: model.ActionFetch,
		Fetch: &model.FetchRequest{
			URL:      listOf(urls),
			Context:  o.context,
			Markdown: o.markdown,
		},
	}
}
