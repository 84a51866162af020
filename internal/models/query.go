package models

import (
	"net/url"
	"strconv"
)

// Default page sizes applied by the gateway when the caller omits limit.
const (
	DefaultTextLimit   = 30
	DefaultPersonLimit = 10
)

// TextFilter selects a page of Texts.
type TextFilter struct {
	Limit    int
	Offset   int
	Language string
	Author   string
}

// Values encodes the filter as a query string. limit and offset are always present.
func (f TextFilter) Values() url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(f.Limit))
	v.Set("offset", strconv.Itoa(f.Offset))
	if f.Language != "" {
		v.Set("language", f.Language)
	}
	if f.Author != "" {
		v.Set("author", f.Author)
	}
	return v
}

// PersonFilter selects a page of Persons.
type PersonFilter struct {
	Limit       int
	Offset      int
	Nationality string
	Occupation  string
}

// Values encodes the filter as a query string. Zero limit and offset are omitted.
func (f PersonFilter) Values() url.Values {
	v := url.Values{}
	if f.Nationality != "" {
		v.Set("nationality", f.Nationality)
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		v.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.Occupation != "" {
		v.Set("occupation", f.Occupation)
	}
	return v
}
