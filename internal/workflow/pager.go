// Package workflow holds the browser-independent logic of the catalog UI:
// list paging, creation forms, the text-then-instance create flow, picker
// search and breadcrumbs.
package workflow

import "github.com/openpecha/catalog/internal/client"

// DefaultPageSize is the page size list views start with.
const DefaultPageSize = 10

// Pager tracks limit/offset paging of a list view.
type Pager struct {
	Limit  int
	Offset int
}

// NewPager returns a pager on the first page.
func NewPager(limit int) Pager {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return Pager{Limit: limit}
}

// Next advances one page.
func (p *Pager) Next() { p.Offset += p.Limit }

// Prev goes back one page, stopping at the first.
func (p *Pager) Prev() { p.Offset = max(0, p.Offset-p.Limit) }

// HasPrev reports whether a previous page exists.
func (p *Pager) HasPrev() bool { return p.Offset > 0 }

// HasNext reports whether another page may follow a page of n results.
// A short page is the last one.
func (p *Pager) HasNext(n int) bool { return n >= p.Limit }

// SetLimit changes the page size and returns to the first page.
func (p *Pager) SetLimit(limit int) {
	if limit > 0 {
		p.Limit = limit
	}
	p.Offset = 0
}

// Range returns the 1-based positions of the first and last of n results
// on the current page, as shown in "Showing a to b".
func (p *Pager) Range(n int) (from, to int) {
	if n == 0 {
		return 0, 0
	}
	return p.Offset + 1, p.Offset + n
}

// TextFilters is the state of the text list controls.
type TextFilters struct {
	Pager
	Language string
	Author   string
}

// NewTextFilters returns unfiltered text list state.
func NewTextFilters() TextFilters {
	return TextFilters{Pager: NewPager(DefaultPageSize)}
}

// SetLanguage filters by language and returns to the first page.
func (f *TextFilters) SetLanguage(lang string) {
	f.Language = lang
	f.Offset = 0
}

// SetAuthor filters by author and returns to the first page.
func (f *TextFilters) SetAuthor(author string) {
	f.Author = author
	f.Offset = 0
}

// Query converts the state into a client query.
func (f TextFilters) Query() client.TextQuery {
	return client.TextQuery{Limit: f.Limit, Offset: f.Offset, Language: f.Language, Author: f.Author}
}

// PersonFilters is the state of the person list controls.
type PersonFilters struct {
	Pager
	Nationality string
	Occupation  string
}

// NewPersonFilters returns unfiltered person list state.
func NewPersonFilters() PersonFilters {
	return PersonFilters{Pager: NewPager(DefaultPageSize)}
}

// SetNationality filters by nationality and returns to the first page.
func (f *PersonFilters) SetNationality(v string) {
	f.Nationality = v
	f.Offset = 0
}

// SetOccupation filters by occupation and returns to the first page.
func (f *PersonFilters) SetOccupation(v string) {
	f.Occupation = v
	f.Offset = 0
}

// Query converts the state into a client query.
func (f PersonFilters) Query() client.PersonQuery {
	return client.PersonQuery{Limit: f.Limit, Offset: f.Offset, Nationality: f.Nationality, Occupation: f.Occupation}
}
