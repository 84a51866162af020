package models

// Page is the list envelope returned by the gateway for paginated collections.
type Page[T any] struct {
	Results []T `json:"results"`
	Count   int `json:"count"`
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
}
