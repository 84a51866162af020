package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/openpecha/catalog/internal/models"
)

// TextQuery selects a page of texts. Zero fields are not sent, so the
// gateway defaults apply.
type TextQuery struct {
	Limit    int
	Offset   int
	Language string
	Author   string
}

func (q TextQuery) values() url.Values {
	v := url.Values{}
	setInt(v, "limit", q.Limit)
	setInt(v, "offset", q.Offset)
	setStr(v, "language", q.Language)
	setStr(v, "author", q.Author)
	return v
}

// PersonQuery selects a page of persons.
type PersonQuery struct {
	Limit       int
	Offset      int
	Nationality string
	Occupation  string
}

func (q PersonQuery) values() url.Values {
	v := url.Values{}
	setInt(v, "limit", q.Limit)
	setInt(v, "offset", q.Offset)
	setStr(v, "nationality", q.Nationality)
	setStr(v, "occupation", q.Occupation)
	return v
}

// SearchHit is one result of Search.
type SearchHit struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Texts fetches a page of texts.
func (c *Client) Texts(ctx context.Context, q TextQuery) (*models.Page[models.Text], error) {
	v := q.values()
	data, err := c.query(ctx, "texts?"+v.Encode(), v, "text")
	if err != nil {
		return nil, err
	}
	return decodePage[models.Text](data)
}

// Text fetches one text.
func (c *Client) Text(ctx context.Context, id string) (*models.Text, error) {
	data, err := c.query(ctx, "text/"+id, nil, "text", id)
	if err != nil {
		return nil, err
	}
	return decode[models.Text](data)
}

// TextInstances fetches the instances of a text.
func (c *Client) TextInstances(ctx context.Context, textID string) ([]models.Instance, error) {
	data, err := c.query(ctx, "textInstance/"+textID, nil, "text", textID, "instances")
	if err != nil {
		return nil, err
	}
	page, err := decodePage[models.Instance](data)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Instance fetches one instance.
func (c *Client) Instance(ctx context.Context, id string) (*models.Instance, error) {
	data, err := c.query(ctx, "instance/"+id, nil, "instances", id)
	if err != nil {
		return nil, err
	}
	return decode[models.Instance](data)
}

// Persons fetches a page of persons.
func (c *Client) Persons(ctx context.Context, q PersonQuery) (*models.Page[models.Person], error) {
	v := q.values()
	data, err := c.query(ctx, "persons?"+v.Encode(), v, "person")
	if err != nil {
		return nil, err
	}
	return decodePage[models.Person](data)
}

// Person fetches one person.
func (c *Client) Person(ctx context.Context, id string) (*models.Person, error) {
	data, err := c.query(ctx, "person/"+id, nil, "person", id)
	if err != nil {
		return nil, err
	}
	return decode[models.Person](data)
}

// CreateText submits payload to POST /text and invalidates cached text lists.
func (c *Client) CreateText(ctx context.Context, payload any) (*models.Text, error) {
	data, err := c.mutate(ctx, payload, "texts", "text")
	if err != nil {
		return nil, err
	}
	return decode[models.Text](data)
}

// CreateTextInstance submits payload as a new instance of textID and
// invalidates that text's cached instance list.
func (c *Client) CreateTextInstance(ctx context.Context, textID string, payload any) (*models.Instance, error) {
	data, err := c.mutate(ctx, payload, "textInstance/"+textID, "text", textID, "instances")
	if err != nil {
		return nil, err
	}
	return decode[models.Instance](data)
}

// CreatePerson submits payload to POST /person and invalidates cached person lists.
func (c *Client) CreatePerson(ctx context.Context, payload any) (*models.Person, error) {
	data, err := c.mutate(ctx, payload, "persons", "person")
	if err != nil {
		return nil, err
	}
	return decode[models.Person](data)
}

// Search queries the gateway's local index. Results are not cached.
func (c *Client) Search(ctx context.Context, query, kind string) ([]SearchHit, error) {
	v := url.Values{"q": {query}}
	setStr(v, "kind", kind)
	data, err := c.getWithRetry(ctx, v, "search")
	if err != nil {
		return nil, err
	}
	var out struct {
		Results []SearchHit `json:"results"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("client: decode search: %w", err)
	}
	return out.Results, nil
}

// decodePage accepts either the {results,count,limit,offset} envelope or a
// bare array.
func decodePage[T any](data []byte) (*models.Page[T], error) {
	page := &models.Page[T]{}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &page.Results); err != nil {
			return nil, fmt.Errorf("client: decode list: %w", err)
		}
		page.Count = len(page.Results)
		return page, nil
	}
	if err := json.Unmarshal(data, page); err != nil {
		return nil, fmt.Errorf("client: decode page: %w", err)
	}
	return page, nil
}

func setInt(v url.Values, key string, n int) {
	if n > 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

func setStr(v url.Values, key, s string) {
	if s != "" {
		v.Set(key, s)
	}
}
