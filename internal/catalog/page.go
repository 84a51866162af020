package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/openpecha/catalog/internal/models"
)

// toPage wraps an upstream list response into a Page. The API answers with
// either a bare array or an object carrying results and optionally count.
func toPage(data []byte, limit, offset int) (*models.Page[json.RawMessage], error) {
	page := &models.Page[json.RawMessage]{Limit: limit, Offset: offset}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &page.Results); err != nil {
			return nil, fmt.Errorf("catalog: decode list: %w", err)
		}
		page.Count = len(page.Results)
		return page, nil
	}

	var obj struct {
		Results []json.RawMessage `json:"results"`
		Count   *int              `json:"count"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("catalog: decode list: %w", err)
	}
	page.Results = obj.Results
	page.Count = len(obj.Results)
	if obj.Count != nil {
		page.Count = *obj.Count
	}
	if page.Results == nil {
		page.Results = []json.RawMessage{}
	}
	return page, nil
}
