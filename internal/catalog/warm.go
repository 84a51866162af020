package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openpecha/catalog/internal/models"
)

// WarmIndex pages through the upstream texts and persons and records them
// in the index, stopping after maxPages pages per collection or at the first
// short page.
func (s *Service) WarmIndex(ctx context.Context, pageSize, maxPages int) error {
	if s.index == nil {
		return nil
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	texts, persons := 0, 0
	for page := 0; page < maxPages; page++ {
		data, err := s.api.ListTexts(ctx, models.TextFilter{Limit: pageSize, Offset: page * pageSize})
		if err != nil {
			return fmt.Errorf("catalog: warm texts: %w", err)
		}
		p, err := toPage(data, pageSize, page*pageSize)
		if err != nil {
			return err
		}
		for _, raw := range p.Results {
			if s.indexText(raw) != "" {
				texts++
			}
		}
		if len(p.Results) < pageSize {
			break
		}
	}
	for page := 0; page < maxPages; page++ {
		data, err := s.api.ListPersons(ctx, models.PersonFilter{Limit: pageSize, Offset: page * pageSize})
		if err != nil {
			return fmt.Errorf("catalog: warm persons: %w", err)
		}
		p, err := toPage(data, pageSize, page*pageSize)
		if err != nil {
			return err
		}
		for _, raw := range p.Results {
			if s.indexPerson(raw) != "" {
				persons++
			}
		}
		if len(p.Results) < pageSize {
			break
		}
	}

	s.logger.Info("index warmed", slog.Int("texts", texts), slog.Int("persons", persons))
	return nil
}
