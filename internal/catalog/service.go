// Package catalog coordinates the upstream OpenPecha API with the local
// response cache, the search index and change notifications.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/openpecha/catalog/internal/cache"
	"github.com/openpecha/catalog/internal/index"
	"github.com/openpecha/catalog/internal/metrics"
	"github.com/openpecha/catalog/internal/models"
)

// Upstream is the OpenPecha API as seen by the service.
type Upstream interface {
	ListTexts(ctx context.Context, f models.TextFilter) ([]byte, error)
	GetText(ctx context.Context, id string) ([]byte, error)
	CreateText(ctx context.Context, body []byte) ([]byte, error)
	ListTextInstances(ctx context.Context, textID string) ([]byte, error)
	CreateTextInstance(ctx context.Context, textID string, body []byte) ([]byte, error)
	GetInstance(ctx context.Context, id string) ([]byte, error)
	ListPersons(ctx context.Context, f models.PersonFilter) ([]byte, error)
	GetPerson(ctx context.Context, id string) ([]byte, error)
	CreatePerson(ctx context.Context, body []byte) ([]byte, error)
	Ping(ctx context.Context) error
}

// Notifier is told about every resource created through the service.
type Notifier interface {
	TextCreated(id string)
	InstanceCreated(textID, id string)
	PersonCreated(id string)
}

// ErrSearchDisabled is returned by Search when no index is configured.
var ErrSearchDisabled = errors.New("catalog: search index disabled")

// Service is the gateway's domain layer.
type Service struct {
	api      Upstream
	cache    cache.Store
	cacheTTL time.Duration
	index    index.CatalogIndex
	notify   Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches successful upstream reads in store for ttl.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = store
		s.cacheTTL = ttl
	}
}

// WithIndex records every text and person passing through in idx.
func WithIndex(idx index.CatalogIndex) Option {
	return func(s *Service) { s.index = idx }
}

// WithNotifier announces creations to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithMetrics records cache and validation counters in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger used for best-effort side effects.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service backed by api.
func NewService(api Upstream, opts ...Option) *Service {
	s := &Service{
		api:    api,
		cache:  cache.Nop{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTexts returns one page of texts. Pagination is always delegated upstream.
func (s *Service) ListTexts(ctx context.Context, f models.TextFilter) (*models.Page[json.RawMessage], error) {
	data, err := s.cached(ctx, "texts?"+f.Values().Encode(), func() ([]byte, error) {
		return s.api.ListTexts(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	page, err := toPage(data, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	for _, raw := range page.Results {
		s.indexText(raw)
	}
	return page, nil
}

// GetText returns the upstream text object unchanged.
func (s *Service) GetText(ctx context.Context, id string) (json.RawMessage, error) {
	data, err := s.cached(ctx, "text/"+id, func() ([]byte, error) {
		return s.api.GetText(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.indexText(data)
	return data, nil
}

// CreateText validates body and forwards it byte for byte.
func (s *Service) CreateText(ctx context.Context, body []byte) (json.RawMessage, error) {
	if _, err := decodeRequest[CreateTextRequest](body); err != nil {
		s.metrics.ObserveValidationFailure("texts")
		return nil, err
	}
	data, err := s.api.CreateText(ctx, body)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, "texts?")
	if id := s.indexText(data); id != "" && s.notify != nil {
		s.notify.TextCreated(id)
	}
	return data, nil
}

// ListTextInstances returns the upstream instance list of a text unchanged.
func (s *Service) ListTextInstances(ctx context.Context, textID string) (json.RawMessage, error) {
	return s.cached(ctx, instancesKey(textID), func() ([]byte, error) {
		return s.api.ListTextInstances(ctx, textID)
	})
}

// CreateTextInstance validates body and forwards it to the text's instance collection.
func (s *Service) CreateTextInstance(ctx context.Context, textID string, body []byte) (json.RawMessage, error) {
	if _, err := decodeRequest[CreateInstanceRequest](body); err != nil {
		s.metrics.ObserveValidationFailure("instances")
		return nil, err
	}
	data, err := s.api.CreateTextInstance(ctx, textID, body)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, instancesKey(textID))
	if s.notify != nil {
		s.notify.InstanceCreated(textID, idOf(data))
	}
	return data, nil
}

// GetInstance returns the upstream instance object unchanged.
func (s *Service) GetInstance(ctx context.Context, id string) (json.RawMessage, error) {
	return s.cached(ctx, "instance/"+id, func() ([]byte, error) {
		return s.api.GetInstance(ctx, id)
	})
}

// ListPersons returns one page of persons.
func (s *Service) ListPersons(ctx context.Context, f models.PersonFilter) (*models.Page[json.RawMessage], error) {
	data, err := s.cached(ctx, "persons?"+f.Values().Encode(), func() ([]byte, error) {
		return s.api.ListPersons(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	page, err := toPage(data, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	for _, raw := range page.Results {
		s.indexPerson(raw)
	}
	return page, nil
}

// GetPerson returns the upstream person object unchanged.
func (s *Service) GetPerson(ctx context.Context, id string) (json.RawMessage, error) {
	data, err := s.cached(ctx, "person/"+id, func() ([]byte, error) {
		return s.api.GetPerson(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.indexPerson(data)
	return data, nil
}

// CreatePerson validates body and forwards the normalised person.
func (s *Service) CreatePerson(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := decodeRequest[CreatePersonRequest](body)
	if err != nil {
		s.metrics.ObserveValidationFailure("persons")
		return nil, err
	}
	payload, err := req.Payload()
	if err != nil {
		return nil, err
	}
	data, err := s.api.CreatePerson(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, "persons?")
	if id := s.indexPerson(data); id != "" && s.notify != nil {
		s.notify.PersonCreated(id)
	}
	return data, nil
}

// Search looks up texts and persons previously seen by the service.
func (s *Service) Search(_ context.Context, query string, kind index.Kind, limit int) ([]index.SearchResult, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	return s.index.Search(query, kind, limit)
}

// Referrers returns the texts pointing at id as parent or contributor.
func (s *Service) Referrers(_ context.Context, id string) ([]index.Relation, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	return s.index.Referrers(id)
}

// Ready reports whether the upstream API answers.
func (s *Service) Ready(ctx context.Context) error {
	return s.api.Ping(ctx)
}

func (s *Service) cached(ctx context.Context, key string, fetch func() ([]byte, error)) ([]byte, error) {
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		s.metrics.ObserveCache(true)
		return data, nil
	} else if err != nil {
		s.logger.Warn("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	s.metrics.ObserveCache(false)

	data, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Warn("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return data, nil
}

func (s *Service) invalidate(ctx context.Context, prefix string) {
	if err := s.cache.InvalidatePrefix(ctx, prefix); err != nil {
		s.logger.Warn("cache invalidate failed", slog.String("prefix", prefix), slog.String("error", err.Error()))
	}
}

// indexText decodes raw as a text, records it and returns its id.
func (s *Service) indexText(raw []byte) string {
	var t models.Text
	if err := json.Unmarshal(raw, &t); err != nil || t.ID == "" {
		return ""
	}
	if s.index != nil {
		if err := s.index.UpsertText(t); err != nil {
			s.logger.Warn("index text failed", slog.String("id", t.ID), slog.String("error", err.Error()))
		}
	}
	return t.ID
}

// indexPerson decodes raw as a person, records it and returns its id.
func (s *Service) indexPerson(raw []byte) string {
	var p models.Person
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return ""
	}
	if s.index != nil {
		if err := s.index.UpsertPerson(p); err != nil {
			s.logger.Warn("index person failed", slog.String("id", p.ID), slog.String("error", err.Error()))
		}
	}
	return p.ID
}

func instancesKey(textID string) string { return "text/" + textID + "/instances" }

func idOf(raw []byte) string {
	var v struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &v)
	return v.ID
}
