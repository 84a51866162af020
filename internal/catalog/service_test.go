package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpecha/catalog/internal/apperr"
	"github.com/openpecha/catalog/internal/cache"
	"github.com/openpecha/catalog/internal/index"
	"github.com/openpecha/catalog/internal/models"
	"github.com/openpecha/catalog/internal/testutil"
	"github.com/openpecha/catalog/internal/upstream"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) TextCreated(id string) { r.add("text:" + id) }
func (r *recorder) InstanceCreated(textID, id string) {
	r.add("instance:" + textID + "/" + id)
}
func (r *recorder) PersonCreated(id string) { r.add("person:" + id) }

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newService(t *testing.T, opts ...Option) (*Service, *testutil.Upstream) {
	t.Helper()
	fake := testutil.NewUpstream(t)
	api, err := upstream.New(fake.URL())
	require.NoError(t, err)
	return NewService(api, opts...), fake
}

func TestCreateTextValidationNeverCallsUpstream(t *testing.T) {
	svc, fake := newService(t)
	ctx := context.Background()

	cases := []struct {
		body    string
		message string
	}{
		{`{"title":{"en":"X"},"language":"en"}`, "Missing required fields"},
		{`{"type":"root","language":"en"}`, "Missing required fields"},
		{`{"type":"root","title":{},"language":"en"}`, "Missing required fields"},
		{`{"type":"root","title":{"en":"X"}}`, "Missing required fields"},
		{`{"type":"sutra","title":{"en":"X"},"language":"en"}`, "Invalid text type"},
		{`{"type":"root","title":{"en":"X"},"language":"en","contributions":[{"role":"author"}]}`, "Invalid contribution"},
		{`{"type":"root","title":{"en":"X"},"language":"en","contributions":[{"ai_id":"gpt","role":"author"}]}`, "Invalid contribution"},
		{`{"type":"root","title":{"en":"X"},"language":"en","contributions":[{"person_id":"P1","role":"patron"}]}`, "Invalid contribution role"},
		{`not json`, "Invalid JSON body"},
	}
	for _, tc := range cases {
		_, err := svc.CreateText(ctx, []byte(tc.body))
		v, ok := apperr.AsValidation(err)
		require.True(t, ok, "body %s: err = %v", tc.body, err)
		assert.Equal(t, tc.message, v.Message, "body %s", tc.body)
	}
	assert.Equal(t, 0, fake.RequestCount())
}

func TestCreateTextTitleNeedsOnlyPresence(t *testing.T) {
	svc, fake := newService(t)
	for _, title := range []string{`{"sa":"x"}`, `{"en":""}`} {
		body := `{"type":"root","title":` + title + `,"language":"sa"}`
		_, err := svc.CreateText(context.Background(), []byte(body))
		require.NoError(t, err, "title %s", title)
	}
	assert.Equal(t, 2, fake.RequestCount())
}

func TestInvalidRoleListsScholar(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateText(context.Background(),
		[]byte(`{"type":"root","title":{"en":"X"},"language":"en","contributions":[{"person_id":"P1","role":"x"}]}`))
	v, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "role must be one of: author, translator, reviser, editor, scholar", v.Details)
}

func TestCreateTextForwardsAndNotifies(t *testing.T) {
	rec := &recorder{}
	db := testutil.TestDB(t)
	svc, fake := newService(t, WithNotifier(rec), WithIndex(db))

	body := []byte(`{"type":"root","title":{"en":"Heart Sutra"},"language":"en","contributions":[{"person_id":"P1","role":"scholar"}]}`)
	data, err := svc.CreateText(context.Background(), body)
	require.NoError(t, err)

	assert.Equal(t, string(body), string(fake.LastRequest().Body))
	id := idOf(data)
	require.NotEmpty(t, id)
	assert.Equal(t, []string{"text:" + id}, rec.events)

	results, err := svc.Search(context.Background(), "Heart", index.KindText, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)

	refs, err := svc.Referrers(context.Background(), "P1")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "scholar", refs[0].Type)
}

func TestCreatePersonNormalisesBody(t *testing.T) {
	rec := &recorder{}
	svc, fake := newService(t, WithNotifier(rec))

	_, err := svc.CreatePerson(context.Background(), []byte(`{"name":{"bo":"ཀུན་བཟང"}}`))
	require.NoError(t, err)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(fake.LastRequest().Body, &sent))
	assert.Equal(t, map[string]any{"bo": "ཀུན་བཟང"}, sent["name"])
	assert.Equal(t, []any{}, sent["alt_names"])
	assert.Equal(t, "", sent["bdrc"])
	assert.Equal(t, "", sent["wiki"])
	assert.Len(t, rec.events, 1)
}

func TestCreatePersonRequiresEnOrBo(t *testing.T) {
	svc, fake := newService(t)
	for _, body := range []string{`{}`, `{"name":{"sa":"x"}}`, `{"name":{"en":"","bo":""}}`} {
		_, err := svc.CreatePerson(context.Background(), []byte(body))
		v, ok := apperr.AsValidation(err)
		require.True(t, ok, body)
		assert.Equal(t, "Please provide a name in English or Tibetan", v.Details)
	}
	assert.Equal(t, 0, fake.RequestCount())
}

func TestCreateInstanceRequiresContent(t *testing.T) {
	svc, fake := newService(t)
	textID := fake.SeedText(map[string]any{"type": "root"})

	_, err := svc.CreateTextInstance(context.Background(), textID, []byte(`{"metadata":{"type":"critical"}}`))
	v, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "content is required", v.Details)
	assert.Equal(t, 0, fake.RequestCount())

	data, err := svc.CreateTextInstance(context.Background(), textID, []byte(`{"content":"abc"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, idOf(data))
}

func TestUpstreamErrorsPassThrough(t *testing.T) {
	svc, fake := newService(t)
	fake.FailNext(1, http.StatusUnprocessableEntity, `{"detail":"bad language"}`)

	_, err := svc.CreateText(context.Background(), []byte(`{"type":"root","title":{"en":"X"},"language":"xx"}`))
	u, ok := apperr.AsUpstream(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, u.Status)

	_, err = svc.GetText(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestListTextsWrapsBareArray(t *testing.T) {
	svc, fake := newService(t)
	for i := 0; i < 5; i++ {
		fake.SeedText(map[string]any{"type": "root", "language": "bo"})
	}

	page, err := svc.ListTexts(context.Background(), models.TextFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 2, page.Offset)
	assert.Equal(t, "limit=2&offset=2", fake.LastRequest().Query)
}

func TestToPageObjectWithCount(t *testing.T) {
	page, err := toPage([]byte(`{"results":[{"id":"a"}],"count":41}`), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 41, page.Count)
	assert.Len(t, page.Results, 1)

	page, err = toPage([]byte(`{}`), 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Results)

	_, err = toPage([]byte(`"nope"`), 10, 0)
	assert.Error(t, err)
}

func TestCachedReadsAndInvalidation(t *testing.T) {
	mem := cache.NewMemory()
	svc, fake := newService(t, WithCache(mem, time.Minute))
	ctx := context.Background()
	fake.SeedPerson(map[string]any{"name": map[string]any{"en": "Atisha"}})

	f := models.PersonFilter{Limit: 10}
	_, err := svc.ListPersons(ctx, f)
	require.NoError(t, err)
	_, err = svc.ListPersons(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.RequestCount(), "second read should be served from cache")

	_, err = svc.CreatePerson(ctx, []byte(`{"name":{"en":"Marpa"}}`))
	require.NoError(t, err)

	page, err := svc.ListPersons(ctx, f)
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
	assert.Equal(t, 3, fake.RequestCount())
}

func TestSearchDisabledWithoutIndex(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Search(context.Background(), "x", "", 10)
	assert.ErrorIs(t, err, ErrSearchDisabled)
}

func TestWarmIndex(t *testing.T) {
	db := testutil.TestDB(t)
	svc, fake := newService(t, WithIndex(db))
	for i := 0; i < 5; i++ {
		fake.SeedText(map[string]any{"type": "root", "title": map[string]any{"en": "Text"}})
	}
	fake.SeedPerson(map[string]any{"name": map[string]any{"en": "Milarepa"}})

	require.NoError(t, svc.WarmIndex(context.Background(), 2, 10))

	n, err := db.Count(index.KindText)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = db.Count(index.KindPerson)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
