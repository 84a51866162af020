package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/go-cmp/cmp"

	"github.com/openpecha/catalog/internal/catalog"
	"github.com/openpecha/catalog/internal/metrics"
	"github.com/openpecha/catalog/internal/testutil"
	"github.com/openpecha/catalog/internal/upstream"
)

// testEnv wires a fake OpenPecha API, the catalog service and the full
// gateway handler. A non-empty token enables bearer auth.
func testEnv(t *testing.T, token string) (*testutil.Upstream, http.Handler) {
	t.Helper()
	fake := testutil.NewUpstream(t)
	m := metrics.New()
	api, err := upstream.New(fake.URL(), upstream.WithMetrics(m))
	if err != nil {
		t.Fatalf("upstream.New: %v", err)
	}
	svc := catalog.NewService(api, catalog.WithIndex(testutil.TestDB(t)), catalog.WithMetrics(m))
	h := NewServer(svc, Options{
		AuthEnabled: token != "",
		Token:       token,
		CORSOrigins: []string{"*"},
		Metrics:     m,
	})
	return fake, h
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errResponse {
	t.Helper()
	var e errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return e
}

func TestCreateTextForwardsBodyUnchanged(t *testing.T) {
	fake, h := testEnv(t, "")

	body := `{"type":"root","title":{"bo":"ཤེས་རབ"},"language":"bo","bdrc":"W1","custom":[1,2]}`
	w := do(h, http.MethodPost, "/text", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	req := fake.LastRequest()
	if req.Method != http.MethodPost || req.Path != "/texts" {
		t.Errorf("upstream call = %s %s", req.Method, req.Path)
	}
	if string(req.Body) != body {
		t.Errorf("forwarded body = %s, want %s", req.Body, body)
	}
	if req.Header.Get("Accept") != "application/json" || req.Header.Get("Content-Type") != "application/json" {
		t.Errorf("headers = %v", req.Header)
	}

	var created map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created["id"] == "" || created["bdrc"] != "W1" {
		t.Errorf("response = %v", created)
	}
}

func TestCreateTextMissingFieldsNeverContactsUpstream(t *testing.T) {
	fake, h := testEnv(t, "")

	for _, body := range []string{
		`{"title":{"en":"A"},"language":"en"}`,
		`{"type":"root","language":"en"}`,
		`{"type":"root","title":{"en":"A"}}`,
		`{}`,
	} {
		w := do(h, http.MethodPost, "/text", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d", body, w.Code)
		}
		e := decodeErr(t, w)
		if e.Error != "Missing required fields" || e.Details != "type, title, and language are required" {
			t.Errorf("body %s: envelope = %+v", body, e)
		}
	}
	if n := fake.RequestCount(); n != 0 {
		t.Errorf("upstream calls = %d, want 0", n)
	}
}

func TestCreateTextInvalidType(t *testing.T) {
	_, h := testEnv(t, "")
	w := do(h, http.MethodPost, "/text", `{"type":"sutra","title":{"en":"A"},"language":"en"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	e := decodeErr(t, w)
	if e.Error != "Invalid text type" || e.Details != "type must be one of: root, translation, commentary" {
		t.Errorf("envelope = %+v", e)
	}
}

func TestCreateTextUpstreamRejection(t *testing.T) {
	fake, h := testEnv(t, "")
	fake.FailNext(1, http.StatusUnprocessableEntity, `{"detail":[{"msg":"bad language"}]}`)

	w := do(h, http.MethodPost, "/text", `{"type":"root","title":{"en":"A"},"language":"zz"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want forwarded 422", w.Code)
	}
	var e struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Error != "Failed to create text in OpenPecha API" {
		t.Errorf("error = %q", e.Error)
	}
	if _, ok := e.Details["detail"]; !ok {
		t.Errorf("details should carry the upstream body, got %v", e.Details)
	}
}

func TestCreateTextUpstreamUnreachable(t *testing.T) {
	api, _ := upstream.New("http://127.0.0.1:1")
	h := NewServer(catalog.NewService(api), Options{})

	w := do(h, http.MethodPost, "/text", `{"type":"root","title":{"en":"A"},"language":"en"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeErr(t, w); e.Error != "Failed to create text" {
		t.Errorf("error = %q", e.Error)
	}

	w = do(h, http.MethodGet, "/text", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("list status = %d", w.Code)
	}
	if e := decodeErr(t, w); e.Error != "Failed to fetch texts from OpenPecha API" {
		t.Errorf("error = %q", e.Error)
	}

	w = do(h, http.MethodGet, "/health/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", w.Code)
	}
}

func TestListTextsDefaultsAndPagination(t *testing.T) {
	fake, h := testEnv(t, "")
	for i := 0; i < 7; i++ {
		fake.SeedText(map[string]any{"type": "root", "language": "bo", "title": map[string]any{"en": "T"}})
	}

	w := do(h, http.MethodGet, "/text", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if q := fake.LastRequest().Query; q != "limit=30&offset=0" {
		t.Errorf("default query = %q", q)
	}

	ids := func(target string) []string {
		w := do(h, http.MethodGet, target, "")
		var page TextPage
		if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, raw := range page.Results {
			var v struct {
				ID string `json:"id"`
			}
			_ = json.Unmarshal(raw, &v)
			out = append(out, v.ID)
		}
		return out
	}

	first := ids("/text?limit=3&offset=0&language=bo")
	if q := fake.LastRequest().Query; q != "language=bo&limit=3&offset=0" {
		t.Errorf("forwarded query = %q", q)
	}
	second := ids("/text?limit=3&offset=3&language=bo")
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("pages = %v / %v", first, second)
	}
	seen := map[string]bool{}
	for _, id := range append(first, second...) {
		if seen[id] {
			t.Fatalf("pages overlap on %s", id)
		}
		seen[id] = true
	}
}

func TestListPersonsForwardsOnlySetPagination(t *testing.T) {
	fake, h := testEnv(t, "")

	w := do(h, http.MethodGet, "/person?nationality=Tibetan", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if q := fake.LastRequest().Query; q != "limit=10&nationality=Tibetan" {
		t.Errorf("query = %q", q)
	}
	var page PersonPage
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if page.Limit != 10 || page.Results == nil {
		t.Errorf("page = %+v", page)
	}
}

func TestEscapedIDsReachUpstreamDecodedOnce(t *testing.T) {
	fake, h := testEnv(t, "")
	fake.SeedText(map[string]any{"id": "a b/c", "title": map[string]string{"en": "Slashed"}})

	for _, target := range []string{"/text/a%20b%2Fc", "/text/a%20b%2Fc/instances"} {
		w := do(h, http.MethodGet, target, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", target, w.Code, w.Body.String())
		}
		if got := fake.LastRequest().Path; !strings.HasPrefix(got, "/texts/a b/c") {
			t.Errorf("%s: upstream path = %q", target, got)
		}
	}

	w := do(h, http.MethodGet, "/person/p%201", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if got := fake.LastRequest().Path; got != "/persons/p 1" {
		t.Errorf("upstream path = %q, want /persons/p 1", got)
	}
}

func TestGetNotFoundMapping(t *testing.T) {
	_, h := testEnv(t, "")

	cases := map[string]string{
		"/text/missing":           "Text not found",
		"/text/missing/instances": "Text not found",
		"/person/missing":         "Person not found",
		"/instances/missing":      "Instance not found",
		"/text/instances/missing": "Instance not found",
	}
	for target, msg := range cases {
		w := do(h, http.MethodGet, target, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d", target, w.Code)
			continue
		}
		if e := decodeErr(t, w); e.Error != msg {
			t.Errorf("%s: error = %q, want %q", target, e.Error, msg)
		}
	}
}

func TestGetServerErrorMapping(t *testing.T) {
	fake, h := testEnv(t, "")
	fake.FailNext(1, http.StatusBadGateway, `oops`)

	w := do(h, http.MethodGet, "/person/P1", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeErr(t, w); e.Error != "Failed to fetch person from OpenPecha API" {
		t.Errorf("error = %q", e.Error)
	}
}

func TestTextRoundTrip(t *testing.T) {
	_, h := testEnv(t, "")

	w := do(h, http.MethodPost, "/text", `{"type":"translation","title":{"en":"Way of the Bodhisattva"},"language":"en","parent":"T0","contributions":[{"person_id":"P1","role":"translator"}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var created map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = do(h, http.MethodGet, "/text/"+created["id"].(string), "")
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	var got map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("round trip mismatch (-created +got):\n%s", diff)
	}
}

func TestPersonRoundTripAndSearch(t *testing.T) {
	fake, h := testEnv(t, "")

	w := do(h, http.MethodPost, "/person", `{"name":{"en":"Tsongkhapa","bo":"ཙོང་ཁ་པ"},"alt_names":[{"en":"Je Rinpoche"}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	var sent map[string]any
	_ = json.Unmarshal(fake.LastRequest().Body, &sent)
	if sent["bdrc"] != "" || sent["wiki"] != "" {
		t.Errorf("normalised body = %v", sent)
	}

	var created map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	w = do(h, http.MethodGet, "/person/"+created["id"].(string), "")
	var got map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("round trip mismatch (-created +got):\n%s", diff)
	}

	w = do(h, http.MethodGet, "/search?q=Rinpoche&kind=person", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	var res SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if len(res.Results) != 1 || res.Results[0].ID != created["id"] {
		t.Errorf("search results = %+v", res.Results)
	}
}

func TestCreatePersonValidation(t *testing.T) {
	fake, h := testEnv(t, "")
	w := do(h, http.MethodPost, "/person", `{"name":{"sa":"Nāgārjuna"}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	e := decodeErr(t, w)
	if e.Error != "Name is required with at least one language (en or bo)" {
		t.Errorf("error = %q", e.Error)
	}
	if fake.RequestCount() != 0 {
		t.Error("validation failure must not reach upstream")
	}
}

func TestCreateInstance(t *testing.T) {
	fake, h := testEnv(t, "")
	textID := fake.SeedText(map[string]any{"type": "root"})

	w := do(h, http.MethodPost, "/text/"+textID+"/instances", `{"metadata":{"type":"critical"}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeErr(t, w); e.Error != "Missing required field" || e.Details != "content is required" {
		t.Errorf("envelope = %+v", e)
	}

	w = do(h, http.MethodPost, "/text/"+textID+"/instances", `{"metadata":{"type":"critical"},"content":"ཀཁག"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", w.Code, w.Body.String())
	}
	if p := fake.LastRequest().Path; p != "/texts/"+textID+"/instances" {
		t.Errorf("path = %q", p)
	}
}

func TestRequestIDForwarded(t *testing.T) {
	fake, h := testEnv(t, "")
	req := httptest.NewRequest(http.MethodGet, "/text", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got := fake.LastRequest().Header.Get(middleware.RequestIDHeader); got != "abc-123" {
		t.Errorf("forwarded request id = %q", got)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, h := testEnv(t, "secret")

	w := do(h, http.MethodGet, "/text", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/text", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("with token = %d", w.Code)
	}

	if w := do(h, http.MethodGet, "/health/live", ""); w.Code != http.StatusOK {
		t.Errorf("health should not need auth, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	_, h := testEnv(t, "")
	req := httptest.NewRequest(http.MethodOptions, "/text", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	l := NewRateLimiter(1, 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(h, http.MethodGet, "/", "").Code)
	}
	if diff := cmp.Diff([]int{200, 200, 429}, codes); diff != "" {
		t.Errorf("codes (-want +got):\n%s", diff)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Run(ctx)
}

func TestSearchRequiresQuery(t *testing.T) {
	_, h := testEnv(t, "")
	if w := do(h, http.MethodGet, "/search", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if w := do(h, http.MethodGet, "/search?q=x&kind=place", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestOpenAPIDocuments(t *testing.T) {
	_, h := testEnv(t, "")

	w := do(h, http.MethodGet, "/openapi.yaml", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "openapi: 3.0.3") {
		t.Fatalf("yaml = %d", w.Code)
	}
	w = do(h, http.MethodGet, "/openapi.json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("json = %d %s", w.Code, w.Body.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	paths, _ := doc["paths"].(map[string]any)
	for _, p := range []string{"/text", "/text/{id}", "/person", "/search"} {
		if _, ok := paths[p]; !ok {
			t.Errorf("openapi missing path %s", p)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := testEnv(t, "")
	do(h, http.MethodGet, "/text", "")
	w := do(h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "catalog_upstream_requests_total") {
		t.Error("metrics should include upstream counters")
	}
}
