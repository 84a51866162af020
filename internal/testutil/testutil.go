// Package testutil provides a fake OpenPecha API and shared test helpers.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openpecha/catalog/internal/index"
)

// Request is one call recorded by the fake upstream.
type Request struct {
	Method      string
	Path        string
	EscapedPath string // as sent on the wire
	Query       string
	Header      http.Header
	Body        []byte
}

// Upstream is an in-memory OpenPecha API. Resources are stored as raw JSON
// objects in insertion order.
type Upstream struct {
	Server *httptest.Server

	mu         sync.Mutex
	texts      []map[string]any
	persons    []map[string]any
	instances  map[string][]map[string]any
	requests   []Request
	failNext   int
	failStatus int
	failBody   string
}

// NewUpstream starts a fake API that is closed when the test ends.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()
	u := &Upstream{instances: make(map[string][]map[string]any)}

	r := chi.NewRouter()
	r.Use(u.record)
	r.Get("/texts", u.listTexts)
	r.Post("/texts", u.createText)
	r.Get("/texts/{id}", u.getText)
	r.Get("/texts/{id}/instances", u.listInstances)
	r.Post("/texts/{id}/instances", u.createInstance)
	r.Get("/instances/{id}", u.getInstance)
	r.Get("/persons", u.listPersons)
	r.Post("/persons", u.createPerson)
	r.Get("/persons/{id}", u.getPerson)

	u.Server = httptest.NewServer(r)
	t.Cleanup(u.Server.Close)
	return u
}

// URL returns the base URL of the fake.
func (u *Upstream) URL() string { return u.Server.URL }

// SeedText stores a text object; an id is generated when absent.
func (u *Upstream) SeedText(text map[string]any) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := ensureID(text)
	u.texts = append(u.texts, text)
	return id
}

// SeedPerson stores a person object; an id is generated when absent.
func (u *Upstream) SeedPerson(person map[string]any) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := ensureID(person)
	u.persons = append(u.persons, person)
	return id
}

// FailNext makes the next n requests answer status with body.
func (u *Upstream) FailNext(n, status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failNext = n
	u.failStatus = status
	u.failBody = body
}

// Requests returns a copy of every recorded request.
func (u *Upstream) Requests() []Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Request, len(u.requests))
	copy(out, u.requests)
	return out
}

// RequestCount returns how many requests reached the fake.
func (u *Upstream) RequestCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

// LastRequest returns the most recent request, or the zero value.
func (u *Upstream) LastRequest() Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.requests) == 0 {
		return Request{}
	}
	return u.requests[len(u.requests)-1]
}

func (u *Upstream) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		u.mu.Lock()
		u.requests = append(u.requests, Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			EscapedPath: r.URL.EscapedPath(),
			Query:       r.URL.RawQuery,
			Header:      r.Header.Clone(),
			Body:        body,
		})
		fail := u.failNext > 0
		status, failBody := u.failStatus, u.failBody
		if fail {
			u.failNext--
		}
		u.mu.Unlock()

		if fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, failBody)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (u *Upstream) listTexts(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	q := r.URL.Query()
	var matched []map[string]any
	for _, t := range u.texts {
		if lang := q.Get("language"); lang != "" && t["language"] != lang {
			continue
		}
		matched = append(matched, t)
	}
	writeJSON(w, http.StatusOK, page(matched, q))
}

func (u *Upstream) createText(w http.ResponseWriter, r *http.Request) {
	var text map[string]any
	if err := json.NewDecoder(r.Body).Decode(&text); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid json"})
		return
	}
	u.mu.Lock()
	ensureID(text)
	u.texts = append(u.texts, text)
	u.mu.Unlock()
	writeJSON(w, http.StatusCreated, text)
}

func (u *Upstream) getText(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if t := find(u.texts, param(r, "id")); t != nil {
		writeJSON(w, http.StatusOK, t)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Text not found"})
}

func (u *Upstream) listInstances(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := param(r, "id")
	if find(u.texts, id) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Text not found"})
		return
	}
	list := u.instances[id]
	if list == nil {
		list = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (u *Upstream) createInstance(w http.ResponseWriter, r *http.Request) {
	var inst map[string]any
	if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid json"})
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	id := param(r, "id")
	if find(u.texts, id) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Text not found"})
		return
	}
	ensureID(inst)
	inst["text_id"] = id
	u.instances[id] = append(u.instances[id], inst)
	writeJSON(w, http.StatusCreated, inst)
}

func (u *Upstream) getInstance(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	id := param(r, "id")
	for _, list := range u.instances {
		if inst := find(list, id); inst != nil {
			writeJSON(w, http.StatusOK, inst)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Instance not found"})
}

func (u *Upstream) listPersons(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	writeJSON(w, http.StatusOK, page(u.persons, r.URL.Query()))
}

func (u *Upstream) createPerson(w http.ResponseWriter, r *http.Request) {
	var person map[string]any
	if err := json.NewDecoder(r.Body).Decode(&person); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid json"})
		return
	}
	u.mu.Lock()
	ensureID(person)
	u.persons = append(u.persons, person)
	u.mu.Unlock()
	writeJSON(w, http.StatusCreated, person)
}

func (u *Upstream) getPerson(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if p := find(u.persons, param(r, "id")); p != nil {
		writeJSON(w, http.StatusOK, p)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Person not found"})
}

// page slices items by the limit/offset query parameters and returns a bare
// array, the shape the OpenPecha API answers list calls with.
func page(items []map[string]any, q map[string][]string) []map[string]any {
	offset, _ := strconv.Atoi(first(q["offset"]))
	limit, _ := strconv.Atoi(first(q["limit"]))
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]map[string]any, end-offset)
	copy(out, items[offset:end])
	return out
}

func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func find(items []map[string]any, id string) map[string]any {
	for _, it := range items {
		if it["id"] == id {
			return it
		}
	}
	return nil
}

func ensureID(obj map[string]any) string {
	if id, ok := obj["id"].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	obj["id"] = id
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// TestDB creates a temporary catalog index that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "catalog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
