package gateway

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openpecha/catalog/internal/apperr"
	"github.com/openpecha/catalog/internal/catalog"
	"github.com/openpecha/catalog/internal/index"
	"github.com/openpecha/catalog/internal/models"
)

// maxBodyBytes bounds accepted request bodies.
const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *catalog.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{svc: svc}
}

// ListTexts handles GET /text.
//
//	@Summary		List texts from the OpenPecha API
//	@Tags			texts
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"		default(30)
//	@Param			offset		query		int		false	"Page offset"	default(0)
//	@Param			language	query		string	false	"Filter by language code"
//	@Param			author		query		string	false	"Filter by author"
//	@Success		200			{object}	TextPage
//	@Failure		500			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/text [get]
func (h *Handler) ListTexts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.TextFilter{
		Limit:    intParam(q, "limit", models.DefaultTextLimit),
		Offset:   intParam(q, "offset", 0),
		Language: q.Get("language"),
		Author:   q.Get("author"),
	}
	page, err := h.svc.ListTexts(r.Context(), f)
	if err != nil {
		slog.Error("list texts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorDetails("Failed to fetch texts from OpenPecha API", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetText handles GET /text/{id}.
//
//	@Summary		Get a text by id
//	@Tags			texts
//	@Produce		json
//	@Param			id	path		string	true	"Text id"
//	@Success		200	{object}	models.Text
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/text/{id} [get]
func (h *Handler) GetText(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	data, err := h.svc.GetText(r.Context(), id)
	if err != nil {
		readFailed(w, err, "Text not found", "Failed to fetch text from OpenPecha API", slog.String("id", id))
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// CreateText handles POST /text.
//
//	@Summary		Create a text
//	@Tags			texts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTextBody	true	"Text to create"
//	@Success		201		{object}	models.Text
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/text [post]
func (h *Handler) CreateText(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	data, err := h.svc.CreateText(r.Context(), body)
	if err != nil {
		createFailed(w, err, "text")
		return
	}
	writeRaw(w, http.StatusCreated, data)
}

// ListTextInstances handles GET /text/{id}/instances.
//
//	@Summary		List the instances of a text
//	@Tags			instances
//	@Produce		json
//	@Param			id	path		string	true	"Text id"
//	@Success		200	{array}		models.Instance
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/text/{id}/instances [get]
func (h *Handler) ListTextInstances(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	data, err := h.svc.ListTextInstances(r.Context(), id)
	if err != nil {
		readFailed(w, err, "Text not found", "Failed to fetch text instances from OpenPecha API", slog.String("id", id))
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// CreateTextInstance handles POST /text/{id}/instances.
//
//	@Summary		Create an instance of a text
//	@Tags			instances
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Text id"
//	@Param			body	body		CreateInstanceBody	true	"Instance to create"
//	@Success		201		{object}	models.Instance
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/text/{id}/instances [post]
func (h *Handler) CreateTextInstance(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	data, err := h.svc.CreateTextInstance(r.Context(), pathParam(r, "id"), body)
	if err != nil {
		createFailed(w, err, "text instance")
		return
	}
	writeRaw(w, http.StatusCreated, data)
}

// GetInstance handles GET /instances/{id} and GET /text/instances/{id}.
//
//	@Summary		Get an instance by id
//	@Tags			instances
//	@Produce		json
//	@Param			id	path		string	true	"Instance id"
//	@Success		200	{object}	models.Instance
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/instances/{id} [get]
func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	data, err := h.svc.GetInstance(r.Context(), id)
	if err != nil {
		readFailed(w, err, "Instance not found", "Failed to fetch instance from OpenPecha API", slog.String("id", id))
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// ListPersons handles GET /person.
//
//	@Summary		List persons from the OpenPecha API
//	@Tags			persons
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"		default(10)
//	@Param			offset		query		int		false	"Page offset"	default(0)
//	@Param			nationality	query		string	false	"Filter by nationality"
//	@Param			occupation	query		string	false	"Filter by occupation"
//	@Success		200			{object}	PersonPage
//	@Failure		500			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/person [get]
func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.PersonFilter{
		Limit:       intParam(q, "limit", models.DefaultPersonLimit),
		Offset:      intParam(q, "offset", 0),
		Nationality: q.Get("nationality"),
		Occupation:  q.Get("occupation"),
	}
	page, err := h.svc.ListPersons(r.Context(), f)
	if err != nil {
		slog.Error("list persons failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorDetails("Failed to fetch persons from OpenPecha API", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetPerson handles GET /person/{id}.
//
//	@Summary		Get a person by id
//	@Tags			persons
//	@Produce		json
//	@Param			id	path		string	true	"Person id"
//	@Success		200	{object}	models.Person
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/person/{id} [get]
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	data, err := h.svc.GetPerson(r.Context(), id)
	if err != nil {
		readFailed(w, err, "Person not found", "Failed to fetch person from OpenPecha API", slog.String("id", id))
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// CreatePerson handles POST /person.
//
//	@Summary		Create a person
//	@Tags			persons
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePersonBody	true	"Person to create"
//	@Success		201		{object}	models.Person
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/person [post]
func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	data, err := h.svc.CreatePerson(r.Context(), body)
	if err != nil {
		createFailed(w, err, "person")
		return
	}
	writeRaw(w, http.StatusCreated, data)
}

// Search handles GET /search.
//
//	@Summary		Search texts and persons seen by the gateway
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			kind	query		string	false	"Restrict to one kind"	Enums(text, person)
//	@Param			limit	query		int		false	"Max results"			default(50)
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	kind := index.Kind(q.Get("kind"))
	if kind != "" && kind != index.KindText && kind != index.KindPerson {
		writeJSON(w, http.StatusBadRequest, errorDetails("Invalid kind", "kind must be one of: text, person"))
		return
	}
	limit := intParam(q, "limit", maxSearchResults)
	if limit > maxSearchResults {
		limit = maxSearchResults
	}
	results, err := h.svc.Search(r.Context(), query, kind, limit)
	if err != nil {
		if errors.Is(err, catalog.ErrSearchDisabled) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("search index is disabled"))
			return
		}
		slog.Error("search failed", slog.String("query", query), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// maxSearchResults matches the result cap of the create form's text picker.
const maxSearchResults = 50

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorDetails("failed to read body", err.Error()))
		return nil, false
	}
	return body, true
}

// readFailed maps a single-entity read error: upstream 404 becomes 404,
// everything else 500.
func readFailed(w http.ResponseWriter, err error, notFound, failed string, attrs ...any) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorDetails(notFound, err.Error()))
		return
	}
	slog.Error(failed, append(attrs, slog.String("error", err.Error()))...)
	writeJSON(w, http.StatusInternalServerError, errorDetails(failed, err.Error()))
}

// createFailed maps a create error: validation is 400, an upstream status is
// forwarded with the upstream body as details, anything else is 500.
func createFailed(w http.ResponseWriter, err error, what string) {
	if v, ok := apperr.AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorDetails(v.Message, v.Details))
		return
	}
	if u, ok := apperr.AsUpstream(err); ok {
		slog.Warn("upstream rejected create", slog.String("resource", what), slog.Int("status", u.Status))
		writeJSON(w, u.Status, errorDetails("Failed to create "+what+" in OpenPecha API", u.Details(err.Error())))
		return
	}
	slog.Error("create failed", slog.String("resource", what), slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorDetails("Failed to create "+what, err.Error()))
}

// intParam parses a non-negative integer query parameter, falling back to
// def when it is absent or malformed.
func intParam(q url.Values, name string, def int) int {
	v, err := strconv.Atoi(q.Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// pathParam returns a decoded route parameter. chi matches on the raw path
// when the request carries escaped slashes, leaving the value escaped.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
