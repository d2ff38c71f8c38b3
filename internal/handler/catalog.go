package handler

import (
	"github.com/go-chi/chi/v5"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/snippet-catalog/internal/apperror"
	"github.com/sakif/snippet-catalog/internal/model"
	"github.com/sakif/snippet-catalog/internal/service"
)

// CatalogHandler exposes the read-only snippet catalog.
//
// WHY A SEPARATE HANDLER?
// Each handler struct "owns" one area of functionality: the catalog handler
// never touches favorites or comments, so catalog endpoints keep working even
// when the document store behind those is down.
//
// PREMIUM VISIBILITY:
// Whether premium snippets appear is per-request input (the ?premium= query
// parameter) with a server-configured default — the catalog itself treats it
// as an externally supplied flag, the same way the original client read it
// from local storage.
type CatalogHandler struct {
	catalog        *service.CatalogService
	premiumDefault bool
	logger         *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService, premiumDefault bool, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:        catalog,
		premiumDefault: premiumDefault,
		logger:         logger,
	}
}

// includePremium resolves the premium visibility flag for one request.
func (h *CatalogHandler) includePremium(r *http.Request) bool {
	raw := r.URL.Query().Get("premium")
	if raw == "" {
		return h.premiumDefault
	}
	include, err := strconv.ParseBool(raw)
	if err != nil {
		return h.premiumDefault
	}
	return include
}

// HandleSearch runs a catalog search.
//
// HTTP: GET /api/snippets?q=sort&category=algorithms&language=go&difficulty=beginner&premium=false
//
// All parameters are optional; an absent filter matches everything and an
// empty/whitespace query matches every snippet. Filters are ANDed together.
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	difficulty := model.Difficulty(q.Get("difficulty"))
	if difficulty != "" && !difficulty.IsValid() {
		writeError(w, apperror.ValidationFailed("difficulty", "unknown difficulty level"))
		return
	}

	results := h.catalog.Search(q.Get("q"), service.SearchFilters{
		Category:       q.Get("category"),
		Language:       q.Get("language"),
		Difficulty:     difficulty,
		IncludePremium: h.includePremium(r),
	})

	writeJSON(w, http.StatusOK, results)
}

// HandleRandom returns a random sample of snippets.
//
// HTTP: GET /api/snippets/random?count=5
func (h *CatalogHandler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	count := service.DefaultRandomCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, apperror.ValidationFailed("count", "count must be a positive integer"))
			return
		}
		count = n
	}

	writeJSON(w, http.StatusOK, h.catalog.GetRandom(count))
}

// HandleGet returns a single snippet by id.
//
// HTTP: GET /api/snippets/{id}
//
// PREMIUM PREVIEW REDACTION:
// A premium snippet fetched without premium visibility comes back with its
// code truncated to the preview window — metadata intact, full code withheld.
// The 404 for an unknown id is identical either way, so the endpoint never
// reveals whether an id exists behind the paywall.
func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "snippet id is required"))
		return
	}

	snippet, err := h.catalog.GetByID(id)
	if err != nil {
		writeError(w, err)
		return
	}

	if snippet.Premium && !h.includePremium(r) {
		snippet.Code = service.PreviewCode(snippet.Code)
		snippet.ExampleOutput = ""
	}

	writeJSON(w, http.StatusOK, snippet)
}

// facetsResponse is the shape of GET /api/catalog/facets.
type facetsResponse struct {
	Categories   []string           `json:"categories"`
	Languages    []string           `json:"languages"`
	Difficulties []model.Difficulty `json:"difficulties"`
}

// HandleFacets returns the filter vocabulary the dataset declares.
//
// HTTP: GET /api/catalog/facets
//
// The frontend builds its filter dropdowns from this instead of hardcoding
// them — a dataset with a new category shows up without a frontend deploy.
func (h *CatalogHandler) HandleFacets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, facetsResponse{
		Categories:   h.catalog.Categories(),
		Languages:    h.catalog.Languages(),
		Difficulties: model.Difficulties(),
	})
}
