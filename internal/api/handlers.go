package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/noteport/internal/pageservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *pageservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pageservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotebooks handles GET /api/notebooks.
//
//	@Summary		List catalogued notebooks
//	@Tags			notebooks
//	@Produce		json
//	@Success		200	{object}	NotebookListResponse
//	@Security		BearerAuth
//	@Router			/notebooks [get]
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	nbs, err := h.svc.ListNotebooks(r.Context())
	if err != nil {
		writeError(w, err, "api: list notebooks failed")
		return
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: nbs})
}

// ListPages handles GET /api/pages.
//
//	@Summary		List pages in export order
//	@Tags			pages
//	@Produce		json
//	@Param			notebook_id	query		string	false	"Restrict to one notebook"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	nbID := q.Get("notebook_id")

	pages, total, err := h.svc.ListPages(r.Context(), nbID, limit, offset)
	if err != nil {
		writeError(w, err, "api: list pages failed", slog.String("notebook_id", nbID))
		return
	}
	writeJSON(w, http.StatusOK, PageListResponse{Pages: pages, Total: total})
}

// GetPage handles GET /api/pages/{id}.
//
//	@Summary		Get a page with its assets and artifact content
//	@Tags			pages
//	@Produce		json
//	@Param			id	path		string	true	"Page id"
//	@Success		200	{object}	PageDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page, err := h.svc.GetPage(r.Context(), id)
	if err != nil {
		writeError(w, err, "api: get page failed", slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetArtifact handles GET /api/pages/{id}/artifact.
//
//	@Summary		Get the raw Markdown artifact of a page
//	@Tags			pages
//	@Produce		text/markdown
//	@Param			id	path		string	true	"Page id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/artifact [get]
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.svc.ReadArtifact(r.Context(), id)
	if err != nil {
		writeError(w, err, "api: read artifact failed", slog.String("id", id))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Search handles GET /api/search.
//
//	@Summary		Search pages by title
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "api: search failed", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
