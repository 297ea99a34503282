package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/noteport/internal/pageservice"
)

// AssetHandler serves the binary resources extracted from exported pages.
type AssetHandler struct {
	svc *pageservice.Service
}

// NewAssetHandler creates a handler backed by the page service.
func NewAssetHandler(svc *pageservice.Service) *AssetHandler {
	return &AssetHandler{svc: svc}
}

// assetName extracts the asset name from the URL (everything after
// /assets/). Encoded slashes are accepted.
func assetName(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ServeFile handles GET /api/pages/{id}/assets/*.
//
//	@Summary		Download one asset of a page
//	@Tags			pages
//	@Param			id		path	string	true	"Page id"
//	@Param			name	path	string	true	"Asset file name or assets/<page_id>/<name>"
//	@Success		200		{file}	binary
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{id}/assets/{name} [get]
func (h *AssetHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := assetName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("asset name is required"))
		return
	}
	abs, asset, err := h.svc.AssetFile(r.Context(), id, name)
	if err != nil {
		writeError(w, err, "api: serve asset failed", slog.String("id", id), slog.String("name", name))
		return
	}
	if asset.MimeType != "" {
		w.Header().Set("Content-Type", asset.MimeType)
	}
	http.ServeFile(w, r, abs)
}
