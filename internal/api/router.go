package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/noteport/internal/pageservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *pageservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAssetHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/notebooks", h.ListNotebooks)

	r.Get("/pages", h.ListPages)
	r.Get("/pages/{id}", h.GetPage)
	r.Get("/pages/{id}/artifact", h.GetArtifact)
	r.Get("/pages/{id}/assets/*", ah.ServeFile)

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
