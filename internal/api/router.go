package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linktitle/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pages. Names may contain slashes, hence the wildcard.
	r.Get("/pages", h.ListPages)
	r.Post("/pages", h.CreatePage)
	r.Get("/pages/*", h.GetPage)
	r.Post("/pages/*", h.AppendBlock)
	r.Delete("/pages/*", h.DeletePage)

	// Blocks.
	r.Get("/blocks/{uuid}", h.GetBlock)
	r.Put("/blocks/{uuid}", h.UpdateBlock)
	r.Delete("/blocks/{uuid}", h.DeleteBlock)
	r.Post("/blocks/{uuid}/children", h.InsertBlock)

	// Editor state.
	r.Get("/preferences/format", h.GetFormat)
	r.Put("/preferences/format", h.SetFormat)
	r.Get("/selection", h.GetSelection)
	r.Put("/selection", h.SetSelection)

	// Commands and link formatting.
	r.Get("/commands", h.ListCommands)
	r.Post("/commands/{key}", h.RunCommand)
	r.Post("/rewrite", h.Rewrite)
	r.Post("/titles", h.ResolveTitle)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
