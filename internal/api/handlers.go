package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/linktitle/internal/linkfmt"
	"github.com/starford/linktitle/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pageName extracts the page name from the URL (everything after /api/pages/).
// Supports encoded slashes (e.g. projects%2Fgo).
func pageName(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPages handles GET /api/pages.
//
//	@Summary		List pages
//	@Tags			pages
//	@Produce		json
//	@Success		200		{array}		models.Page
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.svc.ListPages(r.Context())
	if err != nil {
		writeError(w, "list pages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// CreatePage handles POST /api/pages.
//
//	@Summary		Create an empty page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePageRequest	true	"Page to create"
//	@Success		201		{object}	models.Page
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages [post]
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	page, err := h.svc.CreatePage(r.Context(), req.Name, req.Title)
	if err != nil {
		writeError(w, "create page", err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

// GetPage handles GET /api/pages/*.
//
//	@Summary		Get a page with its block tree
//	@Tags			pages
//	@Produce		json
//	@Param			name	path		string	true	"Page name"
//	@Success		200		{object}	noteservice.PageDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{name} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	name := pageName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page name is required"))
		return
	}
	page, err := h.svc.GetPage(r.Context(), name)
	if err != nil {
		writeError(w, "get page", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AppendBlock handles POST /api/pages/*.
//
//	@Summary		Append a top-level block to a page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string				true	"Page name"
//	@Param			body	body		BlockContentRequest	true	"Block content"
//	@Success		201		{object}	models.Block
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{name} [post]
func (h *Handler) AppendBlock(w http.ResponseWriter, r *http.Request) {
	name := pageName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page name is required"))
		return
	}
	var req BlockContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	block, err := h.svc.AppendBlock(r.Context(), name, req.Content)
	if err != nil {
		writeError(w, "append block", err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

// DeletePage handles DELETE /api/pages/*.
//
//	@Summary		Delete a page and its blocks
//	@Tags			pages
//	@Param			name	path	string	true	"Page name"
//	@Success		204		"Page deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{name} [delete]
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	name := pageName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("page name is required"))
		return
	}
	if err := h.svc.DeletePage(r.Context(), name); err != nil {
		writeError(w, "delete page", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBlock handles GET /api/blocks/{uuid}.
//
//	@Summary		Get a block with its direct children
//	@Tags			blocks
//	@Produce		json
//	@Param			uuid	path		string	true	"Block UUID"
//	@Success		200		{object}	models.Block
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{uuid} [get]
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	block, err := h.svc.GetBlock(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, "get block", err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// UpdateBlock handles PUT /api/blocks/{uuid}.
//
//	@Summary		Replace block content
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			uuid	path		string				true	"Block UUID"
//	@Param			body	body		BlockContentRequest	true	"New content"
//	@Success		200		{object}	models.Block
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{uuid} [put]
func (h *Handler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	block, err := h.svc.UpdateBlock(r.Context(), chi.URLParam(r, "uuid"), req.Content)
	if err != nil {
		writeError(w, "update block", err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// DeleteBlock handles DELETE /api/blocks/{uuid}.
//
//	@Summary		Delete a block and its subtree
//	@Tags			blocks
//	@Param			uuid	path	string	true	"Block UUID"
//	@Success		204		"Block deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{uuid} [delete]
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBlock(r.Context(), chi.URLParam(r, "uuid")); err != nil {
		writeError(w, "delete block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InsertBlock handles POST /api/blocks/{uuid}/children.
//
//	@Summary		Insert a block under or next to another block
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			uuid	path		string				true	"Target block UUID"
//	@Param			body	body		InsertBlockRequest	true	"Content and placement"
//	@Success		201		{object}	models.Block
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{uuid}/children [post]
func (h *Handler) InsertBlock(w http.ResponseWriter, r *http.Request) {
	var req InsertBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	block, err := h.svc.InsertBlock(r.Context(), chi.URLParam(r, "uuid"), req.Content, req.InsertOptions)
	if err != nil {
		writeError(w, "insert block", err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

// GetFormat handles GET /api/preferences/format.
//
//	@Summary		Get the preferred note syntax
//	@Tags			preferences
//	@Produce		json
//	@Success		200	{object}	FormatResponse
//	@Security		BearerAuth
//	@Router			/preferences/format [get]
func (h *Handler) GetFormat(w http.ResponseWriter, r *http.Request) {
	format, err := h.svc.PreferredFormat(r.Context())
	if err != nil {
		writeError(w, "get format", err)
		return
	}
	writeJSON(w, http.StatusOK, FormatResponse{Format: format, Supported: linkfmt.FormatNames()})
}

// SetFormat handles PUT /api/preferences/format.
//
//	@Summary		Set the preferred note syntax
//	@Tags			preferences
//	@Accept			json
//	@Produce		json
//	@Param			body	body		FormatRequest	true	"markdown or org"
//	@Success		200		{object}	FormatResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preferences/format [put]
func (h *Handler) SetFormat(w http.ResponseWriter, r *http.Request) {
	var req FormatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	format, err := h.svc.SetPreferredFormat(r.Context(), req.Format)
	if err != nil {
		writeError(w, "set format", err)
		return
	}
	writeJSON(w, http.StatusOK, FormatResponse{Format: format, Supported: linkfmt.FormatNames()})
}

// GetSelection handles GET /api/selection.
//
//	@Summary		Get the selected blocks
//	@Tags			editor
//	@Produce		json
//	@Success		200	{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection [get]
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	sel, err := h.svc.Selection(r.Context())
	if err != nil {
		writeError(w, "get selection", err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{UUIDs: sel})
}

// SetSelection handles PUT /api/selection.
//
//	@Summary		Replace the selected blocks
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectionRequest	true	"Block UUIDs"
//	@Success		200		{object}	SelectionResponse
//	@Security		BearerAuth
//	@Router			/selection [put]
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.SetSelection(r.Context(), req.UUIDs); err != nil {
		writeError(w, "set selection", err)
		return
	}
	h.GetSelection(w, r)
}

// ListCommands handles GET /api/commands.
//
//	@Summary		List user commands
//	@Tags			commands
//	@Produce		json
//	@Success		200	{object}	CommandsResponse
//	@Security		BearerAuth
//	@Router			/commands [get]
func (h *Handler) ListCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CommandsResponse{Commands: h.svc.Commands()})
}

// RunCommand handles POST /api/commands/{key}.
//
//	@Summary		Run a user command on the given or selected blocks
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string				true	"Command key"	example(format-url-titles)
//	@Param			body	body		RunCommandRequest	false	"Block UUIDs"
//	@Success		200		{object}	FormatRunResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/{key} [post]
func (h *Handler) RunCommand(w http.ResponseWriter, r *http.Request) {
	var req RunCommandRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	out, err := h.svc.RunCommand(r.Context(), chi.URLParam(r, "key"), req.UUIDs)
	if err != nil {
		writeError(w, "run command", err)
		return
	}
	if results, ok := out.([]linkfmt.Result); ok {
		writeJSON(w, http.StatusOK, FormatRunResponse{Results: toFormatResults(results)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": out})
}

// Rewrite handles POST /api/rewrite.
//
//	@Summary		Rewrite bare URLs in free text
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RewriteRequest	true	"Text and optional syntax"
//	@Success		200		{object}	RewriteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rewrite [post]
func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	var req RewriteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := h.svc.RewriteText(r.Context(), req.Text, req.Syntax)
	if err != nil {
		writeError(w, "rewrite", err)
		return
	}
	writeJSON(w, http.StatusOK, toRewriteResponse(out))
}

// ResolveTitle handles POST /api/titles.
//
//	@Summary		Resolve the title of a URL
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TitleRequest	true	"URL"
//	@Success		200		{object}	TitleResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/titles [post]
func (h *Handler) ResolveTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	writeJSON(w, http.StatusOK, TitleResponse{URL: req.URL, Title: h.svc.ResolveTitle(r.Context(), req.URL)})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across blocks
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
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
