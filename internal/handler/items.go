package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/model"
	"github.com/sakif/linkshare/internal/service"
	"github.com/sakif/linkshare/internal/view"
)

// ItemHandler serves the item pages and the item/vote JSON API.
type ItemHandler struct {
	items  *service.ItemService
	users  SessionResolver
	logger *slog.Logger
}

func NewItemHandler(items *service.ItemService, users SessionResolver, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, users: users, logger: logger}
}

// HandleHome renders the front page, newest items first.
//
// HTTP: GET /?offset=20
func (h *ItemHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	viewer, err := optionalUser(r, h.users)
	if err != nil {
		h.pageError(w, "resolving viewer", err)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	entries, err := h.items.Feed(r.Context(), viewerID(viewer), service.DefaultListLimit, offset)
	if err != nil {
		h.pageError(w, "loading feed", err)
		return
	}

	// A full page means there may be more.
	next := 0
	if len(entries) == service.DefaultListLimit {
		next = offset + service.DefaultListLimit
	}

	page, err := view.ItemsPage(viewer, entries, next)
	if err != nil {
		h.pageError(w, "rendering items page", err)
		return
	}
	templ.Handler(page).ServeHTTP(w, r)
}

// HandleItem renders a single item.
//
// HTTP: GET /item/{id}
func (h *ItemHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	viewer, err := optionalUser(r, h.users)
	if err != nil {
		h.pageError(w, "resolving viewer", err)
		return
	}

	entry, err := h.items.Entry(r.Context(), viewerID(viewer), chi.URLParam(r, "id"))
	if err != nil {
		h.pageError(w, "loading item", err)
		return
	}

	page, err := view.ItemPage(viewer, *entry)
	if err != nil {
		h.pageError(w, "rendering item page", err)
		return
	}
	templ.Handler(page).ServeHTTP(w, r)
}

// createItemRequest is the JSON body of POST /api/items.
type createItemRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// HandleCreate submits a new item.
//
// HTTP: POST /api/items
// REQUEST BODY: {"title": "Deno 2", "url": "https://deno.com/blog/v2"}
// Auth: Required
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}

	// MaxBytesReader stops a client from streaming an endless body at us.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)

	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid item JSON", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	item, err := h.items.Create(r.Context(), user.ID, req.Title, req.URL)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// HandleVote adds the caller's vote.
//
// HTTP: POST /api/vote?item_id=abc
// Auth: Required
func (h *ItemHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	h.changeVote(w, r, h.items.Vote)
}

// HandleUnvote removes the caller's vote.
//
// HTTP: DELETE /api/vote?item_id=abc
// Auth: Required
func (h *ItemHandler) HandleUnvote(w http.ResponseWriter, r *http.Request) {
	h.changeVote(w, r, h.items.Unvote)
}

func (h *ItemHandler) changeVote(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, string) error) {
	user, err := currentUser(r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}

	itemID := r.URL.Query().Get("item_id")
	if itemID == "" {
		writeError(w, apperror.ValidationFailed("item_id", "item_id is required"))
		return
	}

	if err := apply(r.Context(), itemID, user.ID); err != nil {
		writeError(w, err)
		return
	}

	// 204 No Content — the vote state is what the client asked for, whether
	// or not it changed.
	w.WriteHeader(http.StatusNoContent)
}

func viewerID(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// pageError logs err unless it is an ordinary client error, then answers
// with the matching status.
func (h *ItemHandler) pageError(w http.ResponseWriter, action string, err error) {
	if status, _, _ := classify(err); status >= http.StatusInternalServerError {
		h.logger.Error("page failed", slog.String("action", action), slog.String("error", err.Error()))
	}
	writePageError(w, err)
}
