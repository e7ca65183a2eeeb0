package api

import (
	"fmt"
	"net/http"
	"strings"

	"seedvault/internal/storage"
)

// Categories lists the category tree.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	categories := h.Store.ListCategories()
	items := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, newCategoryResponse(category))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": items})
}

// CategoryByID dispatches /api/category/{id} and its torrents sub-resource.
func (h *Handler) CategoryByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/category/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("category id is required"))
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch sub {
	case "":
		h.categoryDetail(w, r, id)
	case "torrents":
		h.categoryTorrents(w, r, id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown category resource %q", sub))
	}
}

func (h *Handler) categoryDetail(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	category, err := h.Store.GetCategory(id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCategoryResponse(category))
}

func (h *Handler) categoryTorrents(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, err := h.Store.GetCategory(id); err != nil {
		writeStorageError(w, err)
		return
	}
	torrents := h.Store.ListTorrents(storage.TorrentFilter{CategoryID: id, ApprovedOnly: true})
	page, limit := paginationParams(r)
	items := newTorrentResponses(pageSlice(torrents, page, limit))
	writeJSON(w, http.StatusOK, newListResponse(items, len(torrents), page, limit))
}
