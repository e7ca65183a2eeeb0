package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Announcements lists visible announcements, pinned first.
func (h *Handler) Announcements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	announcements := h.Store.ListAnnouncements(false)
	page, limit := paginationParams(r)
	paged := pageSlice(announcements, page, limit)
	items := make([]announcementResponse, 0, len(paged))
	for _, announcement := range paged {
		items = append(items, newAnnouncementResponse(announcement))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, len(announcements), page, limit))
}

// AnnouncementByID serves a single visible announcement.
func (h *Handler) AnnouncementByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/announcements/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("announcement id is required"))
		return
	}
	announcement, err := h.Store.GetAnnouncement(id, false)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnnouncementResponse(announcement))
}

// WikiIndex lists visible wiki pages.
func (h *Handler) WikiIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	pages := h.Store.ListWikiPages(false)
	items := make([]wikiPageResponse, 0, len(pages))
	for _, page := range pages {
		items = append(items, newWikiPageResponse(page))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pages": items})
}

// WikiBySlug serves a visible wiki page addressed by slug.
func (h *Handler) WikiBySlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	slug := strings.TrimPrefix(r.URL.Path, "/api/wiki/")
	if slug == "" || strings.Contains(slug, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("wiki slug is required"))
		return
	}
	page, err := h.Store.GetWikiPageBySlug(slug, false)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newWikiPageResponse(page))
}
