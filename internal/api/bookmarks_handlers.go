package api

import (
	"fmt"
	"net/http"
	"strings"
)

type bookmarkRequest struct {
	TorrentID string `json:"torrentId"`
	Note      string `json:"note"`
}

// Bookmarks lists the caller's bookmarks on GET and adds one on POST.
func (h *Handler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		bookmarks := h.Store.ListBookmarks(user.ID)
		items := make([]bookmarkResponse, 0, len(bookmarks))
		for _, bookmark := range bookmarks {
			items = append(items, newBookmarkResponse(bookmark))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"bookmarks": items})
	case http.MethodPost:
		var req bookmarkRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.TorrentID == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("torrentId is required"))
			return
		}
		bookmark, err := h.Store.AddBookmark(user.ID, req.TorrentID, req.Note)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newBookmarkResponse(bookmark))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

type bookmarkNoteRequest struct {
	Note string `json:"note"`
}

// BookmarkByTorrent updates a bookmark note on PUT and removes the bookmark
// on DELETE.
func (h *Handler) BookmarkByTorrent(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	torrentID := strings.TrimPrefix(r.URL.Path, "/api/bookmarks/")
	if torrentID == "" || strings.Contains(torrentID, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("torrent id is required"))
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req bookmarkNoteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		bookmark, err := h.Store.UpdateBookmarkNote(user.ID, torrentID, req.Note)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newBookmarkResponse(bookmark))
	case http.MethodDelete:
		if err := h.Store.RemoveBookmark(user.ID, torrentID); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
