package api

import (
	"fmt"
	"net/http"
	"strings"

	"seedvault/internal/storage"
)

type announcementRequest struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Pinned  bool   `json:"pinned"`
	Visible *bool  `json:"visible"`
}

type announcementUpdateRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// contentFlagForAction maps a moderation verb to the flag it toggles.
func contentFlagForAction(action string) (flag string, value bool, ok bool) {
	switch action {
	case "pin":
		return storage.FlagPinned, true, true
	case "unpin":
		return storage.FlagPinned, false, true
	case "show":
		return storage.FlagVisible, true, true
	case "hide":
		return storage.FlagVisible, false, true
	case "lock":
		return storage.FlagLocked, true, true
	case "unlock":
		return storage.FlagLocked, false, true
	}
	return "", false, false
}

// AdminAnnouncements lists all announcements including hidden ones on GET and
// posts a new one on POST.
func (h *Handler) AdminAnnouncements(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		announcements := h.Store.ListAnnouncements(true)
		items := make([]announcementResponse, 0, len(announcements))
		for _, announcement := range announcements {
			items = append(items, newAnnouncementResponse(announcement))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"announcements": items})
	case http.MethodPost:
		var req announcementRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		visible := true
		if req.Visible != nil {
			visible = *req.Visible
		}
		announcement, err := h.Store.CreateAnnouncement(storage.AnnouncementParams{
			Title:       req.Title,
			Body:        req.Body,
			Pinned:      req.Pinned,
			Visible:     visible,
			CreatedByID: admin.ID,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newAnnouncementResponse(announcement))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// AdminAnnouncementByID handles /api/admin/announcement/{id} edits and
// deletes, plus the pin, unpin, show, and hide flag actions.
func (h *Handler) AdminAnnouncementByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/announcement/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("announcement id is required"))
		return
	}
	if len(parts) == 2 {
		h.adminAnnouncementFlag(w, r, id, parts[1])
		return
	}
	switch r.Method {
	case http.MethodGet:
		announcement, err := h.Store.GetAnnouncement(id, true)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newAnnouncementResponse(announcement))
	case http.MethodPut:
		var req announcementUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		announcement, err := h.Store.UpdateAnnouncement(id, storage.AnnouncementUpdate{
			Title: req.Title,
			Body:  req.Body,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newAnnouncementResponse(announcement))
	case http.MethodDelete:
		if err := h.Store.DeleteAnnouncement(id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) adminAnnouncementFlag(w http.ResponseWriter, r *http.Request, id, action string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	flag, value, ok := contentFlagForAction(action)
	if !ok || flag == storage.FlagLocked {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown announcement action %q", action))
		return
	}
	announcement, err := h.Store.SetAnnouncementFlag(id, flag, value)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnnouncementResponse(announcement))
}

type wikiPageRequest struct {
	Slug     string  `json:"slug"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	ParentID *string `json:"parentId"`
	Visible  *bool   `json:"visible"`
}

type wikiPageUpdateRequest struct {
	Slug    *string `json:"slug"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// AdminWiki lists all wiki pages including hidden ones on GET and creates a
// page on POST.
func (h *Handler) AdminWiki(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		pages := h.Store.ListWikiPages(true)
		items := make([]wikiPageResponse, 0, len(pages))
		for _, page := range pages {
			items = append(items, newWikiPageResponse(page))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"pages": items})
	case http.MethodPost:
		var req wikiPageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		visible := true
		if req.Visible != nil {
			visible = *req.Visible
		}
		page, err := h.Store.CreateWikiPage(storage.WikiPageParams{
			Slug:        req.Slug,
			Title:       req.Title,
			Content:     req.Content,
			ParentID:    req.ParentID,
			Visible:     visible,
			CreatedByID: admin.ID,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, newWikiPageResponse(page))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// AdminWikiByID handles /api/admin/wiki/{id} edits and deletes, plus the
// lock, unlock, show, and hide flag actions.
func (h *Handler) AdminWikiByID(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/wiki/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("wiki page id is required"))
		return
	}
	if len(parts) == 2 {
		h.adminWikiFlag(w, r, id, parts[1])
		return
	}
	switch r.Method {
	case http.MethodGet:
		page, err := h.Store.GetWikiPage(id, true)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newWikiPageResponse(page))
	case http.MethodPut:
		var req wikiPageUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		page, err := h.Store.UpdateWikiPage(id, storage.WikiPageUpdate{
			Slug:    req.Slug,
			Title:   req.Title,
			Content: req.Content,
		}, admin.ID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newWikiPageResponse(page))
	case http.MethodDelete:
		if err := h.Store.DeleteWikiPage(id); err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

func (h *Handler) adminWikiFlag(w http.ResponseWriter, r *http.Request, id, action string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	flag, value, ok := contentFlagForAction(action)
	if !ok || flag == storage.FlagPinned {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown wiki action %q", action))
		return
	}
	page, err := h.Store.SetWikiPageFlag(id, flag, value)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newWikiPageResponse(page))
}
