package api

import (
	"fmt"
	"net/http"
	"strings"

	"seedvault/internal/models"
)

// AdminUsers lists all accounts for moderation.
func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	users := h.Store.ListUsers()
	page, limit := paginationParams(r)
	paged := pageSlice(users, page, limit)
	items := make([]userResponse, 0, len(paged))
	for _, user := range paged {
		items = append(items, newUserResponse(user))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, len(users), page, limit))
}

type promoteRequest struct {
	Role string `json:"role"`
}

type rssEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// AdminUserAction dispatches /api/admin/user/{id}/{action} for the moderation
// verbs: ban, unban, promote, demote, rss-enabled, and rss-token.
func (h *Handler) AdminUserAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/user/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("expected /api/admin/user/{id}/{action}"))
		return
	}
	id, action := parts[0], parts[1]

	var (
		user models.User
		err  error
	)
	switch action {
	case "ban":
		if id == admin.ID {
			writeError(w, http.StatusBadRequest, fmt.Errorf("cannot ban your own account"))
			return
		}
		user, err = h.Store.SetUserStatus(id, models.UserStatusBanned)
	case "unban":
		user, err = h.Store.SetUserStatus(id, models.UserStatusActive)
	case "promote":
		var req promoteRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		role := strings.ToUpper(strings.TrimSpace(req.Role))
		if role != models.RoleMod && role != models.RoleAdmin {
			writeError(w, http.StatusBadRequest, fmt.Errorf("role must be MOD or ADMIN"))
			return
		}
		user, err = h.Store.SetUserRole(id, role)
	case "demote":
		user, err = h.Store.SetUserRole(id, models.RoleUser)
	case "rss-enabled":
		var req rssEnabledRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err = h.Store.SetRSSEnabled(id, req.Enabled)
	case "rss-token":
		user, err = h.Store.ResetRSSToken(id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown user action %q", action))
		return
	}
	if err != nil {
		writeStorageError(w, err)
		return
	}
	h.logger().Info("admin user action",
		"action", action,
		"target_id", id,
		"admin_id", admin.ID)
	writeJSON(w, http.StatusOK, newUserResponse(user))
}
