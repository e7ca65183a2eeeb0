package api

import (
	"fmt"
	"net/http"
	"strings"

	"seedvault/internal/models"
	"seedvault/internal/observability/metrics"
)

// AdminRequestAction dispatches /api/admin/request/{id}/{close|reject}. Both
// verbs move an OPEN request to a terminal state.
func (h *Handler) AdminRequestAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/request/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("expected /api/admin/request/{id}/{action}"))
		return
	}
	id, action := parts[0], parts[1]

	var (
		request models.Request
		err     error
	)
	switch action {
	case "close":
		request, err = h.Store.CloseRequest(id)
	case "reject":
		request, err = h.Store.RejectRequest(id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown request action %q", action))
		return
	}
	if err != nil {
		writeStorageError(w, err)
		return
	}
	metrics.ObserveRequestEvent(action)
	h.logger().Info("request moderated", "request_id", id, "action", action, "admin_id", admin.ID)
	writeJSON(w, http.StatusOK, newRequestResponse(request))
}
