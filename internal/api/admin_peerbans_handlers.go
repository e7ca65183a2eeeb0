package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"seedvault/internal/observability/metrics"
	"seedvault/internal/storage"
)

type createPeerBanRequest struct {
	UserID    *string `json:"userId"`
	Passkey   *string `json:"passkey"`
	PeerID    *string `json:"peerId"`
	IP        *string `json:"ip"`
	Reason    string  `json:"reason"`
	ExpiresAt *string `json:"expiresAt"`
}

// AdminPeerBans lists tracker bans on GET and creates one on POST. A ban
// targeting a user account notifies the account and emails it when an address
// is on file.
func (h *Handler) AdminPeerBans(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		filter := storage.PeerBanFilter{
			Type:  query.Get("type"),
			Value: query.Get("value"),
		}
		if raw := query.Get("active"); raw != "" {
			active := raw == "true"
			filter.Active = &active
		}
		bans, err := h.Store.ListPeerBans(filter)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		page, limit := paginationParams(r)
		paged := pageSlice(bans, page, limit)
		items := make([]peerBanResponse, 0, len(paged))
		for _, ban := range paged {
			items = append(items, newPeerBanResponse(ban))
		}
		writeJSON(w, http.StatusOK, newListResponse(items, len(bans), page, limit))
	case http.MethodPost:
		var req createPeerBanRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		params := storage.CreatePeerBanParams{
			UserID:     req.UserID,
			Passkey:    req.Passkey,
			PeerID:     req.PeerID,
			IP:         req.IP,
			Reason:     req.Reason,
			BannedByID: admin.ID,
		}
		if req.ExpiresAt != nil {
			expires, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("expiresAt must be RFC 3339"))
				return
			}
			params.ExpiresAt = &expires
		}
		ban, err := h.Store.CreatePeerBan(params)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		metrics.ObservePeerBanEvent("create")
		if h.Notifier != nil {
			h.Notifier.PeerBanCreated(r.Context(), ban, admin)
		}
		h.logger().Info("peer ban created", "ban_id", ban.ID, "admin_id", admin.ID)
		writeJSON(w, http.StatusCreated, newPeerBanResponse(ban))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// AdminPeerBanByID serves a single ban on GET and lifts it on DELETE.
func (h *Handler) AdminPeerBanByID(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/peerban/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("ban id is required"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		ban, err := h.Store.GetPeerBan(id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newPeerBanResponse(ban))
	case http.MethodDelete:
		ban, err := h.Store.DeletePeerBan(id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		metrics.ObservePeerBanEvent("remove")
		if h.Notifier != nil {
			h.Notifier.PeerBanRemoved(r.Context(), ban, admin)
		}
		h.logger().Info("peer ban removed", "ban_id", id, "admin_id", admin.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
