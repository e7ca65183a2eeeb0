package api

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"seedvault/internal/observability/metrics"
	"seedvault/internal/storage"
)

// AdminTorrentsPending lists uploads waiting in the moderation queue.
func (h *Handler) AdminTorrentsPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	torrents := h.Store.ListTorrents(storage.TorrentFilter{PendingOnly: true})
	page, limit := paginationParams(r)
	items := newTorrentResponses(pageSlice(torrents, page, limit))
	writeJSON(w, http.StatusOK, newListResponse(items, len(torrents), page, limit))
}

// AdminTorrentAction dispatches /api/admin/torrent/{id}/{approve|reject}.
// Rejection deletes the record and then removes the stored artifacts; a
// failed file removal is logged but does not resurrect the record.
func (h *Handler) AdminTorrentAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/torrent/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("expected /api/admin/torrent/{id}/{action}"))
		return
	}
	id, action := parts[0], parts[1]

	switch action {
	case "approve":
		torrent, err := h.Store.ApproveTorrent(id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		metrics.ObserveTorrentEvent("approve")
		h.logger().Info("torrent approved", "torrent_id", id, "admin_id", admin.ID)
		writeJSON(w, http.StatusOK, newTorrentResponse(torrent))
	case "reject":
		torrent, err := h.Store.DeleteTorrent(id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		for _, path := range []string{torrent.FilePath, torrent.NFOPath} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				h.logger().Warn("remove torrent artifact", "path", path, "error", err)
			}
		}
		metrics.ObserveTorrentEvent("reject")
		h.logger().Info("torrent rejected", "torrent_id", id, "admin_id", admin.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown torrent action %q", action))
	}
}
