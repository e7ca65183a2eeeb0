package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Notifications lists the caller's inbox. ?unread=true narrows to unread
// entries.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications := h.Store.ListNotifications(user.ID, unreadOnly)
	items := make([]notificationResponse, 0, len(notifications))
	unread := 0
	for _, notification := range notifications {
		if !notification.Read {
			unread++
		}
		items = append(items, newNotificationResponse(notification))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": items,
		"unread":        unread,
	})
}

// NotificationAction dispatches /api/notifications/{id}/read plus the
// read-all and clear collection actions.
func (h *Handler) NotificationAction(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/notifications/")
	switch rest {
	case "read-all":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		updated, err := h.Store.MarkAllNotificationsRead(user.ID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
		return
	case "clear":
		if r.Method != http.MethodDelete {
			w.Header().Set("Allow", http.MethodDelete)
			writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
			return
		}
		removed, err := h.Store.ClearNotifications(user.ID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] != "read" {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown notification resource"))
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	notification, err := h.Store.MarkNotificationRead(user.ID, parts[0])
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newNotificationResponse(notification))
}
