// Package api implements the HTTP handlers for the tracker community site.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"seedvault/internal/auth"
	"seedvault/internal/mail"
	"seedvault/internal/notify"
	"seedvault/internal/storage"
)

type Handler struct {
	Store               storage.Repository
	Sessions            *auth.SessionManager
	Notifier            *notify.Notifier
	Mailer              mail.Sender
	UploadDir           string
	Logger              *slog.Logger
	SessionCookiePolicy SessionCookiePolicy
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(7 * 24 * time.Hour)
	}
	return &Handler{Store: store, Sessions: sessions}
}

func (h *Handler) sessionManager() *auth.SessionManager {
	if h.Sessions == nil {
		h.Sessions = auth.NewSessionManager(7 * 24 * time.Hour)
	}
	return h.Sessions
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Health reports the datastore and session store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := map[string]string{}
	if h.Store != nil {
		if err := h.Store.Ping(ctx); err != nil {
			status = "degraded"
			checks["storage"] = err.Error()
		} else {
			checks["storage"] = "ok"
		}
	}
	if h.Sessions != nil {
		if err := h.Sessions.Ping(ctx); err != nil {
			status = "degraded"
			checks["sessions"] = err.Error()
		} else {
			checks["sessions"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"services": checks,
	})
}

// NotImplemented answers the auth flows the site does not ship.
func (h *Handler) NotImplemented(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "not implemented"})
}
