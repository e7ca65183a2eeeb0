package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"seedvault/internal/mail"
	"seedvault/internal/storage"
)

type smtpUpdateRequest struct {
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	From     *string `json:"from"`
}

// AdminSMTP returns the outbound mail settings with the password redacted on
// GET and applies a partial update on POST.
func (h *Handler) AdminSMTP(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newSMTPResponse(h.Store.GetSiteConfig().SMTP))
	case http.MethodPost:
		var req smtpUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cfg, err := h.Store.UpdateSiteConfig(storage.SiteConfigUpdate{
			SMTPHost:     req.Host,
			SMTPPort:     req.Port,
			SMTPUsername: req.Username,
			SMTPPassword: req.Password,
			SMTPFrom:     req.From,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.logger().Info("smtp settings updated", "admin_id", admin.ID)
		writeJSON(w, http.StatusOK, newSMTPResponse(cfg.SMTP))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

type smtpTestRequest struct {
	To string `json:"to"`
}

// AdminSMTPTest sends a probe message through the configured mailer, to the
// caller's own address unless the body names another recipient.
func (h *Handler) AdminSMTPTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	if h.Mailer == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("mailer is not configured"))
		return
	}
	to := admin.Email
	if r.ContentLength != 0 {
		var req smtpTestRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if addr := strings.TrimSpace(req.To); addr != "" {
			to = addr
		}
	}
	if to == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no recipient address available"))
		return
	}
	err := h.Mailer.Send(r.Context(), mail.Message{
		To:      to,
		Subject: "SMTP test",
		Body:    "This is a test message confirming the outbound mail settings work.",
	})
	if err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusBadGateway, fmt.Errorf("send test message: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "to": to})
}

// AdminSiteConfig exposes the registration mode and approval policy on GET
// and updates them on POST.
func (h *Handler) AdminSiteConfig(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg := h.Store.GetSiteConfig()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"registrationMode":       cfg.RegistrationMode,
			"requireTorrentApproval": cfg.RequireTorrentApproval,
		})
	case http.MethodPost:
		var req struct {
			RegistrationMode       *string `json:"registrationMode"`
			RequireTorrentApproval *bool   `json:"requireTorrentApproval"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cfg, err := h.Store.UpdateSiteConfig(storage.SiteConfigUpdate{
			RegistrationMode:       req.RegistrationMode,
			RequireTorrentApproval: req.RequireTorrentApproval,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.logger().Info("site config updated", "admin_id", admin.ID)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"registrationMode":       cfg.RegistrationMode,
			"requireTorrentApproval": cfg.RequireTorrentApproval,
		})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
