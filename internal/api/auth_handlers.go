package api

import (
	"fmt"
	"net/http"

	"seedvault/internal/models"
	"seedvault/internal/observability/metrics"
	"seedvault/internal/storage"
)

type registerRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"inviteCode"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (req loginRequest) identifier() string {
	if req.Identifier != "" {
		return req.Identifier
	}
	if req.Username != "" {
		return req.Username
	}
	return req.Email
}

// Register creates an account subject to the site registration mode and opens
// a session for it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := h.Store.CreateUser(storage.CreateUserParams{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		InviteCode: req.InviteCode,
	})
	if err != nil {
		writeStorageError(w, err)
		return
	}
	token, expires, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create session: %w", err))
		return
	}
	h.setSessionCookie(w, r, token, expires)
	metrics.SessionOpened()
	writeJSON(w, http.StatusCreated, newAuthResponse(user, token, expires))
}

// Login authenticates by username or email and opens a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	identifier := req.identifier()
	if identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("identifier and password are required"))
		return
	}
	user, err := h.Store.AuthenticateUser(identifier, req.Password)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	token, expires, err := h.sessionManager().Create(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create session: %w", err))
		return
	}
	h.setSessionCookie(w, r, token, expires)
	metrics.SessionOpened()
	writeJSON(w, http.StatusOK, newAuthResponse(user, token, expires))
}

// Session reports the current session on GET and revokes it on DELETE. The
// endpoint validates the token itself so expired sessions get a clean 401
// instead of a middleware rejection.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing session token"))
			return
		}
		userID, expires, valid, err := h.sessionManager().Validate(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !valid {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid or expired session"))
			return
		}
		user, err := h.Store.GetUser(userID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("account not found"))
			return
		}
		if user.Status != models.UserStatusActive {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("account is banned"))
			return
		}
		writeJSON(w, http.StatusOK, newAuthResponse(user, token, expires))
	case http.MethodDelete:
		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing session token"))
			return
		}
		if err := h.sessionManager().Revoke(token); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		h.ClearSessionCookie(w, r)
		metrics.SessionClosed()
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	default:
		w.Header().Set("Allow", "GET, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

type profileUpdateRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Profile returns the caller's account on GET and updates email or password
// on PATCH.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newProfileResponse(user))
	case http.MethodPatch:
		var req profileUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Email == nil && req.Password == nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("nothing to update"))
			return
		}
		updated, err := h.Store.UpdateUserProfile(user.ID, storage.ProfileUpdate{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newProfileResponse(updated))
	default:
		w.Header().Set("Allow", "GET, PATCH")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// RotatePasskey issues the caller a fresh tracker passkey, invalidating old
// announce URLs.
func (h *Handler) RotatePasskey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	updated, err := h.Store.RotatePasskey(user.ID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(updated))
}

type rssTokenResponse struct {
	RSSEnabled bool   `json:"rssEnabled"`
	RSSToken   string `json:"rssToken,omitempty"`
}

// RSSToken returns the caller's feed token on GET and regenerates it on POST.
// Feeds must be enabled by an admin before a token is usable.
func (h *Handler) RSSToken(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, rssTokenResponse{RSSEnabled: user.RSSEnabled, RSSToken: user.RSSToken})
	case http.MethodPost:
		if !user.RSSEnabled {
			writeError(w, http.StatusForbidden, fmt.Errorf("rss feeds are disabled for this account"))
			return
		}
		updated, err := h.Store.ResetRSSToken(user.ID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rssTokenResponse{RSSEnabled: updated.RSSEnabled, RSSToken: updated.RSSToken})
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
