package api

import (
	"fmt"
	"net/http"
	"strings"

	"seedvault/internal/observability/metrics"
	"seedvault/internal/storage"
)

type createRequestRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	CategoryID  *string `json:"categoryId"`
}

// Requests lists open and closed content requests on GET and opens a new one
// on POST.
func (h *Handler) Requests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		filter := storage.RequestFilter{
			Status: query.Get("status"),
			Query:  query.Get("q"),
		}
		requests := h.Store.ListRequests(filter)
		page, limit := paginationParams(r)
		paged := pageSlice(requests, page, limit)
		items := make([]requestResponse, 0, len(paged))
		for _, request := range paged {
			items = append(items, newRequestResponse(request))
		}
		writeJSON(w, http.StatusOK, newListResponse(items, len(requests), page, limit))
	case http.MethodPost:
		user, ok := h.requireAuthenticatedUser(w, r)
		if !ok {
			return
		}
		var req createRequestRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := h.Store.CreateRequest(storage.CreateRequestParams{
			UserID:      user.ID,
			Title:       req.Title,
			Description: req.Description,
			CategoryID:  req.CategoryID,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		metrics.ObserveRequestEvent("create")
		writeJSON(w, http.StatusCreated, newRequestResponse(created))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// RequestByID dispatches /api/requests/{id} and its fill sub-resource.
func (h *Handler) RequestByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/requests/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("request id is required"))
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch sub {
	case "":
		h.requestDetail(w, r, id)
	case "fill":
		h.requestFill(w, r, id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown request resource %q", sub))
	}
}

func (h *Handler) requestDetail(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	request, err := h.Store.GetRequest(id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRequestResponse(request))
}

type fillRequestRequest struct {
	TorrentID string `json:"torrentId"`
}

// requestFill marks an open request filled with an approved torrent. The
// requester is notified unless they filled it themselves.
func (h *Handler) requestFill(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	var req fillRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.TorrentID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("torrentId is required"))
		return
	}
	filled, err := h.Store.FillRequest(id, user.ID, req.TorrentID)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	metrics.ObserveRequestEvent("fill")
	if h.Notifier != nil {
		torrent, terr := h.Store.GetTorrent(req.TorrentID)
		if terr == nil {
			h.Notifier.RequestFilled(r.Context(), filled, user, torrent)
		}
	}
	writeJSON(w, http.StatusOK, newRequestResponse(filled))
}
