package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"seedvault/internal/models"
	"seedvault/internal/observability/metrics"
	"seedvault/internal/storage"
	"seedvault/internal/torrentfile"
)

const maxUploadBytes = 32 << 20

// TorrentList returns the public browse listing. Unapproved uploads only show
// up for admins asking for them explicitly.
func (h *Handler) TorrentList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	query := r.URL.Query()
	filter := storage.TorrentFilter{
		CategoryID:   query.Get("categoryId"),
		Query:        query.Get("q"),
		ApprovedOnly: true,
	}
	if query.Get("includePending") == "true" {
		if user, ok := UserFromContext(r.Context()); ok && user.IsAdmin() {
			filter.ApprovedOnly = false
		}
	}
	torrents := h.Store.ListTorrents(filter)
	page, limit := paginationParams(r)
	items := newTorrentResponses(pageSlice(torrents, page, limit))
	writeJSON(w, http.StatusOK, newListResponse(items, len(torrents), page, limit))
}

// TorrentUpload accepts a multipart upload with a required "torrent" metainfo
// part, an optional "nfo" part, and name, description, and categoryId fields.
// The stored artifacts are keyed by info-hash under the upload directory.
func (h *Handler) TorrentUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	file, _, err := r.FormFile("torrent")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("torrent file is required"))
		return
	}
	defer file.Close()
	metaBytes, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read torrent file: %w", err))
		return
	}
	info, err := torrentfile.ParseBytes(metaBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var nfoBytes []byte
	if nfoFile, _, nfoErr := r.FormFile("nfo"); nfoErr == nil {
		nfoBytes, err = io.ReadAll(io.LimitReader(nfoFile, maxUploadBytes))
		nfoFile.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read nfo file: %w", err))
			return
		}
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = info.Name
	}

	// Artifacts are keyed by info-hash, so a duplicate upload would target the
	// existing torrent's files. Refuse before touching the disk.
	for _, existing := range h.Store.ListTorrents(storage.TorrentFilter{}) {
		if existing.InfoHash == info.InfoHash {
			writeStorageError(w, fmt.Errorf("%w: info hash already uploaded", storage.ErrDuplicate))
			return
		}
	}

	uploadDir := h.uploadDir()
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create upload directory: %w", err))
		return
	}
	filePath := filepath.Join(uploadDir, info.InfoHash+".torrent")
	if err := os.WriteFile(filePath, metaBytes, 0o644); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("store torrent file: %w", err))
		return
	}
	nfoPath := ""
	if len(nfoBytes) > 0 {
		nfoPath = filepath.Join(uploadDir, info.InfoHash+".nfo")
		if err := os.WriteFile(nfoPath, nfoBytes, 0o644); err != nil {
			os.Remove(filePath)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("store nfo file: %w", err))
			return
		}
	}

	cfg := h.Store.GetSiteConfig()
	torrent, err := h.Store.CreateTorrent(storage.CreateTorrentParams{
		InfoHash:    info.InfoHash,
		Name:        name,
		Description: strings.TrimSpace(r.FormValue("description")),
		UploaderID:  user.ID,
		CategoryID:  r.FormValue("categoryId"),
		FilePath:    filePath,
		NFOPath:     nfoPath,
		Size:        info.Size,
		Approved:    !cfg.RequireTorrentApproval,
	})
	if err != nil {
		// On a duplicate the paths belong to the already-stored torrent; only
		// remove files this request wrote.
		if !errors.Is(err, storage.ErrDuplicate) {
			os.Remove(filePath)
			if nfoPath != "" {
				os.Remove(nfoPath)
			}
		}
		writeStorageError(w, err)
		return
	}
	metrics.ObserveTorrentEvent("upload")
	h.logger().Info("torrent uploaded",
		"torrent_id", torrent.ID,
		"info_hash", torrent.InfoHash,
		"uploader_id", user.ID,
		"approved", torrent.IsApproved)
	writeJSON(w, http.StatusCreated, newTorrentResponse(torrent))
}

// TorrentByID dispatches /api/torrent/{id} and its nfo and download
// sub-resources.
func (h *Handler) TorrentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/torrent/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("torrent id is required"))
		return
	}
	sub := ""
	if len(parts) == 2 {
		sub = parts[1]
	}
	switch sub {
	case "":
		h.torrentDetail(w, r, id)
	case "nfo":
		h.torrentNFO(w, r, id)
	case "download":
		h.torrentDownload(w, r, id)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown torrent resource %q", sub))
	}
}

// visibleTorrent loads the torrent and applies the approval gate: pending
// uploads are visible to their uploader and to admins only.
func (h *Handler) visibleTorrent(r *http.Request, id string) (models.Torrent, error) {
	torrent, err := h.Store.GetTorrent(id)
	if err != nil {
		return models.Torrent{}, err
	}
	if torrent.IsApproved {
		return torrent, nil
	}
	if user, ok := UserFromContext(r.Context()); ok {
		if user.IsAdmin() || user.ID == torrent.UploaderID {
			return torrent, nil
		}
	}
	return models.Torrent{}, fmt.Errorf("%w: torrent %s", storage.ErrNotFound, id)
}

func (h *Handler) torrentDetail(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	torrent, err := h.visibleTorrent(r, id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTorrentResponse(torrent))
}

func (h *Handler) torrentNFO(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	torrent, err := h.visibleTorrent(r, id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if !torrent.HasNFO() {
		writeError(w, http.StatusNotFound, fmt.Errorf("torrent has no nfo"))
		return
	}
	data, err := os.ReadFile(torrent.NFOPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("read nfo: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) torrentDownload(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}
	torrent, err := h.visibleTorrent(r, id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	data, err := os.ReadFile(torrent.FilePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("read torrent file: %w", err))
		return
	}
	metrics.ObserveTorrentEvent("download")
	w.Header().Set("Content-Type", "application/x-bittorrent")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", torrent.Name+".torrent"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) uploadDir() string {
	if h.UploadDir != "" {
		return h.UploadDir
	}
	return "data/uploads"
}
