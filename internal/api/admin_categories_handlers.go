package api

import (
	"fmt"
	"net/http"
	"strings"

	"seedvault/internal/storage"
)

type categoryRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ParentID    *string `json:"parentId"`
}

// AdminCategories creates a category on POST. GET mirrors the public listing
// for admin tooling.
func (h *Handler) AdminCategories(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.Categories(w, r)
	case http.MethodPost:
		var req categoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := h.Store.CreateCategory(storage.CategoryParams{
			Name:        req.Name,
			Description: req.Description,
			ParentID:    req.ParentID,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		h.logger().Info("category created", "category_id", category.ID, "admin_id", admin.ID)
		writeJSON(w, http.StatusCreated, newCategoryResponse(category))
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// AdminCategoryByID updates a category on PUT and deletes it on DELETE.
// Deletion fails while torrents or child categories still reference it.
func (h *Handler) AdminCategoryByID(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/category/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("category id is required"))
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req categoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := h.Store.UpdateCategory(id, storage.CategoryParams{
			Name:        req.Name,
			Description: req.Description,
			ParentID:    req.ParentID,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newCategoryResponse(category))
	case http.MethodDelete:
		if err := h.Store.DeleteCategory(id); err != nil {
			writeStorageError(w, err)
			return
		}
		h.logger().Info("category deleted", "category_id", id, "admin_id", admin.ID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		w.Header().Set("Allow", "PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}
