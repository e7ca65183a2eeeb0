package api

import (
	"errors"
	"net/http"

	"seedvault/internal/storage"
)

// statusForStorageError maps the storage sentinel errors onto HTTP status
// codes. Unknown errors surface as 500.
func statusForStorageError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrAccountDisabled),
		errors.Is(err, storage.ErrRegistrationClosed):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrValidation),
		errors.Is(err, storage.ErrInvalidState),
		errors.Is(err, storage.ErrInvalidReference),
		errors.Is(err, storage.ErrDuplicate),
		errors.Is(err, storage.ErrInviteRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeStorageError(w http.ResponseWriter, err error) {
	writeError(w, statusForStorageError(err), err)
}
