package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"seedvault/internal/models"
)

// CreateRequestParams carries a new content request.
type CreateRequestParams struct {
	UserID      string
	Title       string
	Description string
	CategoryID  *string
}

// RequestFilter narrows ListRequests.
type RequestFilter struct {
	Status string
	Query  string
}

// CreateRequest opens a content request on behalf of a user.
func (s *Storage) CreateRequest(params CreateRequestParams) (models.Request, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Request{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.UserID]; !ok {
		return models.Request{}, fmt.Errorf("%w: user %s", ErrInvalidReference, params.UserID)
	}
	if params.CategoryID != nil {
		if _, ok := s.data.Categories[*params.CategoryID]; !ok {
			return models.Request{}, fmt.Errorf("%w: category %s", ErrInvalidReference, *params.CategoryID)
		}
	}

	request := models.Request{
		ID:          generateID(),
		UserID:      params.UserID,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		CategoryID:  params.CategoryID,
		Status:      models.RequestStatusOpen,
		CreatedAt:   time.Now().UTC(),
	}

	s.data.Requests[request.ID] = request
	if err := s.persist(); err != nil {
		delete(s.data.Requests, request.ID)
		return models.Request{}, err
	}
	return request, nil
}

// GetRequest returns the request with the given id.
func (s *Storage) GetRequest(id string) (models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.data.Requests[id]
	if !ok {
		return models.Request{}, ErrNotFound
	}
	return request, nil
}

// ListRequests returns requests matching the filter, newest first.
func (s *Storage) ListRequests(filter RequestFilter) []models.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	requests := make([]models.Request, 0, len(s.data.Requests))
	for _, request := range s.data.Requests {
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(request.Title), query) {
			continue
		}
		requests = append(requests, request)
	}
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests
}

// FillRequest transitions an OPEN request to FILLED, recording the fulfiller
// and torrent. The OPEN check happens under the write lock, so concurrent
// fills cannot both win.
func (s *Storage) FillRequest(id string, fillerID string, torrentID string) (models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.data.Requests[id]
	if !ok {
		return models.Request{}, ErrNotFound
	}
	if request.Status != models.RequestStatusOpen {
		return models.Request{}, fmt.Errorf("%w: request is %s", ErrInvalidState, request.Status)
	}
	if _, ok := s.data.Users[fillerID]; !ok {
		return models.Request{}, fmt.Errorf("%w: user %s", ErrInvalidReference, fillerID)
	}
	torrent, ok := s.data.Torrents[torrentID]
	if !ok || !torrent.IsApproved {
		return models.Request{}, fmt.Errorf("%w: torrent %s", ErrInvalidReference, torrentID)
	}

	now := time.Now().UTC()
	request.Status = models.RequestStatusFilled
	request.FilledByID = &fillerID
	request.FilledTorrentID = &torrentID
	request.FilledAt = &now

	updatedData := cloneDataset(s.data)
	updatedData.Requests[id] = request
	if err := s.persistDataset(updatedData); err != nil {
		return models.Request{}, err
	}
	s.data = updatedData
	return request, nil
}

// CloseRequest transitions an OPEN request to CLOSED.
func (s *Storage) CloseRequest(id string) (models.Request, error) {
	return s.finishRequest(id, models.RequestStatusClosed)
}

// RejectRequest transitions an OPEN request to REJECTED.
func (s *Storage) RejectRequest(id string) (models.Request, error) {
	return s.finishRequest(id, models.RequestStatusRejected)
}

func (s *Storage) finishRequest(id string, status string) (models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.data.Requests[id]
	if !ok {
		return models.Request{}, ErrNotFound
	}
	if request.Status != models.RequestStatusOpen {
		return models.Request{}, fmt.Errorf("%w: request is %s", ErrInvalidState, request.Status)
	}

	request.Status = status
	updatedData := cloneDataset(s.data)
	updatedData.Requests[id] = request
	if err := s.persistDataset(updatedData); err != nil {
		return models.Request{}, err
	}
	s.data = updatedData
	return request, nil
}
