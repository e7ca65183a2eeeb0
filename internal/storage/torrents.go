package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"seedvault/internal/models"
)

// CreateTorrentParams carries a decoded upload ready for persistence. The
// caller resolves artifact paths and the info-hash before calling CreateTorrent.
type CreateTorrentParams struct {
	InfoHash    string
	Name        string
	Description string
	UploaderID  string
	CategoryID  string
	FilePath    string
	NFOPath     string
	Size        int64
	Approved    bool
}

// TorrentFilter narrows ListTorrents. Query matches name substrings without
// case sensitivity.
type TorrentFilter struct {
	CategoryID   string
	UploaderID   string
	Query        string
	ApprovedOnly bool
	PendingOnly  bool
}

// CreateTorrent persists a new upload. The info-hash must be unique and the
// uploader and category must exist.
func (s *Storage) CreateTorrent(params CreateTorrentParams) (models.Torrent, error) {
	infoHash := strings.ToLower(strings.TrimSpace(params.InfoHash))
	name := strings.TrimSpace(params.Name)

	if infoHash == "" {
		return models.Torrent{}, fmt.Errorf("%w: info hash is required", ErrValidation)
	}
	if name == "" {
		return models.Torrent{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.UploaderID]; !ok {
		return models.Torrent{}, fmt.Errorf("%w: uploader %s", ErrInvalidReference, params.UploaderID)
	}
	if _, ok := s.data.Categories[params.CategoryID]; !ok {
		return models.Torrent{}, fmt.Errorf("%w: category %s", ErrInvalidReference, params.CategoryID)
	}
	for _, existing := range s.data.Torrents {
		if existing.InfoHash == infoHash {
			return models.Torrent{}, fmt.Errorf("%w: info hash already uploaded", ErrDuplicate)
		}
	}

	torrent := models.Torrent{
		ID:          generateID(),
		InfoHash:    infoHash,
		Name:        name,
		Description: strings.TrimSpace(params.Description),
		UploaderID:  params.UploaderID,
		CategoryID:  params.CategoryID,
		FilePath:    params.FilePath,
		NFOPath:     params.NFOPath,
		Size:        params.Size,
		IsApproved:  params.Approved,
		CreatedAt:   time.Now().UTC(),
	}

	s.data.Torrents[torrent.ID] = torrent
	if err := s.persist(); err != nil {
		delete(s.data.Torrents, torrent.ID)
		return models.Torrent{}, err
	}
	return torrent, nil
}

// GetTorrent returns the torrent with the given id.
func (s *Storage) GetTorrent(id string) (models.Torrent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	torrent, ok := s.data.Torrents[id]
	if !ok {
		return models.Torrent{}, ErrNotFound
	}
	return torrent, nil
}

// ListTorrents returns torrents matching the filter, newest first.
func (s *Storage) ListTorrents(filter TorrentFilter) []models.Torrent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	torrents := make([]models.Torrent, 0, len(s.data.Torrents))
	for _, torrent := range s.data.Torrents {
		if filter.ApprovedOnly && !torrent.IsApproved {
			continue
		}
		if filter.PendingOnly && torrent.IsApproved {
			continue
		}
		if filter.CategoryID != "" && torrent.CategoryID != filter.CategoryID {
			continue
		}
		if filter.UploaderID != "" && torrent.UploaderID != filter.UploaderID {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(torrent.Name), query) {
			continue
		}
		torrents = append(torrents, torrent)
	}
	sort.Slice(torrents, func(i, j int) bool {
		if torrents[i].CreatedAt.Equal(torrents[j].CreatedAt) {
			return torrents[i].ID < torrents[j].ID
		}
		return torrents[i].CreatedAt.After(torrents[j].CreatedAt)
	})
	return torrents
}

// ApproveTorrent marks an upload as approved for public listing.
func (s *Storage) ApproveTorrent(id string) (models.Torrent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	torrent, ok := s.data.Torrents[id]
	if !ok {
		return models.Torrent{}, ErrNotFound
	}

	torrent.IsApproved = true
	updatedData := cloneDataset(s.data)
	updatedData.Torrents[id] = torrent
	if err := s.persistDataset(updatedData); err != nil {
		return models.Torrent{}, err
	}
	s.data = updatedData
	return torrent, nil
}

// DeleteTorrent removes the record and any bookmarks pointing at it, returning
// the deleted torrent so callers can clean up artifact files afterwards.
func (s *Storage) DeleteTorrent(id string) (models.Torrent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	torrent, ok := s.data.Torrents[id]
	if !ok {
		return models.Torrent{}, ErrNotFound
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Torrents, id)
	for userID, marks := range updatedData.Bookmarks {
		if _, ok := marks[id]; ok {
			delete(marks, id)
			if len(marks) == 0 {
				delete(updatedData.Bookmarks, userID)
			}
		}
	}
	if err := s.persistDataset(updatedData); err != nil {
		return models.Torrent{}, err
	}
	s.data = updatedData
	return torrent, nil
}
