package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"seedvault/internal/models"
)

// AddBookmark saves an approved torrent to the user's bookmark list.
func (s *Storage) AddBookmark(userID string, torrentID string, note string) (models.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[userID]; !ok {
		return models.Bookmark{}, fmt.Errorf("%w: user %s", ErrInvalidReference, userID)
	}
	torrent, ok := s.data.Torrents[torrentID]
	if !ok || !torrent.IsApproved {
		return models.Bookmark{}, fmt.Errorf("%w: torrent %s", ErrInvalidReference, torrentID)
	}
	if _, ok := s.data.Bookmarks[userID][torrentID]; ok {
		return models.Bookmark{}, fmt.Errorf("%w: torrent already bookmarked", ErrDuplicate)
	}

	bookmark := models.Bookmark{
		UserID:    userID,
		TorrentID: torrentID,
		Note:      strings.TrimSpace(note),
		CreatedAt: time.Now().UTC(),
	}

	updatedData := cloneDataset(s.data)
	if updatedData.Bookmarks[userID] == nil {
		updatedData.Bookmarks[userID] = make(map[string]models.Bookmark)
	}
	updatedData.Bookmarks[userID][torrentID] = bookmark
	if err := s.persistDataset(updatedData); err != nil {
		return models.Bookmark{}, err
	}
	s.data = updatedData
	return bookmark, nil
}

// UpdateBookmarkNote replaces the note on an existing bookmark.
func (s *Storage) UpdateBookmarkNote(userID string, torrentID string, note string) (models.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmark, ok := s.data.Bookmarks[userID][torrentID]
	if !ok {
		return models.Bookmark{}, ErrNotFound
	}

	bookmark.Note = strings.TrimSpace(note)
	updatedData := cloneDataset(s.data)
	updatedData.Bookmarks[userID][torrentID] = bookmark
	if err := s.persistDataset(updatedData); err != nil {
		return models.Bookmark{}, err
	}
	s.data = updatedData
	return bookmark, nil
}

// RemoveBookmark deletes a bookmark.
func (s *Storage) RemoveBookmark(userID string, torrentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Bookmarks[userID][torrentID]; !ok {
		return ErrNotFound
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Bookmarks[userID], torrentID)
	if len(updatedData.Bookmarks[userID]) == 0 {
		delete(updatedData.Bookmarks, userID)
	}
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// ListBookmarks returns the user's bookmarks, newest first.
func (s *Storage) ListBookmarks(userID string) []models.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookmarks := make([]models.Bookmark, 0, len(s.data.Bookmarks[userID]))
	for _, bookmark := range s.data.Bookmarks[userID] {
		bookmarks = append(bookmarks, bookmark)
	}
	sort.Slice(bookmarks, func(i, j int) bool {
		if bookmarks[i].CreatedAt.Equal(bookmarks[j].CreatedAt) {
			return bookmarks[i].TorrentID < bookmarks[j].TorrentID
		}
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})
	return bookmarks
}
