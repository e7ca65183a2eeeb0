package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"seedvault/internal/models"
)

// CreateNotificationParams carries a new inbox entry for a user.
type CreateNotificationParams struct {
	UserID       string
	Type         string
	Message      string
	AdminID      *string
	RelatedBanID *string
}

// CreateNotification persists an inbox entry.
func (s *Storage) CreateNotification(params CreateNotificationParams) (models.Notification, error) {
	message := strings.TrimSpace(params.Message)
	if message == "" {
		return models.Notification{}, fmt.Errorf("%w: message is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.UserID]; !ok {
		return models.Notification{}, fmt.Errorf("%w: user %s", ErrInvalidReference, params.UserID)
	}

	notification := models.Notification{
		ID:           generateID(),
		UserID:       params.UserID,
		Type:         params.Type,
		Message:      message,
		AdminID:      params.AdminID,
		RelatedBanID: params.RelatedBanID,
		CreatedAt:    time.Now().UTC(),
	}

	s.data.Notifications[notification.ID] = notification
	if err := s.persist(); err != nil {
		delete(s.data.Notifications, notification.ID)
		return models.Notification{}, err
	}
	return notification, nil
}

// ListNotifications returns a user's inbox, newest first.
func (s *Storage) ListNotifications(userID string, unreadOnly bool) []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notifications := make([]models.Notification, 0)
	for _, notification := range s.data.Notifications {
		if notification.UserID != userID {
			continue
		}
		if unreadOnly && notification.Read {
			continue
		}
		notifications = append(notifications, notification)
	}
	sort.Slice(notifications, func(i, j int) bool {
		if notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].ID < notifications[j].ID
		}
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications
}

// MarkNotificationRead marks one entry read; the entry must belong to the
// user.
func (s *Storage) MarkNotificationRead(userID string, id string) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notification, ok := s.data.Notifications[id]
	if !ok || notification.UserID != userID {
		return models.Notification{}, ErrNotFound
	}

	notification.Read = true
	updatedData := cloneDataset(s.data)
	updatedData.Notifications[id] = notification
	if err := s.persistDataset(updatedData); err != nil {
		return models.Notification{}, err
	}
	s.data = updatedData
	return notification, nil
}

// MarkAllNotificationsRead marks every unread entry for the user, returning
// the number updated.
func (s *Storage) MarkAllNotificationsRead(userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)
	updated := 0
	for id, notification := range updatedData.Notifications {
		if notification.UserID != userID || notification.Read {
			continue
		}
		notification.Read = true
		updatedData.Notifications[id] = notification
		updated++
	}
	if updated == 0 {
		return 0, nil
	}
	if err := s.persistDataset(updatedData); err != nil {
		return 0, err
	}
	s.data = updatedData
	return updated, nil
}

// ClearNotifications deletes the user's whole inbox, returning the number
// removed.
func (s *Storage) ClearNotifications(userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)
	removed := 0
	for id, notification := range updatedData.Notifications {
		if notification.UserID != userID {
			continue
		}
		delete(updatedData.Notifications, id)
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	if err := s.persistDataset(updatedData); err != nil {
		return 0, err
	}
	s.data = updatedData
	return removed, nil
}
