package storage

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"seedvault/internal/models"
)

// CreatePeerBanParams carries a ban targeting at least one of user, passkey,
// peer id, or IP address.
type CreatePeerBanParams struct {
	UserID     *string
	Passkey    *string
	PeerID     *string
	IP         *string
	Reason     string
	ExpiresAt  *time.Time
	BannedByID string
}

// PeerBanFilter narrows ListPeerBans. Type and Value select a single target
// field; Active filters on expiry relative to now.
type PeerBanFilter struct {
	Active *bool
	Type   string
	Value  string
}

// Valid ban target selectors for PeerBanFilter.Type.
const (
	BanTargetUser    = "userId"
	BanTargetPasskey = "passkey"
	BanTargetPeerID  = "peerId"
	BanTargetIP      = "ip"
)

// CreatePeerBan records a tracker ban. Reason and at least one target are
// required; a user target must reference an existing account.
func (s *Storage) CreatePeerBan(params CreatePeerBanParams) (models.PeerBan, error) {
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		return models.PeerBan{}, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	userID := trimPtr(params.UserID)
	passkey := trimPtr(params.Passkey)
	peerID := trimPtr(params.PeerID)
	ip := trimPtr(params.IP)
	if userID == nil && passkey == nil && peerID == nil && ip == nil {
		return models.PeerBan{}, fmt.Errorf("%w: at least one ban target is required", ErrValidation)
	}
	if ip != nil && net.ParseIP(*ip) == nil {
		return models.PeerBan{}, fmt.Errorf("%w: invalid IP address %q", ErrValidation, *ip)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if userID != nil {
		if _, ok := s.data.Users[*userID]; !ok {
			return models.PeerBan{}, fmt.Errorf("%w: user %s", ErrInvalidReference, *userID)
		}
	}
	if _, ok := s.data.Users[params.BannedByID]; !ok {
		return models.PeerBan{}, fmt.Errorf("%w: admin %s", ErrInvalidReference, params.BannedByID)
	}

	ban := models.PeerBan{
		ID:         generateID(),
		UserID:     userID,
		Passkey:    passkey,
		PeerID:     peerID,
		IP:         ip,
		Reason:     reason,
		ExpiresAt:  params.ExpiresAt,
		BannedByID: params.BannedByID,
		CreatedAt:  time.Now().UTC(),
	}

	s.data.PeerBans[ban.ID] = ban
	if err := s.persist(); err != nil {
		delete(s.data.PeerBans, ban.ID)
		return models.PeerBan{}, err
	}
	return ban, nil
}

// GetPeerBan returns the ban with the given id.
func (s *Storage) GetPeerBan(id string) (models.PeerBan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ban, ok := s.data.PeerBans[id]
	if !ok {
		return models.PeerBan{}, ErrNotFound
	}
	return ban, nil
}

// ListPeerBans returns bans matching the filter, newest first.
func (s *Storage) ListPeerBans(filter PeerBanFilter) ([]models.PeerBan, error) {
	if filter.Type != "" {
		switch filter.Type {
		case BanTargetUser, BanTargetPasskey, BanTargetPeerID, BanTargetIP:
		default:
			return nil, fmt.Errorf("%w: unknown ban target %q", ErrValidation, filter.Type)
		}
		if strings.TrimSpace(filter.Value) == "" {
			return nil, fmt.Errorf("%w: value is required with type", ErrValidation)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	bans := make([]models.PeerBan, 0, len(s.data.PeerBans))
	for _, ban := range s.data.PeerBans {
		if filter.Active != nil && ban.Active(now) != *filter.Active {
			continue
		}
		if filter.Type != "" && !banMatchesTarget(ban, filter.Type, filter.Value) {
			continue
		}
		bans = append(bans, ban)
	}
	sort.Slice(bans, func(i, j int) bool {
		if bans[i].CreatedAt.Equal(bans[j].CreatedAt) {
			return bans[i].ID < bans[j].ID
		}
		return bans[i].CreatedAt.After(bans[j].CreatedAt)
	})
	return bans, nil
}

// DeletePeerBan removes a ban, returning the removed record so callers can
// run notification side effects.
func (s *Storage) DeletePeerBan(id string) (models.PeerBan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ban, ok := s.data.PeerBans[id]
	if !ok {
		return models.PeerBan{}, ErrNotFound
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.PeerBans, id)
	if err := s.persistDataset(updatedData); err != nil {
		return models.PeerBan{}, err
	}
	s.data = updatedData
	return ban, nil
}

func banMatchesTarget(ban models.PeerBan, target string, value string) bool {
	switch target {
	case BanTargetUser:
		return ban.UserID != nil && *ban.UserID == value
	case BanTargetPasskey:
		return ban.Passkey != nil && *ban.Passkey == value
	case BanTargetPeerID:
		return ban.PeerID != nil && *ban.PeerID == value
	case BanTargetIP:
		return ban.IP != nil && *ban.IP == value
	}
	return false
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
