package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"seedvault/internal/models"
)

// CreateUserParams carries the fields accepted at registration time.
type CreateUserParams struct {
	Username   string
	Email      string
	Password   string
	InviteCode string
}

// ProfileUpdate mutates the caller's own account. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Email    *string
	Password *string
}

// CreateUser registers an account honouring the site registration mode. The
// first account ever created becomes OWNER; all later accounts start as USER.
func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	username := strings.TrimSpace(params.Username)
	email := strings.ToLower(strings.TrimSpace(params.Email))

	if username == "" {
		return models.User{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(params.Password) < 8 {
		return models.User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	firstUser := len(s.data.Users) == 0
	if !firstUser {
		switch s.data.Config.RegistrationMode {
		case models.RegistrationClosed:
			return models.User{}, ErrRegistrationClosed
		case models.RegistrationInvite:
			if strings.TrimSpace(params.InviteCode) == "" {
				return models.User{}, ErrInviteRequired
			}
		}
	}

	for _, existing := range s.data.Users {
		if strings.EqualFold(existing.Username, username) {
			return models.User{}, fmt.Errorf("%w: username already taken", ErrDuplicate)
		}
		if existing.Email == email {
			return models.User{}, fmt.Errorf("%w: email already registered", ErrDuplicate)
		}
	}

	role := models.RoleUser
	if firstUser {
		role = models.RoleOwner
	}

	user := models.User{
		ID:           generateID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       models.UserStatusActive,
		Passkey:      newPasskey(),
		RSSEnabled:   true,
		RSSToken:     newRSSToken(),
		CreatedAt:    time.Now().UTC(),
	}

	s.data.Users[user.ID] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, user.ID)
		return models.User{}, err
	}
	return user, nil
}

// AuthenticateUser resolves an account by email or username and verifies the
// password. Banned accounts cannot authenticate.
func (s *Storage) AuthenticateUser(identifier string, password string) (models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lowered := strings.ToLower(identifier)
	for _, user := range s.data.Users {
		if user.Email != lowered && !strings.EqualFold(user.Username, identifier) {
			continue
		}
		if !verifyPassword(user.PasswordHash, password) {
			return models.User{}, ErrInvalidCredentials
		}
		if user.Status != models.UserStatusActive {
			return models.User{}, ErrAccountDisabled
		}
		return user, nil
	}
	return models.User{}, ErrInvalidCredentials
}

// GetUser returns the account with the given id.
func (s *Storage) GetUser(id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

// ListUsers returns all accounts ordered by creation time.
func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

// UpdateUserProfile applies a partial update to the user's own account.
func (s *Storage) UpdateUserProfile(id string, update ProfileUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" || !strings.Contains(email, "@") {
			return models.User{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
		}
		for otherID, other := range s.data.Users {
			if otherID != id && other.Email == email {
				return models.User{}, fmt.Errorf("%w: email already registered", ErrDuplicate)
			}
		}
		user.Email = email
		user.EmailVerified = false
	}
	if update.Password != nil {
		if len(*update.Password) < 8 {
			return models.User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
		}
		hash, err := hashPassword(*update.Password)
		if err != nil {
			return models.User{}, err
		}
		user.PasswordHash = hash
	}

	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData
	return user, nil
}

// SetUserStatus bans or reinstates an account. The OWNER account can never be
// banned.
func (s *Storage) SetUserStatus(id string, status string) (models.User, error) {
	if status != models.UserStatusActive && status != models.UserStatusBanned {
		return models.User{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	if user.Role == models.RoleOwner && status == models.UserStatusBanned {
		return models.User{}, fmt.Errorf("%w: owner account cannot be banned", ErrInvalidState)
	}

	user.Status = status
	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData
	return user, nil
}

// SetUserRole promotes or demotes an account. Only USER, MOD, and ADMIN are
// assignable; the OWNER role is fixed at bootstrap and never reassigned.
func (s *Storage) SetUserRole(id string, role string) (models.User, error) {
	switch role {
	case models.RoleUser, models.RoleMod, models.RoleAdmin:
	default:
		return models.User{}, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	if user.Role == models.RoleOwner {
		return models.User{}, fmt.Errorf("%w: owner role cannot be changed", ErrInvalidState)
	}

	user.Role = role
	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData
	return user, nil
}

// RotatePasskey replaces the account's tracker passkey.
func (s *Storage) RotatePasskey(id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}

	user.Passkey = newPasskey()
	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData
	return user, nil
}

// SetRSSEnabled toggles feed access for an account.
func (s *Storage) SetRSSEnabled(id string, enabled bool) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}

	user.RSSEnabled = enabled
	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData
	return user, nil
}

// ResetRSSToken invalidates any previously issued feed token.
func (s *Storage) ResetRSSToken(id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.data.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}

	user.RSSToken = newRSSToken()
	updatedData := cloneDataset(s.data)
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}
	s.data = updatedData
	return user, nil
}

// BootstrapOwner creates the OWNER account for a fresh install, or promotes
// the matching existing account when the email is already registered. It
// bypasses the registration mode so operators can always recover access.
func (s *Storage) BootstrapOwner(username string, email string, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, user := range s.data.Users {
		if user.Email != email {
			continue
		}
		user.Role = models.RoleOwner
		updatedData := cloneDataset(s.data)
		updatedData.Users[id] = user
		if err := s.persistDataset(updatedData); err != nil {
			return models.User{}, err
		}
		s.data = updatedData
		return user, nil
	}

	if username == "" {
		return models.User{}, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if len(password) < 8 {
		return models.User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           generateID(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleOwner,
		Status:       models.UserStatusActive,
		Passkey:      newPasskey(),
		RSSEnabled:   true,
		RSSToken:     newRSSToken(),
		CreatedAt:    time.Now().UTC(),
	}
	s.data.Users[user.ID] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, user.ID)
		return models.User{}, err
	}
	return user, nil
}
