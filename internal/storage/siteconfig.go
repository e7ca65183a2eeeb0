package storage

import (
	"fmt"
	"strings"

	"seedvault/internal/models"
)

// SiteConfigUpdate applies a partial update to the singleton site policy
// record. Nil fields are left untouched.
type SiteConfigUpdate struct {
	RegistrationMode       *string
	RequireTorrentApproval *bool
	SMTPHost               *string
	SMTPPort               *int
	SMTPUsername           *string
	SMTPPassword           *string
	SMTPFrom               *string
}

// GetSiteConfig returns the current site policy.
func (s *Storage) GetSiteConfig() models.SiteConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Config
}

// UpdateSiteConfig applies the update and persists the result.
func (s *Storage) UpdateSiteConfig(update SiteConfigUpdate) (models.SiteConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config := s.data.Config
	if update.RegistrationMode != nil {
		mode := strings.ToUpper(strings.TrimSpace(*update.RegistrationMode))
		switch mode {
		case models.RegistrationOpen, models.RegistrationInvite, models.RegistrationClosed:
			config.RegistrationMode = mode
		default:
			return models.SiteConfig{}, fmt.Errorf("%w: unknown registration mode %q", ErrValidation, *update.RegistrationMode)
		}
	}
	if update.RequireTorrentApproval != nil {
		config.RequireTorrentApproval = *update.RequireTorrentApproval
	}
	if update.SMTPHost != nil {
		config.SMTP.Host = strings.TrimSpace(*update.SMTPHost)
	}
	if update.SMTPPort != nil {
		if *update.SMTPPort < 0 || *update.SMTPPort > 65535 {
			return models.SiteConfig{}, fmt.Errorf("%w: smtp port out of range", ErrValidation)
		}
		config.SMTP.Port = *update.SMTPPort
	}
	if update.SMTPUsername != nil {
		config.SMTP.Username = strings.TrimSpace(*update.SMTPUsername)
	}
	if update.SMTPPassword != nil {
		config.SMTP.Password = *update.SMTPPassword
	}
	if update.SMTPFrom != nil {
		config.SMTP.From = strings.TrimSpace(*update.SMTPFrom)
	}

	updatedData := cloneDataset(s.data)
	updatedData.Config = config
	if err := s.persistDataset(updatedData); err != nil {
		return models.SiteConfig{}, err
	}
	s.data = updatedData
	return config, nil
}
