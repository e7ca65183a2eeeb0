package storage

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"seedvault/internal/models"
)

// Flag names accepted by SetAnnouncementFlag and SetWikiPageFlag.
const (
	FlagPinned  = "pinned"
	FlagVisible = "visible"
	FlagLocked  = "locked"
)

// AnnouncementParams carries fields for creating an announcement.
type AnnouncementParams struct {
	Title       string
	Body        string
	Pinned      bool
	Visible     bool
	CreatedByID string
}

// AnnouncementUpdate mutates title and body; nil fields are left untouched.
type AnnouncementUpdate struct {
	Title *string
	Body  *string
}

// WikiPageParams carries fields for creating a wiki page.
type WikiPageParams struct {
	Slug        string
	Title       string
	Content     string
	ParentID    *string
	Visible     bool
	CreatedByID string
}

// WikiPageUpdate mutates page fields; nil fields are left untouched.
type WikiPageUpdate struct {
	Slug    *string
	Title   *string
	Content *string
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// CreateAnnouncement posts a site announcement.
func (s *Storage) CreateAnnouncement(params AnnouncementParams) (models.Announcement, error) {
	title := strings.TrimSpace(params.Title)
	body := strings.TrimSpace(params.Body)
	if title == "" {
		return models.Announcement{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if body == "" {
		return models.Announcement{}, fmt.Errorf("%w: body is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.CreatedByID]; !ok {
		return models.Announcement{}, fmt.Errorf("%w: user %s", ErrInvalidReference, params.CreatedByID)
	}

	now := time.Now().UTC()
	announcement := models.Announcement{
		ID:          generateID(),
		Title:       title,
		Body:        body,
		Pinned:      params.Pinned,
		Visible:     params.Visible,
		CreatedByID: params.CreatedByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.data.Announcements[announcement.ID] = announcement
	if err := s.persist(); err != nil {
		delete(s.data.Announcements, announcement.ID)
		return models.Announcement{}, err
	}
	return announcement, nil
}

// UpdateAnnouncement edits an announcement's text.
func (s *Storage) UpdateAnnouncement(id string, update AnnouncementUpdate) (models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	announcement, ok := s.data.Announcements[id]
	if !ok {
		return models.Announcement{}, ErrNotFound
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Announcement{}, fmt.Errorf("%w: title is required", ErrValidation)
		}
		announcement.Title = title
	}
	if update.Body != nil {
		body := strings.TrimSpace(*update.Body)
		if body == "" {
			return models.Announcement{}, fmt.Errorf("%w: body is required", ErrValidation)
		}
		announcement.Body = body
	}
	announcement.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Announcements[id] = announcement
	if err := s.persistDataset(updatedData); err != nil {
		return models.Announcement{}, err
	}
	s.data = updatedData
	return announcement, nil
}

// SetAnnouncementFlag toggles the pinned or visible flag. All pin/unpin and
// show/hide endpoints funnel through this one path.
func (s *Storage) SetAnnouncementFlag(id string, flag string, value bool) (models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	announcement, ok := s.data.Announcements[id]
	if !ok {
		return models.Announcement{}, ErrNotFound
	}

	switch flag {
	case FlagPinned:
		announcement.Pinned = value
	case FlagVisible:
		announcement.Visible = value
	default:
		return models.Announcement{}, fmt.Errorf("%w: unknown announcement flag %q", ErrValidation, flag)
	}
	announcement.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.Announcements[id] = announcement
	if err := s.persistDataset(updatedData); err != nil {
		return models.Announcement{}, err
	}
	s.data = updatedData
	return announcement, nil
}

// DeleteAnnouncement removes an announcement.
func (s *Storage) DeleteAnnouncement(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Announcements[id]; !ok {
		return ErrNotFound
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Announcements, id)
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// GetAnnouncement returns an announcement; hidden rows are withheld unless
// includeHidden is set.
func (s *Storage) GetAnnouncement(id string, includeHidden bool) (models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	announcement, ok := s.data.Announcements[id]
	if !ok || (!includeHidden && !announcement.Visible) {
		return models.Announcement{}, ErrNotFound
	}
	return announcement, nil
}

// ListAnnouncements returns announcements pinned-first, newest within each
// group. Hidden rows are withheld unless includeHidden is set.
func (s *Storage) ListAnnouncements(includeHidden bool) []models.Announcement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	announcements := make([]models.Announcement, 0, len(s.data.Announcements))
	for _, announcement := range s.data.Announcements {
		if !includeHidden && !announcement.Visible {
			continue
		}
		announcements = append(announcements, announcement)
	}
	sort.Slice(announcements, func(i, j int) bool {
		if announcements[i].Pinned != announcements[j].Pinned {
			return announcements[i].Pinned
		}
		if announcements[i].CreatedAt.Equal(announcements[j].CreatedAt) {
			return announcements[i].ID < announcements[j].ID
		}
		return announcements[i].CreatedAt.After(announcements[j].CreatedAt)
	})
	return announcements
}

// CreateWikiPage adds a wiki page addressed by a unique slug.
func (s *Storage) CreateWikiPage(params WikiPageParams) (models.WikiPage, error) {
	slug := normalizeSlug(params.Slug)
	title := strings.TrimSpace(params.Title)
	if slug == "" || !slugPattern.MatchString(slug) {
		return models.WikiPage{}, fmt.Errorf("%w: slug must be lowercase letters, digits, and hyphens", ErrValidation)
	}
	if title == "" {
		return models.WikiPage{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[params.CreatedByID]; !ok {
		return models.WikiPage{}, fmt.Errorf("%w: user %s", ErrInvalidReference, params.CreatedByID)
	}
	for _, existing := range s.data.WikiPages {
		if existing.Slug == slug {
			return models.WikiPage{}, fmt.Errorf("%w: slug already used", ErrDuplicate)
		}
	}
	if params.ParentID != nil {
		if _, ok := s.data.WikiPages[*params.ParentID]; !ok {
			return models.WikiPage{}, fmt.Errorf("%w: parent page %s", ErrInvalidReference, *params.ParentID)
		}
	}

	now := time.Now().UTC()
	page := models.WikiPage{
		ID:          generateID(),
		Slug:        slug,
		Title:       title,
		Content:     params.Content,
		ParentID:    params.ParentID,
		Visible:     params.Visible,
		CreatedByID: params.CreatedByID,
		UpdatedByID: params.CreatedByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.data.WikiPages[page.ID] = page
	if err := s.persist(); err != nil {
		delete(s.data.WikiPages, page.ID)
		return models.WikiPage{}, err
	}
	return page, nil
}

// UpdateWikiPage edits a page and records the editor.
func (s *Storage) UpdateWikiPage(id string, update WikiPageUpdate, editorID string) (models.WikiPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, ok := s.data.WikiPages[id]
	if !ok {
		return models.WikiPage{}, ErrNotFound
	}
	if _, ok := s.data.Users[editorID]; !ok {
		return models.WikiPage{}, fmt.Errorf("%w: user %s", ErrInvalidReference, editorID)
	}

	if update.Slug != nil {
		slug := normalizeSlug(*update.Slug)
		if slug == "" || !slugPattern.MatchString(slug) {
			return models.WikiPage{}, fmt.Errorf("%w: slug must be lowercase letters, digits, and hyphens", ErrValidation)
		}
		for otherID, existing := range s.data.WikiPages {
			if otherID != id && existing.Slug == slug {
				return models.WikiPage{}, fmt.Errorf("%w: slug already used", ErrDuplicate)
			}
		}
		page.Slug = slug
	}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.WikiPage{}, fmt.Errorf("%w: title is required", ErrValidation)
		}
		page.Title = title
	}
	if update.Content != nil {
		page.Content = *update.Content
	}
	page.UpdatedByID = editorID
	page.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.WikiPages[id] = page
	if err := s.persistDataset(updatedData); err != nil {
		return models.WikiPage{}, err
	}
	s.data = updatedData
	return page, nil
}

// SetWikiPageFlag toggles the visible or locked flag. All lock/unlock and
// show/hide endpoints funnel through this one path.
func (s *Storage) SetWikiPageFlag(id string, flag string, value bool) (models.WikiPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, ok := s.data.WikiPages[id]
	if !ok {
		return models.WikiPage{}, ErrNotFound
	}

	switch flag {
	case FlagVisible:
		page.Visible = value
	case FlagLocked:
		page.Locked = value
	default:
		return models.WikiPage{}, fmt.Errorf("%w: unknown wiki flag %q", ErrValidation, flag)
	}
	page.UpdatedAt = time.Now().UTC()

	updatedData := cloneDataset(s.data)
	updatedData.WikiPages[id] = page
	if err := s.persistDataset(updatedData); err != nil {
		return models.WikiPage{}, err
	}
	s.data = updatedData
	return page, nil
}

// DeleteWikiPage removes a page and detaches any children.
func (s *Storage) DeleteWikiPage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.WikiPages[id]; !ok {
		return ErrNotFound
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.WikiPages, id)
	for childID, child := range updatedData.WikiPages {
		if child.ParentID != nil && *child.ParentID == id {
			child.ParentID = nil
			updatedData.WikiPages[childID] = child
		}
	}
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// GetWikiPage returns a page by id; hidden pages are withheld unless
// includeHidden is set.
func (s *Storage) GetWikiPage(id string, includeHidden bool) (models.WikiPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page, ok := s.data.WikiPages[id]
	if !ok || (!includeHidden && !page.Visible) {
		return models.WikiPage{}, ErrNotFound
	}
	return page, nil
}

// GetWikiPageBySlug returns a page by its public slug.
func (s *Storage) GetWikiPageBySlug(slug string, includeHidden bool) (models.WikiPage, error) {
	slug = normalizeSlug(slug)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, page := range s.data.WikiPages {
		if page.Slug == slug {
			if !includeHidden && !page.Visible {
				return models.WikiPage{}, ErrNotFound
			}
			return page, nil
		}
	}
	return models.WikiPage{}, ErrNotFound
}

// ListWikiPages returns pages sorted by slug. Hidden pages are withheld unless
// includeHidden is set.
func (s *Storage) ListWikiPages(includeHidden bool) []models.WikiPage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pages := make([]models.WikiPage, 0, len(s.data.WikiPages))
	for _, page := range s.data.WikiPages {
		if !includeHidden && !page.Visible {
			continue
		}
		pages = append(pages, page)
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Slug < pages[j].Slug
	})
	return pages
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
