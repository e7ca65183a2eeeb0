package storage

import (
	"fmt"
	"sort"
	"strings"

	"seedvault/internal/models"
)

// CategoryParams carries fields for creating or replacing a category.
type CategoryParams struct {
	Name        string
	Description string
	ParentID    *string
}

// CreateCategory adds a category. The tree is one level deep, so a parent must
// itself be a root category.
func (s *Storage) CreateCategory(params CategoryParams) (models.Category, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.Category{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateCategoryParent(params.ParentID, ""); err != nil {
		return models.Category{}, err
	}
	for _, existing := range s.data.Categories {
		if strings.EqualFold(existing.Name, name) && equalParent(existing.ParentID, params.ParentID) {
			return models.Category{}, fmt.Errorf("%w: category name already used", ErrDuplicate)
		}
	}

	category := models.Category{
		ID:          generateID(),
		Name:        name,
		Description: strings.TrimSpace(params.Description),
		ParentID:    params.ParentID,
	}

	s.data.Categories[category.ID] = category
	if err := s.persist(); err != nil {
		delete(s.data.Categories, category.ID)
		return models.Category{}, err
	}
	return category, nil
}

// UpdateCategory replaces the mutable fields of a category.
func (s *Storage) UpdateCategory(id string, params CategoryParams) (models.Category, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.Category{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category, ok := s.data.Categories[id]
	if !ok {
		return models.Category{}, ErrNotFound
	}
	if err := s.validateCategoryParent(params.ParentID, id); err != nil {
		return models.Category{}, err
	}
	for otherID, existing := range s.data.Categories {
		if otherID != id && strings.EqualFold(existing.Name, name) && equalParent(existing.ParentID, params.ParentID) {
			return models.Category{}, fmt.Errorf("%w: category name already used", ErrDuplicate)
		}
	}

	category.Name = name
	category.Description = strings.TrimSpace(params.Description)
	category.ParentID = params.ParentID

	updatedData := cloneDataset(s.data)
	updatedData.Categories[id] = category
	if err := s.persistDataset(updatedData); err != nil {
		return models.Category{}, err
	}
	s.data = updatedData
	return category, nil
}

// DeleteCategory removes a category that no torrent or child category still
// references.
func (s *Storage) DeleteCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Categories[id]; !ok {
		return ErrNotFound
	}
	for _, torrent := range s.data.Torrents {
		if torrent.CategoryID == id {
			return fmt.Errorf("%w: category still has torrents", ErrInvalidState)
		}
	}
	for _, other := range s.data.Categories {
		if other.ParentID != nil && *other.ParentID == id {
			return fmt.Errorf("%w: category still has children", ErrInvalidState)
		}
	}

	updatedData := cloneDataset(s.data)
	delete(updatedData.Categories, id)
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}
	s.data = updatedData
	return nil
}

// GetCategory returns the category with the given id.
func (s *Storage) GetCategory(id string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.data.Categories[id]
	if !ok {
		return models.Category{}, ErrNotFound
	}
	return category, nil
}

// ListCategories returns all categories sorted parents-first, then by name.
func (s *Storage) ListCategories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]models.Category, 0, len(s.data.Categories))
	for _, category := range s.data.Categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		iRoot := categories[i].ParentID == nil
		jRoot := categories[j].ParentID == nil
		if iRoot != jRoot {
			return iRoot
		}
		return strings.ToLower(categories[i].Name) < strings.ToLower(categories[j].Name)
	})
	return categories
}

func (s *Storage) validateCategoryParent(parentID *string, selfID string) error {
	if parentID == nil {
		return nil
	}
	if selfID != "" && *parentID == selfID {
		return fmt.Errorf("%w: category cannot be its own parent", ErrValidation)
	}
	parent, ok := s.data.Categories[*parentID]
	if !ok {
		return fmt.Errorf("%w: parent category %s", ErrInvalidReference, *parentID)
	}
	if parent.ParentID != nil {
		return fmt.Errorf("%w: categories nest one level deep", ErrValidation)
	}
	return nil
}

func equalParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
