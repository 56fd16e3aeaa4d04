package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xdido2/finance-tracker-backend/internal/models"
)

type CategoryInput struct {
	Name    string
	IconURL *string
	UserID  *uuid.UUID
}

// CategoryPatch applies only the fields that are non-nil.
type CategoryPatch struct {
	Name    *string
	IconURL *string
}

type CategoryStore struct {
	db *gorm.DB
}

func NewCategoryStore(db *gorm.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

// Create persists a category. The acting user id, when given, wins over the
// owner in the input; a nil owner creates a global/default category. A set
// owner must reference an existing user.
func (s *CategoryStore) Create(ctx context.Context, in CategoryInput, actingUserID *uuid.UUID) (*models.BillCategory, error) {
	owner := in.UserID
	if actingUserID != nil {
		owner = actingUserID
	}
	category := models.BillCategory{Name: in.Name, IconURL: in.IconURL, UserID: owner}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if owner != nil {
			ok, err := exists(tx, &models.User{}, *owner)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("user %s: %w", *owner, ErrInvalidReference)
			}
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvalidReference) {
			return nil, err
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

func (s *CategoryStore) Get(ctx context.Context, id uuid.UUID) (*models.BillCategory, error) {
	var category models.BillCategory
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

// List returns the categories owned by userID. The filter is strict equality,
// so global categories (nil owner) are never included.
func (s *CategoryStore) List(ctx context.Context, userID uuid.UUID, skip, limit int) ([]models.BillCategory, error) {
	if limit <= 0 {
		limit = 10
	}
	var categories []models.BillCategory
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Offset(skip).Limit(limit).
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Update only succeeds when the category is owned by actingUserID. An
// ownership mismatch is indistinguishable from absence so existence of other
// users' categories is not leaked.
func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, patch CategoryPatch, actingUserID uuid.UUID) (*models.BillCategory, error) {
	var category models.BillCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, "id = ? AND user_id = ?", id, actingUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		updates := map[string]any{}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.IconURL != nil {
			updates["icon_url"] = *patch.IconURL
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = time.Now().UTC()
		if err := tx.Model(&category).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&category, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &category, nil
}

// Delete hard-deletes by id without an ownership check. Update is owner
// scoped but delete deliberately is not, preserving the behavior of the
// system this replaces; see DESIGN.md before tightening it.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.BillCategory
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
