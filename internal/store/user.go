package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xdido2/finance-tracker-backend/internal/auth"
	"github.com/xdido2/finance-tracker-backend/internal/blob"
	"github.com/xdido2/finance-tracker-backend/internal/models"
)

type UserInput struct {
	Username string
	Email    *string
	Password string
}

// UserPatch applies only the fields that are non-nil. A present Password is
// re-hashed before storing.
type UserPatch struct {
	Username *string
	Email    *string
	Password *string
}

type UserStore struct {
	db    *gorm.DB
	blobs blob.Store
}

// NewUserStore builds the user DAL. blobs may be nil when image storage is
// not configured; blob cleanup is then skipped.
func NewUserStore(db *gorm.DB, blobs blob.Store) *UserStore {
	return &UserStore{db: db, blobs: blobs}
}

// Create hashes the password and persists the user. Duplicate username or
// email surfaces as ErrConflict.
func (s *UserStore) Create(ctx context.Context, in UserInput) (*models.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("create user %q: %w", in.Username, ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// GetByUsername is used by the login flow.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

func (s *UserStore) List(ctx context.Context, skip, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 10
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at").Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserStore) Update(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		updates := map[string]any{}
		if patch.Username != nil {
			updates["username"] = *patch.Username
		}
		if patch.Email != nil {
			updates["email"] = *patch.Email
		}
		if patch.Password != nil {
			hash, err := auth.HashPassword(*patch.Password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			updates["password_hash"] = hash
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = time.Now().UTC()
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			if isDuplicate(err) {
				return ErrConflict
			}
			return err
		}
		return tx.First(&user, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

// Delete hard-deletes the user together with all owned bills. Receipt images
// of those bills are removed from blob storage best-effort: a failed blob
// delete is logged and never aborts the deletion, an orphaned object is an
// acceptable leak.
func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		var keys []string
		if err := tx.Model(&models.Bill{}).
			Where("user_id = ? AND bill_image_url IS NOT NULL", id).
			Pluck("bill_image_url", &keys).Error; err != nil {
			return err
		}
		for _, key := range keys {
			if key == "" || s.blobs == nil {
				continue
			}
			if err := s.blobs.Delete(ctx, key); err != nil {
				slog.Warn("failed to delete receipt image", "key", key, "error", err)
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Bill{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.BillCategory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// exists is the shared FK existence check used by the bill and category stores.
func exists[T any](tx *gorm.DB, model *T, id uuid.UUID) (bool, error) {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
