package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xdido2/finance-tracker-backend/internal/blob"
	"github.com/xdido2/finance-tracker-backend/internal/models"
)

type BillInput struct {
	UserID     uuid.UUID
	CategoryID *uuid.UUID
	Title      string
	Amount     float64
	Currency   string
}

// BillPatch applies only the fields that are non-nil.
type BillPatch struct {
	Title      *string
	Amount     *float64
	Currency   *string
	CategoryID *uuid.UUID
}

type BillStore struct {
	db    *gorm.DB
	blobs blob.Store
}

func NewBillStore(db *gorm.DB, blobs blob.Store) *BillStore {
	return &BillStore{db: db, blobs: blobs}
}

// Create validates both foreign keys before persisting: a missing user or
// category surfaces as ErrInvalidReference, never as a raw constraint error.
func (s *BillStore) Create(ctx context.Context, in BillInput) (*models.Bill, error) {
	bill := models.Bill{
		UserID:     in.UserID,
		CategoryID: in.CategoryID,
		Title:      in.Title,
		Amount:     in.Amount,
		Currency:   in.Currency,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := exists(tx, &models.User{}, in.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("user %s: %w", in.UserID, ErrInvalidReference)
		}
		if err := validateCategory(tx, in.CategoryID); err != nil {
			return err
		}
		return tx.Create(&bill).Error
	})
	if err != nil {
		if errors.Is(err, ErrInvalidReference) {
			return nil, err
		}
		return nil, fmt.Errorf("create bill: %w", err)
	}
	return &bill, nil
}

// Get returns the bill unless it is absent or soft-deleted.
func (s *BillStore) Get(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	if err := s.db.WithContext(ctx).First(&bill, "id = ? AND is_deleted = ?", id, false).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bill: %w", err)
	}
	return &bill, nil
}

func (s *BillStore) List(ctx context.Context, skip, limit int) ([]models.Bill, error) {
	if limit <= 0 {
		limit = 10
	}
	var bills []models.Bill
	if err := s.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("created_at").
		Offset(skip).Limit(limit).
		Find(&bills).Error; err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

func (s *BillStore) Update(ctx context.Context, id uuid.UUID, patch BillPatch) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bill, "id = ? AND is_deleted = ?", id, false).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := validateCategory(tx, patch.CategoryID); err != nil {
			return err
		}
		updates := map[string]any{}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Amount != nil {
			updates["amount"] = *patch.Amount
		}
		if patch.Currency != nil {
			updates["currency"] = *patch.Currency
		}
		if patch.CategoryID != nil {
			updates["category_id"] = *patch.CategoryID
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = time.Now().UTC()
		if err := tx.Model(&bill).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&bill, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidReference) {
			return nil, err
		}
		return nil, fmt.Errorf("update bill: %w", err)
	}
	return &bill, nil
}

// SetImageKey records the storage key of an uploaded receipt image as a
// follow-up update after the transport uploads the file.
func (s *BillStore) SetImageKey(ctx context.Context, id uuid.UUID, key string) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&bill, "id = ? AND is_deleted = ?", id, false).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		updates := map[string]any{"bill_image_url": key, "updated_at": time.Now().UTC()}
		if err := tx.Model(&bill).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&bill, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set bill image: %w", err)
	}
	return &bill, nil
}

// Delete soft-deletes the bill and removes its stored image best-effort. The
// row is kept so the record stays addressable internally; a second call finds
// no visible bill and fails ErrNotFound.
func (s *BillStore) Delete(ctx context.Context, id uuid.UUID) error {
	var imageKey *string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bill models.Bill
		if err := tx.First(&bill, "id = ? AND is_deleted = ?", id, false).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		imageKey = bill.BillImageKey
		updates := map[string]any{"is_deleted": true, "updated_at": time.Now().UTC()}
		return tx.Model(&bill).Updates(updates).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete bill: %w", err)
	}
	if imageKey != nil && *imageKey != "" && s.blobs != nil {
		if err := s.blobs.Delete(ctx, *imageKey); err != nil {
			slog.Warn("failed to delete receipt image", "key", *imageKey, "error", err)
		}
	}
	return nil
}

func validateCategory(tx *gorm.DB, categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	ok, err := exists(tx, &models.BillCategory{}, *categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("category %s: %w", *categoryID, ErrInvalidReference)
	}
	return nil
}
