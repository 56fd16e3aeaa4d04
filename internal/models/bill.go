package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bill is a user expense or recurring payment. Rows are soft-deleted: reads
// and listings must filter on is_deleted, the row itself stays for audit.
type Bill struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	CategoryID   *uuid.UUID `gorm:"type:uuid;index" json:"category_id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Amount       float64    `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Currency     string     `gorm:"size:3;not null" json:"currency"`
	// BillImageKey is the object-storage key of the receipt image, never a
	// public URL. Handlers exchange it for a presigned URL at read time.
	BillImageKey *string   `gorm:"column:bill_image_url" json:"bill_image_url,omitempty"`
	IsDeleted    bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (b *Bill) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
