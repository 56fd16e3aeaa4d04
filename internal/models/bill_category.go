package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BillCategory groups bills. A nil UserID marks a global/default category;
// a set UserID marks a user-defined one and scopes update operations.
type BillCategory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"size:100;not null;index" json:"name"`
	IconURL   *string    `json:"icon_url"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *BillCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
