package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base is the base model for all entities.
// ID is a UUID string so records keep the same identity across the SQL and Mongo stores.
// Records are hard-deleted; retention is the only deletion path.
type Base struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" gorm:"index"                    bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"                                 bson:"updatedAt"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	b.EnsureID()
	return nil
}

// EnsureID assigns a fresh UUID when the record has none yet.
func (b *Base) EnsureID() {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
}
