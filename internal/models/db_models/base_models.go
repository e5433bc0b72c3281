package db_models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	b.Stamp(time.Now().UTC())
	return nil
}

// Stamp fills the id and creation time when the caller left them empty.
// Rows sent over REST go through it since gorm hooks never run there.
func (b *BaseModel) Stamp(now time.Time) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
}
