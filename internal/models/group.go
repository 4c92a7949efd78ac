package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Group is a community advertised by the bot. Membership lives on the transport side.
type Group struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"type:text"`
	PhotoID     string `gorm:"type:text"`
	InviteLink  string `gorm:"type:text;not null"`
	CreatedBy   int64
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// BeforeCreate generates a UUID for the group if the ID is not set yet.
func (g *Group) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	return
}
