package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionState is the persisted progress of a profile setup or edit.
// Data holds the JSON-encoded partial profile for the current step.
type SessionState struct {
	ChatID int64 `gorm:"primaryKey;autoIncrement:false"`
	// Mode is "setup" for the linear creation flow or "edit" for a single field.
	Mode string `gorm:"size:16;not null;default:setup"`
	// Step is the label of the step awaiting input.
	Step      string         `gorm:"size:32;not null"`
	Data      datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (SessionState) TableName() string { return "user_states" }
