package models

import "time"

// GenderFilter is the partner gender requested for a random chat.
type GenderFilter string

const (
	FilterMale   GenderFilter = "M"
	FilterFemale GenderFilter = "F"
	FilterAny    GenderFilter = "any"
)

// Valid reports whether f is a known filter.
func (f GenderFilter) Valid() bool {
	return f == FilterMale || f == FilterFemale || f == FilterAny
}

// Accepts reports whether a partner of gender g satisfies the filter.
func (f GenderFilter) Accepts(g Gender) bool {
	return f == FilterAny || string(f) == string(g)
}

// RandomChatQueueEntry mirrors a waiting random-chat request.
// The in-memory queue is authoritative; this table only survives restarts.
type RandomChatQueueEntry struct {
	ChatID     int64        `gorm:"primaryKey;autoIncrement:false"`
	Filter     GenderFilter `gorm:"size:3;not null"`
	Gender     Gender       `gorm:"size:1;not null"`
	Language   string       `gorm:"size:8"`
	EnqueuedAt time.Time    `gorm:"not null;index"`
}

func (RandomChatQueueEntry) TableName() string { return "random_chat_queue" }
