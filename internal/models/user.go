package models

import "time"

// Gender is the self-declared gender of a profile.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Valid reports whether g is one of the supported genders.
func (g Gender) Valid() bool { return g == GenderMale || g == GenderFemale }

// Opposite returns the other gender.
func (g Gender) Opposite() Gender {
	if g == GenderMale {
		return GenderFemale
	}
	return GenderMale
}

// Intent is what a user is looking for.
type Intent int

const (
	IntentDating  Intent = 1
	IntentFriends Intent = 2
)

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool { return i == IntentDating || i == IntentFriends }

// User is a completed profile. It is keyed by the transport chat id.
type User struct {
	// ChatID is the opaque transport identifier of the user.
	ChatID int64 `gorm:"primaryKey;autoIncrement:false" json:"chat_id"`
	// Handle is the optional transport username.
	Handle string `gorm:"size:64" json:"handle,omitempty"`
	// Name is the display name shown on the profile card.
	Name   string `gorm:"size:128;not null" json:"name"`
	Age    int    `gorm:"not null" json:"age"`
	Gender Gender `gorm:"size:1;not null;index" json:"gender"`
	// Location is free-form display text ("not shared" when skipped).
	Location string   `gorm:"type:text" json:"location"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	// PhotoID is an opaque transport media identifier.
	PhotoID string `gorm:"type:text" json:"photo_id"`
	// Interests are comma-separated tokens, stored verbatim.
	Interests string `gorm:"type:text" json:"interests"`
	Intent    Intent `gorm:"not null;default:1;index" json:"intent"`
	// Language is the transport language code used for notifications.
	Language   string    `gorm:"size:8" json:"language,omitempty"`
	LastActive time.Time `gorm:"index" json:"last_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HasCoords reports whether both coordinates are set.
func (u *User) HasCoords() bool { return u.Lat != nil && u.Lon != nil }
