package models

import "time"

// Like is a directed edge liker -> liked.
//
// Composite PK (LikerID, LikedID) keeps at most one row per ordered pair.
// idx_likes_liked_created serves "who liked me" listings.
type Like struct {
	LikerID   int64     `gorm:"primaryKey;autoIncrement:false"`
	LikedID   int64     `gorm:"primaryKey;autoIncrement:false;index:idx_likes_liked_created,priority:1"`
	Note      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_likes_liked_created,priority:2,sort:desc"`
}

// SeenProfile records that a viewer has been shown a profile.
// A second write for the same pair refreshes SeenAt and Liked.
type SeenProfile struct {
	ViewerID  int64     `gorm:"primaryKey;autoIncrement:false"`
	ProfileID int64     `gorm:"primaryKey;autoIncrement:false"`
	Liked     bool      `gorm:"not null;default:false"`
	SeenAt    time.Time `gorm:"not null"`
}
