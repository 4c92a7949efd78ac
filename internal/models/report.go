package models

import "time"

// Report is a complaint filed by one user against another.
type Report struct {
	ID         uint      `gorm:"primaryKey"`
	ReporterID int64     `gorm:"not null;index:idx_reports_pair,priority:1"`
	ReportedID int64     `gorm:"not null;index:idx_reports_pair,priority:2;index"`
	Tag        string    `gorm:"size:32;not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// BannedUser marks a chat id as banned.
type BannedUser struct {
	ChatID   int64     `gorm:"primaryKey;autoIncrement:false"`
	Reason   string    `gorm:"type:text"`
	BannedAt time.Time `gorm:"autoCreateTime"`
}
