package storage

import (
	"context"
	"time"

	"matchgogo/backend/internal/models"

	"gorm.io/gorm/clause"
)

// GetUser returns the profile for chatID or ErrNotFound.
func (s *Service) GetUser(ctx context.Context, chatID int64) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("chat_id = ?", chatID).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetUsersByIDs returns the profiles that exist among ids, in no particular order.
func (s *Service) GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := s.DB.WithContext(ctx).Where("chat_id IN ?", ids).Find(&users).Error
	return users, err
}

// SaveUser inserts a completed profile. Re-running setup overwrites the
// profile fields but keeps the original created_at.
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"handle", "name", "age", "gender", "location", "lat", "lon",
				"photo_id", "interests", "intent", "language", "last_active",
			}),
		}).
		Create(user).Error
}

// UpdateUser writes every column of an existing profile.
func (s *Service) UpdateUser(ctx context.Context, user *models.User) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("chat_id = ?", user.ChatID).
		Select("handle", "name", "age", "gender", "location", "lat", "lon",
			"photo_id", "interests", "intent", "language", "last_active").
		Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastActive bumps last_active. Unknown chat ids are ignored.
func (s *Service) TouchLastActive(ctx context.Context, chatID int64, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).
		Where("chat_id = ?", chatID).
		Update("last_active", at).Error
}

// CandidateBase returns one page of ranking candidates for viewer: everyone
// except the viewer, banned users and profiles the viewer has already seen.
// Dating viewers only get opposite-gender dating profiles; viewers with
// coordinates only get candidates with coordinates.
//
// Pages are cut in profile creation order, which activity never changes, so
// paging stays stable while the viewer browses. The final order is the
// ranking's.
func (s *Service) CandidateBase(ctx context.Context, viewer *models.User, offset, limit int) ([]models.User, error) {
	if offset < 0 || limit <= 0 {
		return nil, ErrInvalidPageRange
	}

	query := s.DB.WithContext(ctx).
		Table("users u").
		Where("u.chat_id <> ?", viewer.ChatID).
		Where(`NOT EXISTS (SELECT 1 FROM banned_users b WHERE b.chat_id = u.chat_id)`).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM seen_profiles sp
				WHERE sp.viewer_id = ?
				  AND sp.profile_id = u.chat_id
			)`, viewer.ChatID)

	if viewer.Intent == models.IntentDating {
		query = query.Where("u.gender = ? AND u.intent = ?", viewer.Gender.Opposite(), models.IntentDating)
	}
	if viewer.HasCoords() {
		query = query.Where("u.lat IS NOT NULL AND u.lon IS NOT NULL")
	}

	var users []models.User
	err := query.
		Order("u.created_at ASC, u.chat_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, err
}
