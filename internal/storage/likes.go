package storage

import (
	"context"
	"time"

	"matchgogo/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Like records likerID -> likedID, marks the profile as seen and checks for
// the reverse edge, all in one transaction.
//
// Behavior:
//   - A repeated call leaves the row untouched and reports Created = false.
//   - Mutual is reported whether or not this call created the edge; callers
//     fire match notifications only when Created && Mutual.
func (s *Service) Like(ctx context.Context, likerID, likedID int64, note string) (LikeResult, error) {
	var res LikeResult
	if likerID == likedID {
		return res, ErrSelfInteraction
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUsers(tx, likerID, likedID); err != nil {
			return err
		}

		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Like{LikerID: likerID, LikedID: likedID, Note: note})
		if insert.Error != nil {
			return insert.Error
		}
		res.Created = insert.RowsAffected == 1

		if err := markSeen(tx, likerID, likedID, true); err != nil {
			return err
		}

		var reverse int64
		if err := tx.Model(&models.Like{}).
			Where("liker_id = ? AND liked_id = ?", likedID, likerID).
			Count(&reverse).Error; err != nil {
			return err
		}
		res.Mutual = reverse > 0
		return nil
	})
	return res, err
}

// MarkSeen upserts the seen edge, refreshing seen_at and liked.
func (s *Service) MarkSeen(ctx context.Context, viewerID, profileID int64, liked bool) error {
	if viewerID == profileID {
		return ErrSelfInteraction
	}
	return markSeen(s.DB.WithContext(ctx), viewerID, profileID, liked)
}

func markSeen(tx *gorm.DB, viewerID, profileID int64, liked bool) error {
	seen := models.SeenProfile{
		ViewerID:  viewerID,
		ProfileID: profileID,
		Liked:     liked,
		SeenAt:    time.Now().UTC(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "seen_at"}),
	}).Create(&seen).Error
}

// InboundLikes returns the most recent likes received by chatID, newest first.
func (s *Service) InboundLikes(ctx context.Context, chatID int64, limit int) ([]models.Like, error) {
	var likes []models.Like
	err := s.DB.WithContext(ctx).
		Where("liked_id = ?", chatID).
		Order("created_at DESC, liker_id DESC").
		Limit(limit).
		Find(&likes).Error
	return likes, err
}
