package storage

import (
	"context"

	"matchgogo/backend/internal/models"
)

// GetSession returns the setup/edit progress for chatID or ErrNotFound.
func (s *Service) GetSession(ctx context.Context, chatID int64) (*models.SessionState, error) {
	var state models.SessionState
	if err := s.DB.WithContext(ctx).Where("chat_id = ?", chatID).First(&state).Error; err != nil {
		return nil, notFound(err)
	}
	return &state, nil
}

// SaveSession upserts the session row.
func (s *Service) SaveSession(ctx context.Context, state *models.SessionState) error {
	return s.DB.WithContext(ctx).Save(state).Error
}

func (s *Service) DeleteSession(ctx context.Context, chatID int64) error {
	return s.DB.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.SessionState{}).Error
}
