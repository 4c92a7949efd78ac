package storage

import (
	"context"

	"matchgogo/backend/internal/models"
)

// SaveQueueEntry mirrors a waiting random-chat request.
func (s *Service) SaveQueueEntry(ctx context.Context, entry *models.RandomChatQueueEntry) error {
	return s.DB.WithContext(ctx).Save(entry).Error
}

func (s *Service) DeleteQueueEntry(ctx context.Context, chatID int64) error {
	return s.DB.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.RandomChatQueueEntry{}).Error
}

// LoadQueueEntries returns the mirrored queue, oldest first.
func (s *Service) LoadQueueEntries(ctx context.Context) ([]models.RandomChatQueueEntry, error) {
	var entries []models.RandomChatQueueEntry
	err := s.DB.WithContext(ctx).Order("enqueued_at ASC").Find(&entries).Error
	return entries, err
}
