package storage

import (
	"context"

	"matchgogo/backend/internal/models"
)

func (s *Service) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&groups).Error
	return groups, err
}

func (s *Service) CreateGroup(ctx context.Context, group *models.Group) error {
	return s.DB.WithContext(ctx).Create(group).Error
}

func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Group{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
