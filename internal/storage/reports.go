package storage

import (
	"context"
	"time"

	"matchgogo/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FileReport stores a report and, when the total crosses policy.BanThreshold,
// bans the reported user in the same transaction.
//
// Behavior:
//   - If the reporter already reported the same user within policy.Cooldown,
//     nothing is written and Stored = false.
//   - Before/After are the totals against the reported user, so callers can
//     detect threshold crossings exactly once.
func (s *Service) FileReport(ctx context.Context, report *models.Report, policy ReportPolicy) (ReportResult, error) {
	var res ReportResult
	if report.ReporterID == report.ReportedID {
		return res, ErrSelfInteraction
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUsers(tx, report.ReportedID); err != nil {
			return err
		}

		var recent int64
		if err := tx.Model(&models.Report{}).
			Where("reporter_id = ? AND reported_id = ? AND created_at > ?",
				report.ReporterID, report.ReportedID, report.CreatedAt.Add(-policy.Cooldown)).
			Count(&recent).Error; err != nil {
			return err
		}
		if recent > 0 {
			return nil
		}

		if err := tx.Model(&models.Report{}).
			Where("reported_id = ?", report.ReportedID).
			Count(&res.Before).Error; err != nil {
			return err
		}
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		res.Stored = true
		res.After = res.Before + 1

		if policy.BanThreshold > 0 && res.Before < policy.BanThreshold && res.After >= policy.BanThreshold {
			banned, err := ban(tx, report.ReportedID, "reports threshold")
			if err != nil {
				return err
			}
			res.Banned = banned
		}
		return nil
	})
	return res, err
}

func (s *Service) CountReportsAgainst(ctx context.Context, chatID int64) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Report{}).Where("reported_id = ?", chatID).Count(&n).Error
	return n, err
}

// ListReports returns reports filed since the given time, newest first.
func (s *Service) ListReports(ctx context.Context, since time.Time, limit int) ([]models.Report, error) {
	var reports []models.Report
	err := s.DB.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

func (s *Service) IsBanned(ctx context.Context, chatID int64) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.BannedUser{}).Where("chat_id = ?", chatID).Count(&n).Error
	return n > 0, err
}

// BannedAmong returns the subset of ids that are banned.
func (s *Service) BannedAmong(ctx context.Context, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool)
	if len(ids) == 0 {
		return out, nil
	}
	var banned []int64
	err := s.DB.WithContext(ctx).Model(&models.BannedUser{}).
		Where("chat_id IN ?", ids).
		Pluck("chat_id", &banned).Error
	if err != nil {
		return nil, err
	}
	for _, id := range banned {
		out[id] = true
	}
	return out, nil
}

// Ban is idempotent; it reports whether this call inserted the row.
func (s *Service) Ban(ctx context.Context, chatID int64, reason string) (bool, error) {
	return ban(s.DB.WithContext(ctx), chatID, reason)
}

func ban(tx *gorm.DB, chatID int64, reason string) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.BannedUser{ChatID: chatID, Reason: reason})
	return res.RowsAffected == 1, res.Error
}

func (s *Service) Unban(ctx context.Context, chatID int64) error {
	return s.DB.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.BannedUser{}).Error
}

func (s *Service) ListBanned(ctx context.Context) ([]models.BannedUser, error) {
	var banned []models.BannedUser
	err := s.DB.WithContext(ctx).Order("banned_at DESC").Find(&banned).Error
	return banned, err
}
