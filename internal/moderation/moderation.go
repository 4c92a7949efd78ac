// Package moderation handles user reports and the warnings and bans they
// trigger.
package moderation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"matchgogo/backend/internal/config"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/storage"
)

var (
	ErrRateLimited = errors.New("already reported this user recently")
	ErrUnknownTag  = errors.New("unknown violation tag")
)

// Notifier delivers moderation notices to the reported user.
type Notifier interface {
	NotifyWarning(ctx context.Context, chatID int64)
	NotifyBan(ctx context.Context, chatID int64)
}

// Outcome describes what a stored report triggered.
type Outcome struct {
	Total  int64
	Warned bool
	Banned bool
}

// Service handles the business logic for reports.
type Service struct {
	store    storage.Storage
	notifier Notifier
	log      *slog.Logger
}

// NewService creates a new moderation service.
func NewService(store storage.Storage, n Notifier, log *slog.Logger) *Service {
	return &Service{store: store, notifier: n, log: log}
}

// KnownTag reports whether tag is one of config.ViolationTags.
func KnownTag(tag string) bool {
	return slices.Contains(config.ViolationTags, tag)
}

// Report files a report from reporter against reported.
//
// Behavior:
//   - A second report against the same user within config.ReportCooldown
//     returns ErrRateLimited and stores nothing.
//   - The warning fires when the total crosses config.WarnThreshold and the
//     ban when it crosses config.BanThreshold, each exactly once.
func (s *Service) Report(ctx context.Context, reporter, reported int64, tag string) (Outcome, error) {
	if !KnownTag(tag) {
		return Outcome{}, ErrUnknownTag
	}

	res, err := s.store.FileReport(ctx, &models.Report{
		ReporterID: reporter,
		ReportedID: reported,
		Tag:        tag,
	}, storage.ReportPolicy{
		Cooldown:     config.ReportCooldown,
		BanThreshold: config.BanThreshold,
	})
	if err != nil {
		return Outcome{}, err
	}
	if !res.Stored {
		return Outcome{}, ErrRateLimited
	}

	out := Outcome{
		Total:  res.After,
		Warned: res.Before < config.WarnThreshold && res.After >= config.WarnThreshold,
		Banned: res.Banned,
	}
	s.log.Info("report stored", "reporter", reporter, "reported", reported, "tag", tag, "total", out.Total)

	if out.Warned {
		s.notifier.NotifyWarning(ctx, reported)
	}
	if out.Banned {
		s.log.Warn("user banned by reports", "chat_id", reported, "total", out.Total)
		s.notifier.NotifyBan(ctx, reported)
	}
	return out, nil
}

func (s *Service) IsBanned(ctx context.Context, chatID int64) (bool, error) {
	return storage.RetryRead(func() (bool, error) {
		return s.store.IsBanned(ctx, chatID)
	})
}

// Ban bans chatID manually. It reports whether the user was not banned before.
func (s *Service) Ban(ctx context.Context, chatID int64, reason string) (bool, error) {
	inserted, err := s.store.Ban(ctx, chatID, reason)
	if err != nil {
		return false, err
	}
	if inserted {
		s.log.Warn("user banned", "chat_id", chatID, "reason", reason)
		s.notifier.NotifyBan(ctx, chatID)
	}
	return inserted, nil
}

func (s *Service) Unban(ctx context.Context, chatID int64) error {
	if err := s.store.Unban(ctx, chatID); err != nil {
		return err
	}
	s.log.Info("user unbanned", "chat_id", chatID)
	return nil
}

func (s *Service) Banned(ctx context.Context) ([]models.BannedUser, error) {
	return s.store.ListBanned(ctx)
}

// Recent returns reports filed within the last window.
func (s *Service) Recent(ctx context.Context, window time.Duration, limit int) ([]models.Report, error) {
	return s.store.ListReports(ctx, time.Now().UTC().Add(-window), limit)
}
