// Package likes records likes and skips and detects mutual matches.
package likes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"matchgogo/backend/internal/cache"
	"matchgogo/backend/internal/config"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/storage"
)

// ProfileReader loads a single profile, typically through the cache.
type ProfileReader interface {
	Get(ctx context.Context, chatID int64) (*models.User, error)
}

// Notifier delivers match notifications.
type Notifier interface {
	// NotifyMatch tells recipient that partner liked them back.
	NotifyMatch(ctx context.Context, recipient, partner *models.User)
}

// Inbound is one received like with the sender's profile.
type Inbound struct {
	From models.User
	Note string
	At   time.Time
}

type Service struct {
	store    storage.Storage
	profiles ProfileReader
	cache    cache.Cache
	notifier Notifier
	log      *slog.Logger
}

func NewService(store storage.Storage, profiles ProfileReader, c cache.Cache, n Notifier, log *slog.Logger) *Service {
	return &Service{store: store, profiles: profiles, cache: c, notifier: n, log: log}
}

// Like records likerID -> likedID. When the like completes a match for the
// first time both parties are notified once.
func (s *Service) Like(ctx context.Context, likerID, likedID int64, note string) (storage.LikeResult, error) {
	res, err := s.store.Like(ctx, likerID, likedID, note)
	if err != nil {
		return res, err
	}
	s.invalidate(ctx, likerID)

	if res.Created && res.Mutual {
		s.notifyPair(ctx, likerID, likedID)
	}
	return res, nil
}

// Skip hides profileID from viewerID's future rankings.
func (s *Service) Skip(ctx context.Context, viewerID, profileID int64) error {
	if err := s.store.MarkSeen(ctx, viewerID, profileID, false); err != nil {
		return err
	}
	s.invalidate(ctx, viewerID)
	return nil
}

// Inbound returns the latest likes received by chatID with the senders'
// profiles. Likes from deleted profiles are left out.
func (s *Service) Inbound(ctx context.Context, chatID int64) ([]Inbound, error) {
	rows, err := storage.RetryRead(func() ([]models.Like, error) {
		return s.store.InboundLikes(ctx, chatID, config.InboundLikesLimit)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(rows))
	for i, l := range rows {
		ids[i] = l.LikerID
	}
	users, err := storage.RetryRead(func() ([]models.User, error) {
		return s.store.GetUsersByIDs(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]models.User, len(users))
	for _, u := range users {
		byID[u.ChatID] = u
	}

	out := make([]Inbound, 0, len(rows))
	for _, l := range rows {
		u, ok := byID[l.LikerID]
		if !ok {
			continue
		}
		out = append(out, Inbound{From: u, Note: l.Note, At: l.CreatedAt})
	}
	return out, nil
}

func (s *Service) notifyPair(ctx context.Context, a, b int64) {
	ua, errA := s.profiles.Get(ctx, a)
	ub, errB := s.profiles.Get(ctx, b)
	if err := errors.Join(errA, errB); err != nil {
		s.log.Error("load matched profiles", "a", a, "b", b, "err", err)
		return
	}
	s.log.Info("mutual match", "a", a, "b", b)
	s.notifier.NotifyMatch(ctx, ua, ub)
	s.notifier.NotifyMatch(ctx, ub, ua)
}

func (s *Service) invalidate(ctx context.Context, viewerID int64) {
	if err := s.cache.DeletePrefix(ctx, cache.MatchesPrefix(viewerID)); err != nil {
		s.log.Warn("invalidate matches", "viewer", viewerID, "err", err)
	}
}
