package ranking

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
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

// Candidate is one ranked profile.
type Candidate struct {
	User  models.User `json:"user"`
	Score float64     `json:"score"`
}

type Engine struct {
	store    storage.Storage
	profiles ProfileReader
	cache    cache.Cache
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

func NewEngine(store storage.Storage, profiles ProfileReader, c cache.Cache, opts Options, log *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		profiles: profiles,
		cache:    c,
		opts:     opts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Rank returns one page of candidates for viewerID, best first. An unknown
// viewer gets an empty page.
//
// Pipeline:
//   - the storage base set excludes the viewer, banned and already seen
//     profiles, and applies the intent and coordinate filters;
//   - the page is cut before scoring;
//   - candidates under config.MinScore are dropped;
//   - ties go to the more recently active profile, then the smaller chat id.
func (e *Engine) Rank(ctx context.Context, viewerID int64, offset, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = config.DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	key := cache.MatchesKey(viewerID, offset, limit)
	var cached []Candidate
	if ok, err := cache.GetJSON(ctx, e.cache, key, &cached); err == nil && ok {
		// Bans take effect at once, so a cached page is re-checked.
		fresh, err := e.dropBanned(ctx, cached)
		if err == nil {
			return fresh, nil
		}
		e.log.Warn("recheck bans on cached page", "viewer", viewerID, "err", err)
	}

	viewer, err := e.profiles.Get(ctx, viewerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	base, err := storage.RetryRead(func() ([]models.User, error) {
		return e.store.CandidateBase(ctx, viewer, offset, limit)
	})
	if err != nil {
		return nil, err
	}

	now := e.now()
	out := make([]Candidate, 0, len(base))
	for i := range base {
		score := Score(viewer, &base[i], now, e.opts)
		if score < config.MinScore {
			continue
		}
		out = append(out, Candidate{User: base[i], Score: score})
	}
	SortCandidates(out)

	if err := cache.SetJSON(ctx, e.cache, key, out); err != nil {
		e.log.Warn("cache matches", "viewer", viewerID, "err", err)
	}
	return out, nil
}

func (e *Engine) dropBanned(ctx context.Context, cs []Candidate) ([]Candidate, error) {
	if len(cs) == 0 {
		return cs, nil
	}
	ids := make([]int64, len(cs))
	for i, c := range cs {
		ids[i] = c.User.ChatID
	}
	banned, err := storage.RetryRead(func() (map[int64]bool, error) {
		return e.store.BannedAmong(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	if len(banned) == 0 {
		return cs, nil
	}
	return slices.DeleteFunc(cs, func(c Candidate) bool { return banned[c.User.ChatID] }), nil
}

// SortCandidates orders by score descending, then last activity descending,
// then chat id ascending.
func SortCandidates(cs []Candidate) {
	slices.SortFunc(cs, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := b.User.LastActive.Compare(a.User.LastActive); c != 0 {
			return c
		}
		return cmp.Compare(a.User.ChatID, b.User.ChatID)
	})
}
