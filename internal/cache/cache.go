// Package cache is the read-through cache used for hot profile and ranking
// reads. Entries live at most TTL; writers invalidate the keys they affect.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

type Cache interface {
	// Get returns the value and true on a hit. Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	// Sweep drops expired entries and reports how many were removed.
	Sweep(ctx context.Context) int
}

// UserKey is the cache key of a single profile.
func UserKey(chatID int64) string { return fmt.Sprintf("user_%d", chatID) }

// MatchesPrefix covers every cached ranking page of a viewer.
func MatchesPrefix(viewerID int64) string { return fmt.Sprintf("matches_%d_", viewerID) }

// MatchesKey is the cache key of one ranking page.
func MatchesKey(viewerID int64, offset, limit int) string {
	return fmt.Sprintf("%s%d_%d", MatchesPrefix(viewerID), offset, limit)
}

// GetJSON decodes a cached JSON value into dst. A value that no longer
// decodes is treated as a miss.
func GetJSON(ctx context.Context, c Cache, key string, dst any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, nil
	}
	return true, nil
}

func SetJSON(ctx context.Context, c Cache, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw)
}

// RunSweeper calls c.Sweep every interval until ctx is done.
func RunSweeper(ctx context.Context, c Cache, interval time.Duration, log *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Sweep(ctx); n > 0 {
				log.Debug("cache sweep", "evicted", n)
			}
		}
	}
}
