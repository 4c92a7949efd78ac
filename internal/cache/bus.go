package cache

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const invalidationChannel = "matchgogo:cache:invalidate"

type invalidation struct {
	Origin string   `json:"origin"`
	Keys   []string `json:"keys,omitempty"`
	Prefix string   `json:"prefix,omitempty"`
}

// Bus wraps a process-local cache and broadcasts every invalidation over
// Redis pub/sub so that other instances drop the same keys.
type Bus struct {
	Cache
	rdb    *redis.Client
	origin string
	log    *slog.Logger
}

func NewBus(local Cache, rdb *redis.Client, log *slog.Logger) *Bus {
	return &Bus{
		Cache:  local,
		rdb:    rdb,
		origin: uuid.NewString(),
		log:    log,
	}
}

func (b *Bus) Delete(ctx context.Context, keys ...string) error {
	if err := b.Cache.Delete(ctx, keys...); err != nil {
		return err
	}
	b.publish(ctx, invalidation{Origin: b.origin, Keys: keys})
	return nil
}

func (b *Bus) DeletePrefix(ctx context.Context, prefix string) error {
	if err := b.Cache.DeletePrefix(ctx, prefix); err != nil {
		return err
	}
	b.publish(ctx, invalidation{Origin: b.origin, Prefix: prefix})
	return nil
}

// A failed publish only widens the staleness window of other instances to
// the TTL, so it is logged and swallowed.
func (b *Bus) publish(ctx context.Context, msg invalidation) {
	raw, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("encode invalidation", "err", err)
		return
	}
	if err := b.rdb.Publish(ctx, invalidationChannel, raw).Err(); err != nil {
		b.log.Warn("publish invalidation", "err", err)
	}
}

// Run applies invalidations published by other instances until ctx is done.
// ready, if non-nil, is closed once the subscription is confirmed.
func (b *Bus) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := b.rdb.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var inv invalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				b.log.Warn("bad invalidation payload", "err", err)
				continue
			}
			if inv.Origin == b.origin {
				continue
			}
			if len(inv.Keys) > 0 {
				_ = b.Cache.Delete(ctx, inv.Keys...)
			}
			if inv.Prefix != "" {
				_ = b.Cache.DeletePrefix(ctx, inv.Prefix)
			}
		}
	}
}
