package chathub

import (
	"context"
	"time"

	"matchgogo/backend/internal/models"
)

// Sweep expires stale waiters and idle pairs as of now.
func (h *Hub) Sweep(ctx context.Context, now time.Time) (expired, idle int) {
	h.mu.Lock()
	var stale []int64
	kept := h.queue[:0]
	for _, w := range h.queue {
		if h.opts.QueueStaleness > 0 && now.Sub(w.enqueuedAt) >= h.opts.QueueStaleness {
			stale = append(stale, w.chatID)
			h.mirrorLocked(mirrorOp{remove: w.chatID})
			continue
		}
		kept = append(kept, w)
	}
	for i := len(kept); i < len(h.queue); i++ {
		h.queue[i] = nil
	}
	h.queue = kept

	if h.opts.PairIdleTimeout > 0 {
		seen := make(map[*pair]bool)
		for _, p := range h.pairs {
			if seen[p] {
				continue
			}
			seen[p] = true
			if now.Sub(p.lastActivity) >= h.opts.PairIdleTimeout {
				h.endLocked(p, map[int64]NoticeKind{p.a: NoticeIdleTimeout, p.b: NoticeIdleTimeout})
				idle++
			}
		}
	}
	h.mu.Unlock()

	for _, id := range stale {
		h.courier.Notify(ctx, id, Notice{Kind: NoticeQueueExpired})
	}
	if len(stale) > 0 || idle > 0 {
		h.log.Info("random chat sweep", "expired_waiters", len(stale), "idle_pairs", idle)
	}
	return len(stale), idle
}

// Restore loads mirrored waiters at startup. Entries older than the
// staleness window are dropped from the mirror instead.
func (h *Hub) Restore(ctx context.Context, entries []models.RandomChatQueueEntry) int {
	now := h.now()
	restored := 0

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range entries {
		if h.opts.QueueStaleness > 0 && now.Sub(e.EnqueuedAt) >= h.opts.QueueStaleness {
			h.mirrorLocked(mirrorOp{remove: e.ChatID})
			continue
		}
		if _, paired := h.pairs[e.ChatID]; paired || h.indexOfLocked(e.ChatID) >= 0 {
			continue
		}
		if !e.Filter.Valid() || !e.Gender.Valid() {
			h.mirrorLocked(mirrorOp{remove: e.ChatID})
			continue
		}
		h.queue = append(h.queue, &waiter{
			chatID:     e.ChatID,
			filter:     e.Filter,
			gender:     e.Gender,
			language:   e.Language,
			enqueuedAt: e.EnqueuedAt,
		})
		restored++
	}
	h.log.Info("random chat queue restored", "restored", restored, "loaded", len(entries))
	return restored
}

// Run writes queue mirror operations in order and sweeps on a timer until
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	interval := h.opts.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.flushMirror()
			return nil
		case op := <-h.mirrorCh:
			h.applyMirror(ctx, op)
		case <-ticker.C:
			h.Sweep(ctx, h.now())
		}
	}
}

func (h *Hub) applyMirror(ctx context.Context, op mirrorOp) {
	var err error
	if op.entry != nil {
		err = h.mirror.SaveQueueEntry(ctx, op.entry)
	} else {
		err = h.mirror.DeleteQueueEntry(ctx, op.remove)
	}
	if err != nil {
		h.log.Warn("queue mirror write failed", "err", err)
	}
}

func (h *Hub) flushMirror() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case op := <-h.mirrorCh:
			h.applyMirror(ctx, op)
		default:
			return
		}
	}
}
