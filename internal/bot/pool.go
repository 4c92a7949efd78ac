package bot

import (
	"context"
	"sync"

	"matchgogo/backend/internal/transport"
)

const shardBuffer = 64

// Run consumes events until in is closed or ctx is done, then drains the
// events already accepted. Events of one chat always land on the same shard,
// so they are handled one at a time and in arrival order.
func (b *Bot) Run(ctx context.Context, in <-chan transport.Event) error {
	// Accepted events still run to completion after ctx is cancelled.
	hctx := context.WithoutCancel(ctx)

	shards := make([]chan transport.Event, b.opts.Workers)
	var wg sync.WaitGroup
	for i := range shards {
		shards[i] = make(chan transport.Event, shardBuffer)
		wg.Add(1)
		go func(events <-chan transport.Event) {
			defer wg.Done()
			for ev := range events {
				b.handle(hctx, ev)
			}
		}(shards[i])
	}
	b.log.Info("dispatcher started", "workers", len(shards))

	defer func() {
		for _, ch := range shards {
			close(ch)
		}
		wg.Wait()
		b.log.Info("dispatcher drained")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			select {
			case shards[shardOf(ev.ChatID, len(shards))] <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (b *Bot) handle(ctx context.Context, ev transport.Event) {
	ctx, cancel := context.WithTimeout(ctx, b.opts.HandlerTimeout)
	defer cancel()
	b.Dispatch(ctx, ev)
}

func shardOf(chatID int64, n int) int {
	return int(uint64(chatID) % uint64(n))
}
