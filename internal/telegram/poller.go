package telegram

import (
	"context"
	"log/slog"
	"time"

	"matchgogo/backend/internal/transport"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultPollTimeout = 30
	minBackoff         = time.Second
	maxBackoff         = time.Minute
)

// Poller long-polls getUpdates and emits transport events.
type Poller struct {
	api        BotAPI
	log        *slog.Logger
	timeout    int
	minBackoff time.Duration
	maxBackoff time.Duration
}

var _ transport.Source = (*Poller)(nil)

func NewPoller(api BotAPI, log *slog.Logger) *Poller {
	return &Poller{
		api:        api,
		log:        log,
		timeout:    defaultPollTimeout,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
	}
}

// WithBackoff overrides the retry delays. Used by tests.
func (p *Poller) WithBackoff(lo, hi time.Duration) *Poller {
	p.minBackoff, p.maxBackoff = lo, hi
	return p
}

type pollResult struct {
	updates []tgbotapi.Update
	err     error
}

// Run polls until ctx is done. Failed polls are retried with exponential
// backoff. On shutdown the updates already handed to out are confirmed with
// one last non-blocking poll; anything after them is delivered again on the
// next start.
func (p *Poller) Run(ctx context.Context, out chan<- transport.Event) error {
	offset := 0
	backoff := p.minBackoff

	for {
		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = p.timeout

		res := make(chan pollResult, 1)
		go func() {
			updates, err := p.api.GetUpdates(cfg)
			res <- pollResult{updates, err}
		}()

		var r pollResult
		select {
		case <-ctx.Done():
			p.confirm(offset)
			return nil
		case r = <-res:
		}

		if r.err != nil {
			p.log.Warn("telegram poll failed", "err", r.err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				p.confirm(offset)
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, p.maxBackoff)
			continue
		}
		backoff = p.minBackoff

		for _, u := range r.updates {
			if ev, ok := toEvent(u); ok {
				select {
				case out <- ev:
				case <-ctx.Done():
					p.confirm(offset)
					return nil
				}
			}
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
		}
	}
}

// confirm acknowledges every update below offset so Telegram drops them.
func (p *Poller) confirm(offset int) {
	if offset == 0 {
		return
	}
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = 0
	cfg.Limit = 1
	if _, err := p.api.GetUpdates(cfg); err != nil {
		p.log.Debug("confirm telegram offset", "offset", offset, "err", err)
	}
}
