// Package bot routes inbound transport events to the profile, ranking, like,
// random chat and moderation services, and renders their results back to the
// user.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"matchgogo/backend/internal/chathub"
	"matchgogo/backend/internal/likes"
	"matchgogo/backend/internal/localization"
	"matchgogo/backend/internal/moderation"
	"matchgogo/backend/internal/profile"
	"matchgogo/backend/internal/ranking"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/transport"
)

type Options struct {
	// Workers is the number of shards events are spread over.
	Workers int
	// HandlerTimeout bounds a single event.
	HandlerTimeout time.Duration
	// PageSize is the ranking page fetched per browse step.
	PageSize int
}

// Services are the collaborators the bot dispatches to. They are attached
// after construction because most of them report back through the bot.
type Services struct {
	Store      storage.Storage
	Profiles   *profile.Service
	Ranking    *ranking.Engine
	Likes      *likes.Service
	Moderation *moderation.Service
	Hub        *chathub.Hub
}

// Bot is the dispatcher. It also implements chathub.Courier,
// likes.Notifier and moderation.Notifier.
type Bot struct {
	sender transport.Sender
	loc    *localization.Localizer
	log    *slog.Logger
	opts   Options

	store    storage.Storage
	profiles *profile.Service
	ranking  *ranking.Engine
	likes    *likes.Service
	mod      *moderation.Service
	hub      *chathub.Hub

	// langs remembers the last language seen per chat for notifications.
	langs  sync.Map
	browse *browser
}

var (
	_ chathub.Courier     = (*Bot)(nil)
	_ likes.Notifier      = (*Bot)(nil)
	_ moderation.Notifier = (*Bot)(nil)
)

func New(sender transport.Sender, loc *localization.Localizer, log *slog.Logger, opts Options) *Bot {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	return &Bot{
		sender: sender,
		loc:    loc,
		log:    log,
		opts:   opts,
		browse: newBrowser(),
	}
}

// Attach wires the services. It must be called before Run or Dispatch.
func (b *Bot) Attach(s Services) {
	b.store = s.Store
	b.profiles = s.Profiles
	b.ranking = s.Ranking
	b.likes = s.Likes
	b.mod = s.Moderation
	b.hub = s.Hub
}

// Dispatch handles one event. It never returns an error: failures are
// logged and answered with a generic notice.
func (b *Bot) Dispatch(ctx context.Context, ev transport.Event) {
	log := b.log.With("chat_id", ev.ChatID, "kind", ev.Kind.String(), "command", ev.Command)
	lang := b.remember(ev)

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panic", "panic", r, "stack", string(debug.Stack()))
			b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "generic_error"), nil)
		}
	}()

	if ev.Kind == transport.KindCallback && ev.CallbackID != "" {
		if err := b.sender.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			log.Debug("answer callback", "err", err)
		}
	}

	if err := b.route(ctx, ev, lang); err != nil {
		log.Error("handle event", "data", ev.Data, "err", err)
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "generic_error"), nil)
	}
}

func (b *Bot) route(ctx context.Context, ev transport.Event, lang string) error {
	if err := b.profiles.Touch(ctx, ev.ChatID); err != nil {
		b.log.Debug("touch last active", "chat_id", ev.ChatID, "err", err)
	}

	banned, err := b.mod.IsBanned(ctx, ev.ChatID)
	if err != nil {
		return err
	}
	if banned {
		// Bans issued out of process reach the hub here.
		b.hub.Leave(ev.ChatID)
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "banned_notice"), nil)
		return nil
	}

	if b.consumedBySession(ev) {
		st, err := b.profiles.Session(ctx, ev.ChatID)
		if err != nil {
			return err
		}
		if st != nil {
			return b.advanceSession(ctx, ev, lang)
		}
	}

	if ev.Kind != transport.KindCommand && ev.Kind != transport.KindCallback {
		return b.handleMessage(ctx, ev, lang)
	}

	name := ev.Command
	if ev.Kind == transport.KindCallback {
		name = ev.Data
	}
	h, arg := b.lookup(ev.Kind, name)
	if h == nil {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	return h(ctx, ev, lang, arg)
}

// consumedBySession reports whether ev is an answer a pending setup or edit
// step could take. Commands and menu callbacks bypass the flow.
func (b *Bot) consumedBySession(ev transport.Event) bool {
	switch ev.Kind {
	case transport.KindCommand:
		return false
	case transport.KindCallback:
		return strings.HasPrefix(ev.Data, setupPrefix)
	}
	return true
}

// handleMessage deals with plain messages outside a setup flow.
func (b *Bot) handleMessage(ctx context.Context, ev transport.Event, lang string) error {
	if b.hub.Status(ev.ChatID) == chathub.StatusChatting {
		if !ev.Kind.Relayable() {
			b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "relay_unsupported"), nil)
			return nil
		}
		err := b.hub.Relay(ev.ChatID, payloadOf(ev))
		switch {
		case err == nil, errors.Is(err, chathub.ErrRelayFailed):
			// The hub tells the sender about a failed relay itself.
			return nil
		case errors.Is(err, chathub.ErrNotInChat):
		default:
			return err
		}
	}

	if ev.Kind.Relayable() {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "not_in_chat"), nil)
		return nil
	}
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
	return nil
}

func payloadOf(ev transport.Event) chathub.Payload {
	p := chathub.Payload{Kind: ev.Kind}
	switch ev.Kind {
	case transport.KindText:
		p.Text = ev.Text
	default:
		p.FileID = ev.FileID
		p.Caption = ev.Text
	}
	return p
}

func (b *Bot) remember(ev transport.Event) string {
	if ev.Language == "" {
		return b.langOf(context.Background(), ev.ChatID)
	}
	lang := localization.Normalize(ev.Language)
	b.langs.Store(ev.ChatID, lang)
	return lang
}

// langOf picks the language for an unsolicited message to chatID.
func (b *Bot) langOf(ctx context.Context, chatID int64) string {
	if v, ok := b.langs.Load(chatID); ok {
		return v.(string)
	}
	if b.profiles != nil {
		if u, err := b.profiles.Get(ctx, chatID); err == nil && u.Language != "" {
			return localization.Normalize(u.Language)
		}
	}
	return localization.DefaultLanguage
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, kb *transport.Keyboard) {
	if _, err := b.sender.SendText(ctx, chatID, text, kb); err != nil {
		b.log.Warn("send message", "chat_id", chatID, "err", err)
	}
}
