package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"matchgogo/backend/internal/chathub"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/moderation"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/transport"
)

func (b *Bot) handleRandom(ctx context.Context, ev transport.Event, lang, _ string) error {
	if ok, err := b.requireProfile(ctx, ev.ChatID, lang); !ok || err != nil {
		return err
	}
	kb := transport.Inline(
		transport.Row(
			b.button(lang, "btn_filter_male", cbRandomFilter+string(models.FilterMale)),
			b.button(lang, "btn_filter_female", cbRandomFilter+string(models.FilterFemale)),
		),
		transport.Row(b.button(lang, "btn_filter_any", cbRandomFilter+string(models.FilterAny))),
	)
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "random_choose_filter"), kb)
	return nil
}

func (b *Bot) handleRandomFilter(ctx context.Context, ev transport.Event, lang, arg string) error {
	u, err := b.profiles.Get(ctx, ev.ChatID)
	if errors.Is(err, storage.ErrNotFound) {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "no_profile_yet"), nil)
		return nil
	}
	if err != nil {
		return err
	}

	res, err := b.hub.Request(ev.ChatID, u.Gender, models.GenderFilter(arg), lang)
	switch {
	case errors.Is(err, chathub.ErrAlreadyChatting):
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "random_already_chatting"), nil)
		return nil
	case errors.Is(err, chathub.ErrAlreadyQueued):
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "random_already_queued"), b.cancelSearchKeyboard(lang))
		return nil
	case errors.Is(err, chathub.ErrInvalidFilter):
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	case err != nil:
		return err
	}

	// A successful pairing is announced by the hub to both sides.
	if res.Status == chathub.StatusQueued {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "random_searching"), b.cancelSearchKeyboard(lang))
	}
	return nil
}

func (b *Bot) cancelSearchKeyboard(lang string) *transport.Keyboard {
	return transport.Inline(transport.Row(b.button(lang, "btn_cancel_search", cbCancelSearch)))
}

func (b *Bot) handleCancelSearch(ctx context.Context, ev transport.Event, lang, _ string) error {
	key := "nothing_to_cancel"
	if b.hub.Cancel(ev.ChatID) {
		key = "random_search_cancelled"
	}
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, key), b.mainMenu(lang))
	return nil
}

// handleEnd leaves the current random chat. Both sides hear about it from
// the hub once everything relayed before has been delivered.
func (b *Bot) handleEnd(ctx context.Context, ev transport.Event, lang, _ string) error {
	if _, err := b.hub.End(ev.ChatID); errors.Is(err, chathub.ErrNotInChat) {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "not_in_chat"), nil)
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

func (b *Bot) handleRateLike(ctx context.Context, ev transport.Event, lang, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || !b.hub.ChattedWith(ev.ChatID, id) {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	if _, err := b.likes.Like(ctx, ev.ChatID, id, ""); err != nil && !errors.Is(err, storage.ErrSelfInteraction) {
		return err
	}
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "rate_thanks"), b.mainMenu(lang))
	return nil
}

func (b *Bot) handleRateDislike(ctx context.Context, ev transport.Event, lang, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || !b.hub.ChattedWith(ev.ChatID, id) {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	if err := b.likes.Skip(ctx, ev.ChatID, id); err != nil && !errors.Is(err, storage.ErrSelfInteraction) {
		return err
	}
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "rate_thanks"), b.mainMenu(lang))
	return nil
}

func (b *Bot) handleReport(ctx context.Context, ev transport.Event, lang, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id == ev.ChatID {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	allowed, err := b.canReport(ctx, ev.ChatID, id)
	if err != nil {
		return err
	}
	if !allowed {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "report_choose"), b.violationKeyboard(lang, id))
	return nil
}

// handleViolation files the report chosen on the violation keyboard. arg is
// "<tag>_<id>".
func (b *Bot) handleViolation(ctx context.Context, ev transport.Event, lang, arg string) error {
	i := strings.LastIndex(arg, "_")
	if i <= 0 {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	tag := arg[:i]
	id, err := strconv.ParseInt(arg[i+1:], 10, 64)
	if err != nil {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}
	allowed, err := b.canReport(ctx, ev.ChatID, id)
	if err != nil {
		return err
	}
	if !allowed {
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
		return nil
	}

	_, err = b.mod.Report(ctx, ev.ChatID, id, tag)
	switch {
	case err == nil:
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "report_thanks"), nil)
	case errors.Is(err, moderation.ErrRateLimited):
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "report_rate_limited"), nil)
	case errors.Is(err, moderation.ErrUnknownTag), errors.Is(err, storage.ErrSelfInteraction):
		b.reply(ctx, ev.ChatID, b.loc.GetString(lang, "unknown"), nil)
	default:
		return err
	}
	return nil
}

// canReport reports whether reporter has met target: in a random chat, on
// the profile being browsed, or in the inbound likes list.
func (b *Bot) canReport(ctx context.Context, reporter, target int64) (bool, error) {
	if b.hub.ChattedWith(reporter, target) || b.browse.contains(reporter, target) {
		return true, nil
	}
	inbound, err := b.likes.Inbound(ctx, reporter)
	if err != nil {
		return false, err
	}
	for _, in := range inbound {
		if in.From.ChatID == target {
			return true, nil
		}
	}
	return false, nil
}
