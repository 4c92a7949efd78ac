package bot

import (
	"context"
	"fmt"

	"matchgogo/backend/internal/chathub"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/transport"
)

// Relay delivers a partner's message verbatim.
func (b *Bot) Relay(ctx context.Context, to int64, p chathub.Payload) error {
	switch p.Kind {
	case transport.KindText:
		_, err := b.sender.SendText(ctx, to, p.Text, nil)
		return err
	case transport.KindPhoto:
		_, err := b.sender.SendPhoto(ctx, to, p.FileID, p.Caption, nil)
		return err
	case transport.KindSticker:
		return b.sender.SendSticker(ctx, to, p.FileID)
	case transport.KindVoice:
		return b.sender.SendVoice(ctx, to, p.FileID, p.Caption)
	}
	return fmt.Errorf("kind %s cannot be relayed", p.Kind)
}

// Notify renders a random chat notice. Every notice that ends a chat offers
// the post-chat rating.
func (b *Bot) Notify(ctx context.Context, to int64, n chathub.Notice) {
	lang := b.langOf(ctx, to)

	var key string
	switch n.Kind {
	case chathub.NoticePaired:
		kb := transport.Inline(transport.Row(b.button(lang, "btn_end_chat", cbEndChat)))
		b.reply(ctx, to, b.loc.GetString(lang, "random_paired"), kb)
		return
	case chathub.NoticeQueueExpired:
		b.reply(ctx, to, b.loc.GetString(lang, "random_queue_expired"), b.mainMenu(lang))
		return
	case chathub.NoticeEnded:
		key = "random_ended"
	case chathub.NoticePartnerLeft:
		key = "random_partner_left"
	case chathub.NoticeIdleTimeout:
		key = "random_idle"
	case chathub.NoticeRelayFailed:
		key = "random_relay_failed"
	default:
		b.log.Warn("unknown chat notice", "chat_id", to, "kind", n.Kind)
		return
	}

	b.reply(ctx, to, b.loc.GetString(lang, key), nil)
	if n.Partner != 0 {
		b.reply(ctx, to, b.loc.GetString(lang, "rate_prompt"), b.rateKeyboard(lang, n.Partner))
	}
}

// NotifyMatch tells recipient about a mutual like with partner.
func (b *Bot) NotifyMatch(ctx context.Context, recipient, partner *models.User) {
	lang := recipient.Language
	if lang == "" {
		lang = b.langOf(ctx, recipient.ChatID)
	}
	header := b.loc.Format(lang, "match_found", partner.Name)
	if partner.Handle != "" {
		header += "\n" + b.loc.Format(lang, "match_contact", partner.Handle)
	}
	if err := b.sendCard(ctx, recipient.ChatID, lang, partner, header, nil); err != nil {
		b.log.Warn("send match notice", "chat_id", recipient.ChatID, "partner", partner.ChatID, "err", err)
	}
}

func (b *Bot) NotifyWarning(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, b.loc.GetString(b.langOf(ctx, chatID), "report_warning"), nil)
}

// NotifyBan takes the user out of random chat and tells them about the ban.
func (b *Bot) NotifyBan(ctx context.Context, chatID int64) {
	if b.hub != nil {
		b.hub.Leave(chatID)
	}
	b.browse.reset(chatID)
	b.reply(ctx, chatID, b.loc.GetString(b.langOf(ctx, chatID), "banned_notice"), &transport.Keyboard{Remove: true})
}
