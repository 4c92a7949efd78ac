package telegram

import (
	"matchgogo/backend/internal/transport"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// toEvent converts an update. ok is false for update types the bot ignores,
// such as edited messages.
func toEvent(u tgbotapi.Update) (transport.Event, bool) {
	switch {
	case u.Message != nil:
		return messageEvent(u.Message), true
	case u.CallbackQuery != nil:
		return callbackEvent(u.CallbackQuery), true
	}
	return transport.Event{}, false
}

func messageEvent(m *tgbotapi.Message) transport.Event {
	ev := transport.Event{ChatID: m.Chat.ID, MessageID: m.MessageID}
	if m.From != nil {
		ev.Handle = m.From.UserName
		ev.Language = m.From.LanguageCode
	}

	if name, args, ok := transport.ParseCommand(m.Text); ok {
		ev.Kind = transport.KindCommand
		ev.Command, ev.Args = name, args
		return ev
	}

	switch {
	case len(m.Photo) > 0:
		// Sizes are sorted ascending; keep the largest.
		ev.Kind = transport.KindPhoto
		ev.FileID = m.Photo[len(m.Photo)-1].FileID
		ev.Text = m.Caption
	case m.Location != nil:
		ev.Kind = transport.KindLocation
		ev.Lat, ev.Lon = m.Location.Latitude, m.Location.Longitude
	case m.Sticker != nil:
		ev.Kind = transport.KindSticker
		ev.FileID = m.Sticker.FileID
	case m.Voice != nil:
		ev.Kind = transport.KindVoice
		ev.FileID = m.Voice.FileID
		ev.Text = m.Caption
	case m.Text != "":
		ev.Kind = transport.KindText
		ev.Text = m.Text
	default:
		ev.Kind = transport.KindOther
	}
	return ev
}

func callbackEvent(cq *tgbotapi.CallbackQuery) transport.Event {
	ev := transport.Event{
		Kind:       transport.KindCallback,
		Data:       cq.Data,
		CallbackID: cq.ID,
	}
	if cq.From != nil {
		ev.ChatID = cq.From.ID
		ev.Handle = cq.From.UserName
		ev.Language = cq.From.LanguageCode
	}
	if cq.Message != nil {
		ev.ChatID = cq.Message.Chat.ID
		ev.MessageID = cq.Message.MessageID
	}
	return ev
}
