package telegram

import (
	"context"
	"log/slog"

	"matchgogo/backend/internal/transport"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender implements transport.Sender over the Bot API.
type Sender struct {
	api BotAPI
	log *slog.Logger
}

var _ transport.Sender = (*Sender)(nil)

func NewSender(api BotAPI, log *slog.Logger) *Sender {
	return &Sender{api: api, log: log}
}

func (s *Sender) SendText(ctx context.Context, chatID int64, text string, kb *transport.Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	if m := markup(kb); m != nil {
		msg.ReplyMarkup = m
	}
	return s.send(ctx, msg)
}

func (s *Sender) SendPhoto(ctx context.Context, chatID int64, photoID, caption string, kb *transport.Keyboard) (int, error) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(photoID))
	photo.Caption = caption
	if m := markup(kb); m != nil {
		photo.ReplyMarkup = m
	}
	return s.send(ctx, photo)
}

func (s *Sender) SendSticker(ctx context.Context, chatID int64, fileID string) error {
	_, err := s.send(ctx, tgbotapi.NewSticker(chatID, tgbotapi.FileID(fileID)))
	return err
}

func (s *Sender) SendVoice(ctx context.Context, chatID int64, fileID, caption string) error {
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileID(fileID))
	voice.Caption = caption
	_, err := s.send(ctx, voice)
	return err
}

func (s *Sender) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return s.request(ctx, tgbotapi.NewCallback(callbackID, text))
}

func (s *Sender) EditMessage(ctx context.Context, chatID int64, messageID int, text string, kb *transport.Keyboard) error {
	if kb != nil && !kb.Reply && !kb.Remove {
		return s.request(ctx, tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, inlineMarkup(kb)))
	}
	return s.request(ctx, tgbotapi.NewEditMessageText(chatID, messageID, text))
}

func (s *Sender) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return s.request(ctx, tgbotapi.NewDeleteMessage(chatID, messageID))
}

func (s *Sender) send(ctx context.Context, c tgbotapi.Chattable) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sent, err := s.api.Send(c)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (s *Sender) request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.api.Request(c)
	return err
}

// markup converts kb into the Bot API reply markup, or nil for no keyboard.
func markup(kb *transport.Keyboard) any {
	switch {
	case kb == nil:
		return nil
	case kb.Remove:
		return tgbotapi.NewRemoveKeyboard(true)
	case kb.Reply:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
		for _, r := range kb.Rows {
			row := make([]tgbotapi.KeyboardButton, 0, len(r))
			for _, b := range r {
				if b.RequestLocation {
					row = append(row, tgbotapi.NewKeyboardButtonLocation(b.Text))
				} else {
					row = append(row, tgbotapi.NewKeyboardButton(b.Text))
				}
			}
			rows = append(rows, row)
		}
		reply := tgbotapi.NewReplyKeyboard(rows...)
		reply.OneTimeKeyboard = true
		reply.ResizeKeyboard = true
		return reply
	}
	return inlineMarkup(kb)
}

func inlineMarkup(kb *transport.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb.Rows))
	for _, r := range kb.Rows {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			if b.URL != "" {
				row = append(row, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
