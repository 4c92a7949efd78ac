// Package telegram adapts the Telegram Bot API to the transport contract:
// a long-poll loop that turns updates into events, and a sender that renders
// outbound messages and keyboards.
package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

var _ BotAPI = (*tgbotapi.BotAPI)(nil)

// NewBotAPI authorizes against Telegram with token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return bot, nil
}
