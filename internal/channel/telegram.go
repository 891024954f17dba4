package channel

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"

	"github.com/capitalize-ai/agent-platform/internal/model"
)

// TelegramSender delivers messages via the Telegram Bot API.
type TelegramSender struct {
	bot *bot.Bot
}

// NewTelegramSender builds a Telegram sender from a channel configuration.
func NewTelegramSender(config model.JSONMap) (Sender, error) {
	token := config.GetString("bot_token")
	if token == "" {
		return nil, errors.New("telegram configuration is missing bot_token")
	}
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: b}, nil
}

// Send sends the message to the Telegram chat identified by channelUserID.
func (s *TelegramSender) Send(ctx context.Context, channelUserID, content string, metadata model.JSONMap) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: channelUserID,
		Text:   content,
	})
	return err
}
