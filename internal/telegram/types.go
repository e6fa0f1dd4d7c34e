package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update is one Bot API update, as delivered by getUpdates or the webhook.
type Update = tgbotapi.Update

// Handler answers one message text. An empty reply sends nothing.
type Handler func(ctx context.Context, chatID int64, text string) string

// Sender delivers a reply. *Client implements it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TextMessage returns the chat and text of a text message update.
func TextMessage(u Update) (chatID int64, text string, ok bool) {
	if u.Message == nil || u.Message.Chat == nil || u.Message.Text == "" {
		return 0, "", false
	}
	return u.Message.Chat.ID, u.Message.Text, true
}
