// Package telegram delivers reminder texts through the Telegram Bot
// API. Delivery is fire-and-forget: one sendMessage call with the
// owner's chat id and the formatted text.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v4"
)

// DefaultSendTimeout bounds a single outbound send so a slow Telegram
// API cannot block a dispatcher worker indefinitely.
const DefaultSendTimeout = 10 * time.Second

// Sender sends a text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Client is a send-only Telegram bot client.
type Client struct {
	bot *tele.Bot
}

// NewClient creates a client for the given bot token. The token is
// verified against the API unless offline is set (tests).
func NewClient(token string, offline bool) (*Client, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: offline,
		Client:  &http.Client{Timeout: DefaultSendTimeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &Client{bot: bot}, nil
}

// SendMessage sends text to the chat. The underlying HTTP client
// bounds the call; ctx is honored for early cancellation.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Send(&tele.Chat{ID: chatID}, text); err != nil {
		return fmt.Errorf("failed to send telegram message to chat %d: %w", chatID, err)
	}
	return nil
}

var _ Sender = (*Client)(nil)
