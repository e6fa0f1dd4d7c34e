// Package telegram adapts the Telegram Bot API library to the bot: sending
// throttled MarkdownV2 messages, long polling for updates and managing the
// webhook.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

const (
	defaultSendRPS     = 25
	defaultHTTPTimeout = 90 * time.Second
	maxRetries         = 2
)

// APIError is a non-ok Bot API answer.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.StatusCode, e.Description)
}

// IsBlocked reports whether err means the recipient blocked the bot or the
// chat no longer exists.
func IsBlocked(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusForbidden {
		return true
	}
	return apiErr.StatusCode == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(apiErr.Description), "chat not found")
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Token      string
	SendRPS    float64
	HTTPClient *http.Client
}

// Client talks to one bot.
type Client struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

// NewClient authenticates the token with getMe and returns a Client.
// Outgoing messages are throttled to SendRPS.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	rps := cfg.SendRPS
	if rps <= 0 {
		rps = defaultSendRPS
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, base+"/bot%s/%s", hc)
	if err != nil {
		return nil, apiError("getMe", err)
	}
	return &Client{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}, nil
}

// Username is the bot's @name as reported by getMe.
func (c *Client) Username() string { return c.api.Self.UserName }

// SendMessage sends MarkdownV2 text to chatID. A 429 answer is retried after
// the advertised delay.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		_, err := c.api.Request(msg)
		if err == nil {
			return nil
		}
		err = apiError("sendMessage", err)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return err
		}
		wait := time.Duration(apiErr.RetryAfter) * time.Second
		if wait <= 0 {
			wait = time.Second << attempt
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// GetUpdates long-polls for message updates starting at offset. timeout is
// the server-side wait.
func (c *Client) GetUpdates(offset int, timeout time.Duration) ([]Update, error) {
	ups, err := c.api.GetUpdates(tgbotapi.UpdateConfig{
		Offset:         offset,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return nil, apiError("getUpdates", err)
	}
	return ups, nil
}

// SetWebhook registers hookURL; Telegram echoes secret in the
// X-Telegram-Bot-Api-Secret-Token header of every delivery.
func (c *Client) SetWebhook(hookURL, secret string) error {
	params := tgbotapi.Params{
		"url":             hookURL,
		"allowed_updates": `["message"]`,
	}
	params.AddNonEmpty("secret_token", secret)
	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return apiError("setWebhook", err)
	}
	return nil
}

// DeleteWebhook removes the webhook so that GetUpdates works.
func (c *Client) DeleteWebhook() error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return apiError("deleteWebhook", err)
	}
	return nil
}

// apiError maps library errors onto *APIError. Transport errors are
// unwrapped from *url.Error because the request URL embeds the token.
func apiError(method string, err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		return &APIError{
			Method:      method,
			StatusCode:  tgErr.Code,
			Description: tgErr.Message,
			RetryAfter:  tgErr.RetryAfter,
		}
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return fmt.Errorf("telegram %s: %w", method, err)
}
