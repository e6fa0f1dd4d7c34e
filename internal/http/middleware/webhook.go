// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// WebhookAuth guards the Telegram webhook endpoint. Telegram echoes the
// secret registered with setWebhook in the X-Telegram-Bot-Api-Secret-Token
// header; deliveries without the matching secret are rejected before they
// reach a handler. Accepted deliveries skip the rate limiter and carry the
// chat id of the update for logging.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderTelegramSecret carries the webhook secret on every delivery.
const HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"

const (
	ctxKeyRateBypass = "rate.bypass" // bool: skip rate limiting
	ctxKeyChatID     = "chatID"      // string: chat the request acts for
)

// WebhookOptions configures WebhookAuth.
type WebhookOptions struct {
	// Path is the exact request path of the webhook route.
	Path string
	// Secret is the value registered with setWebhook. An empty secret
	// rejects every delivery.
	Secret string
}

// WebhookAuth validates the secret header on requests to opts.Path and lets
// every other request through untouched. It is installed globally, ahead of
// the rate limiter, so that it can mark deliveries for bypass.
func WebhookAuth(opts WebhookOptions) gin.HandlerFunc {
	secret := []byte(opts.Secret)
	return func(c *gin.Context) {
		if c.Request.URL.Path != opts.Path {
			c.Next()
			return
		}
		got := []byte(c.GetHeader(HeaderTelegramSecret))
		if len(secret) == 0 || subtle.ConstantTimeCompare(got, secret) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "invalid webhook secret",
			})
			return
		}
		c.Set(ctxKeyRateBypass, true)
		c.Next()
	}
}

// SetChatID records the chat a request acts for. Logger reads it when the
// access log line is written, so handlers may call it after parsing a body.
func SetChatID(c *gin.Context, chatID string) { c.Set(ctxKeyChatID, chatID) }

// ChatIDFrom returns the chat recorded by SetChatID, or "".
func ChatIDFrom(c *gin.Context) string {
	v, _ := c.Get(ctxKeyChatID)
	s, _ := v.(string)
	return s
}
