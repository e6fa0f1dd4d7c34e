package telegram

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PollConfig tunes Poll.
type PollConfig struct {
	// Timeout is the server-side long-poll wait.
	Timeout time.Duration
	// Backoff is the pause after a failed getUpdates call.
	Backoff time.Duration
}

// Poll receives updates until ctx is cancelled and answers every text
// message through h. Transport errors are logged and retried; a failed
// reply never stops the loop. A cancelled ctx is noticed once the
// running long poll returns.
func Poll(ctx context.Context, c *Client, h Handler, cfg PollConfig) error {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 3 * time.Second
	}
	if err := c.DeleteWebhook(); err != nil {
		log.Warn().Err(err).Msg("delete webhook before polling")
	}
	log.Info().Dur("timeout", cfg.Timeout).Msg("telegram polling started")

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		updates, err := c.GetUpdates(offset, cfg.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error().Err(err).Msg("telegram getUpdates")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(cfg.Backoff):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			HandleUpdate(ctx, c, h, u)
		}
	}
}

// HandleUpdate answers a single update. It is shared by polling and the
// webhook endpoint.
func HandleUpdate(ctx context.Context, s Sender, h Handler, u Update) {
	chatID, text, ok := TextMessage(u)
	if !ok {
		return
	}
	reply := h(ctx, chatID, text)
	if reply == "" {
		return
	}
	if err := s.SendMessage(ctx, chatID, reply); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Int("update_id", u.UpdateID).Msg("send reply")
	}
}
