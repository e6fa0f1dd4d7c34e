// Telegram webhook endpoint.
//
// POST /telegram/webhook receives one Update per request. The secret header
// is checked by middleware.WebhookAuth before this handler runs. Telegram
// redelivers updates it considers unacknowledged, so every update id is
// recorded and a redelivery is acknowledged without answering twice.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-corona-bot/internal/http/middleware"
	"github.com/tbourn/go-corona-bot/internal/repo"
	"github.com/tbourn/go-corona-bot/internal/telegram"
)

// WebhookResponse acknowledges a delivery.
type WebhookResponse struct {
	Status string `json:"status"` // "handled" or "duplicate"
}

// Webhook answers one update. Updates without message text are
// acknowledged with 204. A failing reply is logged by telegram.HandleUpdate
// and still acknowledged; retrying would only repeat the failure.
func (h *Handlers) Webhook(c *gin.Context) {
	var u telegram.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid update")
		return
	}
	chatID, _, isText := telegram.TextMessage(u)
	if !isText {
		noContent(c)
		return
	}
	middleware.SetChatID(c, strconv.FormatInt(chatID, 10))

	ctx := c.Request.Context()
	if err := h.updates.MarkProcessed(ctx, int64(u.UpdateID), chatID); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Debug().Int("update_id", u.UpdateID).Msg("duplicate update ignored")
			ok(c, http.StatusOK, WebhookResponse{Status: "duplicate"})
			return
		}
		internalError(c, ErrCodeUpdateFailed, "update could not be recorded", err)
		return
	}

	telegram.HandleUpdate(ctx, h.sender, h.bot.Dispatch, u)
	ok(c, http.StatusOK, WebhookResponse{Status: "handled"})
}
