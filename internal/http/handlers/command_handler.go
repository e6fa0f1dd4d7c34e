// Command endpoints.
//
//   - GET  /commands   list every registered command token
//   - POST /commands   run one read-only command and return the reply
//
// The reply is the exact MarkdownV2 text the bot would send, which makes the
// endpoint useful for checking reports without a Telegram client. Commands
// that change a chat's subscription are only accepted from the chat itself.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-corona-bot/internal/http/middleware"
	"github.com/tbourn/go-corona-bot/internal/report"
	"github.com/tbourn/go-corona-bot/internal/telegram"
)

// Dispatcher answers chat commands (see bot.Router).
type Dispatcher interface {
	Dispatch(ctx context.Context, chatID int64, text string) string
	Commands() []string
	Conflicts() []string
	Writes(text string) bool
}

// ReportService builds the report views (see services.Reporter).
type ReportService interface {
	Today() time.Time
	Summarize(ctx context.Context, today time.Time) (report.Summary, error)
	RiskAreas(ctx context.Context, today time.Time) ([]report.RiskArea, error)
	RegionHistory(ctx context.Context, name string) (report.History, error)
}

// UpdateLog remembers delivered webhook updates. MarkProcessed returns
// repo.ErrDuplicate for an update seen before.
type UpdateLog interface {
	MarkProcessed(ctx context.Context, updateID, chatID int64) error
}

// Handlers groups the endpoints. Its dependencies are interfaces so tests
// can run without a database or network.
type Handlers struct {
	bot     Dispatcher
	reports ReportService
	sender  telegram.Sender
	updates UpdateLog
}

// New binds the handlers. sender and updates are only used by Webhook.
func New(bot Dispatcher, reports ReportService, sender telegram.Sender, updates UpdateLog) *Handlers {
	return &Handlers{bot: bot, reports: reports, sender: sender, updates: updates}
}

// CommandsResponse lists the registered command tokens.
type CommandsResponse struct {
	Commands  []string `json:"commands"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// RunCommandRequest is the body of POST /commands.
type RunCommandRequest struct {
	ChatID int64  `json:"chat_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// RunCommandResponse carries the bot's reply.
type RunCommandResponse struct {
	Reply string `json:"reply"`
}

// ListCommands returns every command the bot answers, sorted.
func (h *Handlers) ListCommands(c *gin.Context) {
	ok(c, http.StatusOK, CommandsResponse{
		Commands:  h.bot.Commands(),
		Conflicts: h.bot.Conflicts(),
	})
}

// RunCommand dispatches text as if chat ChatID had sent it. Texts the bot
// would ignore (no leading slash, addressed to another bot) and commands
// that write chat state are rejected.
func (h *Handlers) RunCommand(c *gin.Context) {
	var req RunCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat_id and text are required")
		return
	}
	middleware.SetChatID(c, strconv.FormatInt(req.ChatID, 10))

	text := strings.TrimSpace(req.Text)
	if h.bot.Writes(text) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "command must be sent from the chat")
		return
	}
	reply := h.bot.Dispatch(c.Request.Context(), req.ChatID, text)
	if reply == "" {
		fail(c, http.StatusUnprocessableEntity, ErrCodeNotACommand, "text is not a command for this bot")
		return
	}
	ok(c, http.StatusOK, RunCommandResponse{Reply: reply})
}
