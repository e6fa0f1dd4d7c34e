// Package httpapi wires the Gin transport to the bot: the Telegram webhook,
// the command API, report views, health and metrics, behind the shared
// middleware chain (tracing, correlation ids, redacted logging, recovery,
// metrics, compression, rate limiting, CORS and security headers).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/config"
	"github.com/tbourn/go-corona-bot/internal/http/handlers"
	"github.com/tbourn/go-corona-bot/internal/http/middleware"
	"github.com/tbourn/go-corona-bot/internal/repo"
	"github.com/tbourn/go-corona-bot/internal/telegram"
)

// WebhookPath is where Telegram delivers updates in webhook mode.
const WebhookPath = "/telegram/webhook"

// Deps are the collaborators the routes answer from.
type Deps struct {
	DB      *gorm.DB
	Bot     handlers.Dispatcher
	Reports handlers.ReportService
	// Sender replies to webhook updates; required in webhook mode only.
	Sender telegram.Sender
}

// updateLogShim adapts repo.MarkUpdateProcessed to handlers.UpdateLog.
type updateLogShim struct {
	db  *gorm.DB
	ttl time.Duration
}

func (s updateLogShim) MarkProcessed(ctx context.Context, updateID, chatID int64) error {
	return repo.MarkUpdateProcessed(ctx, s.db, updateID, chatID, s.ttl)
}

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery
//  5. Body size limit
//  6. Metrics and gzip
//  7. Webhook secret check (marks deliveries for limiter bypass)
//  8. Rate limiter (per chat/IP)
//  9. CORS and security headers
//
// The webhook route exists only when cfg.Telegram.Mode is webhook.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-Api-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", WebhookPath})))

	webhook := cfg.Telegram.Mode == config.BotModeWebhook
	if webhook {
		r.Use(middleware.WebhookAuth(middleware.WebhookOptions{
			Path:   WebhookPath,
			Secret: cfg.Telegram.WebhookSecret,
		}))
	}

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByChatOrIP())
	r.Use(rl.Handler())

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderChatID}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// ACAO: * even without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(deps.Bot, deps.Reports, deps.Sender, updateLogShim{db: deps.DB, ttl: cfg.UpdateTTL})
	if webhook {
		r.POST(WebhookPath, h.Webhook)
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/commands", h.ListCommands)
		api.POST("/commands", h.RunCommand)

		api.GET("/reports/summary", h.Summary)
		api.GET("/reports/risk-areas", h.RiskAreas)
		api.GET("/regions/:name/history", h.RegionHistory)
	}
}

// limitBody caps request bodies at maxBytes; larger bodies fail to read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
