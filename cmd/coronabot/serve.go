package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-corona-bot/internal/config"
	httpapi "github.com/tbourn/go-corona-bot/internal/http"
	"github.com/tbourn/go-corona-bot/internal/scheduler"
	"github.com/tbourn/go-corona-bot/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler, the bot and the HTTP API until interrupted",
	Long: `serve runs everything the bot needs:
  - a fetch cycle every FETCH_INTERVAL
  - a purge of old case records every PURGE_INTERVAL
  - the daily report at REPORT_AT (TIMEZONE) to all subscribers
  - the Telegram bot in BOT_MODE (polling, webhook or off)
  - the HTTP API on PORT`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := cfg.RequireSheets(); err != nil {
		return err
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	router, err := a.router(ctx)
	if err != nil {
		return err
	}

	var sender telegram.Sender
	if a.tg != nil {
		sender = a.tg
	}
	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, httpapi.Deps{
		DB:      a.db,
		Bot:     router,
		Reports: a.reporter,
		Sender:  sender,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Every(gctx, "fetch", cfg.Schedule.FetchInterval, a.fetchJob)
		return nil
	})
	g.Go(func() error {
		scheduler.Every(gctx, "purge", cfg.Schedule.PurgeInterval, a.purgeJob)
		return nil
	})
	if a.notifier != nil {
		g.Go(func() error {
			return scheduler.DailyAt(gctx, "daily-report", cfg.Schedule.ReportAt, a.loc, a.reportJob)
		})
	}

	switch cfg.Telegram.Mode {
	case config.BotModePolling:
		g.Go(func() error {
			return telegram.Poll(gctx, a.tg, router.Dispatch, telegram.PollConfig{})
		})
	case config.BotModeWebhook:
		if cfg.Telegram.WebhookURL == "" {
			log.Warn().Msg("TELEGRAM_WEBHOOK_URL not set; assuming the webhook is registered elsewhere")
		} else if err := a.tg.SetWebhook(cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			return err
		}
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("bot_mode", cfg.Telegram.Mode).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
