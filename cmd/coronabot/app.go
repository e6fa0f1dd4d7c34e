package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/bot"
	"github.com/tbourn/go-corona-bot/internal/config"
	"github.com/tbourn/go-corona-bot/internal/observability"
	"github.com/tbourn/go-corona-bot/internal/repo"
	"github.com/tbourn/go-corona-bot/internal/risklayer"
	"github.com/tbourn/go-corona-bot/internal/services"
	"github.com/tbourn/go-corona-bot/internal/telegram"
)

// app holds the wired components shared by all subcommands.
type app struct {
	cfg config.Config
	loc *time.Location
	db  *gorm.DB

	sheet      *risklayer.Client
	reconciler *services.Reconciler
	reporter   *services.Reporter
	subs       *services.SubscriptionService

	// nil when BOT_MODE=off
	tg       *telegram.Client
	notifier *services.Notifier

	shutdownOTel observability.ShutdownFunc
}

// newApp opens the database, migrates it and wires the services.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version,
		attribute.String("bot.mode", cfg.Telegram.Mode))
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	db, err := repo.Open(cfg.DatabaseURL)
	if err != nil {
		observability.Shutdown(shutdown, 5*time.Second)
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		observability.Shutdown(shutdown, 5*time.Second)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &app{cfg: cfg, loc: loc, db: db, shutdownOTel: shutdown}
	a.sheet, err = risklayer.NewClient(ctx, risklayer.Config{
		BaseURL:       cfg.Sheets.BaseURL,
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		APIKey:        cfg.Sheets.APIKey,
		Sheet:         cfg.Sheets.Sheet,
		Rows:          cfg.Sheets.Rows,
		AreaColumn:    cfg.Sheets.AreaColumn,
		Timeout:       cfg.Sheets.FetchTimeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reconciler = &services.Reconciler{
		DB:            db,
		Fetcher:       a.sheet,
		Location:      loc,
		ResetHour:     cfg.Schedule.ResetHour,
		ResetMinCases: cfg.Schedule.ResetMinCases,
	}
	a.reporter = &services.Reporter{DB: db, Location: loc}
	a.subs = &services.SubscriptionService{DB: db}

	if cfg.Telegram.Mode != config.BotModeOff && cfg.Telegram.Token != "" {
		a.tg, err = telegram.NewClient(telegram.Config{
			BaseURL: cfg.Telegram.APIURL,
			Token:   cfg.Telegram.Token,
			SendRPS: cfg.Telegram.SendRPS,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("telegram: %w", err)
		}
		a.notifier = &services.Notifier{
			DB:        db,
			Reporter:  a.reporter,
			Sender:    a.tg,
			IsBlocked: telegram.IsBlocked,
		}
	}
	return a, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	observability.Shutdown(a.shutdownOTel, 5*time.Second)
}

// router builds the command router from the regions stored right now.
// Regions seeded later are picked up on restart.
func (a *app) router(ctx context.Context) (*bot.Router, error) {
	n, err := repo.CountRegions(ctx, a.db)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		log.Warn().Msg("no regions stored; run `coronabot seed` to enable region commands")
	}
	return bot.Load(ctx, a.db, bot.Config{
		Reporter:      a.reporter,
		Subscriptions: a.subs,
		BotName:       a.botName(),
	})
}

// botName prefers the configured name and falls back to the name the Bot
// API reported at startup.
func (a *app) botName() string {
	if a.cfg.Telegram.BotName == "" && a.tg != nil {
		return a.tg.Username()
	}
	return a.cfg.Telegram.BotName
}

// fetchJob runs one cycle. A probable upstream reset is expected every
// evening and is not a job failure; the reconciler already logged it.
func (a *app) fetchJob(ctx context.Context) error {
	_, err := a.reconciler.RunCycle(ctx)
	if errors.Is(err, services.ErrDataAnomaly) {
		return nil
	}
	return err
}

func (a *app) purgeJob(ctx context.Context) error {
	if _, err := a.reconciler.Purge(ctx, a.cfg.Schedule.RetentionDays); err != nil {
		return err
	}
	_, err := repo.PurgeProcessedUpdates(ctx, a.db, time.Now())
	return err
}

func (a *app) reportJob(ctx context.Context) error {
	if a.notifier == nil {
		return errors.New("telegram is not configured")
	}
	_, err := a.notifier.Broadcast(ctx, a.reporter.Today())
	return err
}
