// Package services – Notifier and subscriptions
//
// Notifier delivers the daily summary to every active subscription. The
// report is built once; a failed send is logged and counted and never stops
// delivery to the remaining recipients. Recipients that blocked the bot are
// deactivated.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/repo"
	"github.com/tbourn/go-corona-bot/internal/report"
)

// Sender pushes one MarkdownV2 message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Notifier broadcasts the daily summary.
type Notifier struct {
	DB       *gorm.DB
	Reporter *Reporter
	Sender   Sender

	// IsBlocked reports whether a send error means the recipient blocked the
	// bot. Optional.
	IsBlocked func(error) bool
}

// BroadcastResult counts the outcome of one run.
type BroadcastResult struct {
	Recipients  int
	Delivered   int
	Failed      int
	Deactivated int
}

// Broadcast sends today's summary to all active subscriptions. It only
// returns an error when the summary or the recipient list cannot be loaded.
func (n *Notifier) Broadcast(ctx context.Context, today time.Time) (BroadcastResult, error) {
	tr := otel.Tracer("services/Notifier")
	ctx, span := tr.Start(ctx, "Broadcast",
		trace.WithAttributes(attribute.String("date", today.Format(time.DateOnly))),
	)
	defer span.End()

	var res BroadcastResult
	summary, err := n.Reporter.Summarize(ctx, today)
	if err != nil {
		return res, fmt.Errorf("build summary: %w", err)
	}
	text := report.FormatSummary(summary)

	chats, err := repo.ListActiveSubscriptions(ctx, n.DB)
	if err != nil {
		return res, fmt.Errorf("list subscriptions: %w", err)
	}
	res.Recipients = len(chats)

	for _, chatID := range chats {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := n.Sender.SendMessage(ctx, chatID, text); err != nil {
			res.Failed++
			if n.IsBlocked != nil && n.IsBlocked(err) {
				deliveries.WithLabelValues("blocked").Inc()
				if derr := repo.SetSubscription(ctx, n.DB, chatID, false); derr != nil {
					log.Error().Err(derr).Int64("chat_id", chatID).Msg("deactivate blocked subscription")
				} else {
					res.Deactivated++
				}
				log.Info().Int64("chat_id", chatID).Msg("recipient blocked the bot; subscription deactivated")
				continue
			}
			deliveries.WithLabelValues("error").Inc()
			log.Error().Err(err).Int64("chat_id", chatID).Msg("deliver daily report")
			continue
		}
		deliveries.WithLabelValues("ok").Inc()
		res.Delivered++
	}

	span.SetAttributes(
		attribute.Int("recipients", res.Recipients),
		attribute.Int("delivered", res.Delivered),
		attribute.Int("failed", res.Failed),
	)
	log.Info().
		Int("recipients", res.Recipients).
		Int("delivered", res.Delivered).
		Int("failed", res.Failed).
		Int("deactivated", res.Deactivated).
		Msg("daily report broadcast")
	return res, nil
}

// SubscriptionService handles the start/stop commands.
type SubscriptionService struct {
	DB *gorm.DB
}

// Subscribe activates the daily report for chatID.
func (s *SubscriptionService) Subscribe(ctx context.Context, chatID int64) error {
	return s.set(ctx, chatID, true)
}

// Unsubscribe deactivates the daily report for chatID. The row is kept.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, chatID int64) error {
	return s.set(ctx, chatID, false)
}

// Active reports whether chatID currently receives the daily report.
func (s *SubscriptionService) Active(ctx context.Context, chatID int64) (bool, error) {
	sub, err := repo.GetSubscription(ctx, s.DB, chatID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return sub.Active, nil
}

func (s *SubscriptionService) set(ctx context.Context, chatID int64, active bool) error {
	tr := otel.Tracer("services/SubscriptionService")
	ctx, span := tr.Start(ctx, "Set",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.Bool("active", active),
		),
	)
	defer span.End()

	if err := repo.SetSubscription(ctx, s.DB, chatID, active); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
