package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/domain"
)

// SetSubscription creates or flips the subscription of chatID. Rows are
// never deleted; unsubscribing stores Active=false.
func SetSubscription(ctx context.Context, db *gorm.DB, chatID int64, active bool) error {
	return Upsert(ctx, db, []domain.Subscription{{ChatID: chatID, Active: active}})
}

// GetSubscription returns the subscription of chatID or ErrNotFound.
func GetSubscription(ctx context.Context, db *gorm.DB, chatID int64) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := db.WithContext(ctx).First(&s, "chat_id = ?", chatID).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActiveSubscriptions returns the chat ids of all active subscriptions
// ordered by chat id.
func ListActiveSubscriptions(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var out []int64
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("is_active = ?", true).
		Order("chat_id ASC").
		Pluck("chat_id", &out).Error
	return out, err
}
