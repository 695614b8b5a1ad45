package repository

import (
	"context"
	"fmt"
	"time"

	"newsroom-backend/internal/subscription/domain"

	"gorm.io/gorm"
)

// SubscriptionRepository defines the reminder queries on subscriptions
type SubscriptionRepository interface {
	// FindExpiringWithoutReminder returns active subscriptions ending in (now, until]
	// that have not been reminded yet.
	FindExpiringWithoutReminder(ctx context.Context, now, until time.Time) ([]domain.Subscription, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) FindExpiringWithoutReminder(ctx context.Context, now, until time.Time) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL", domain.StatusActive).
		Where("expires_at > ? AND expires_at <= ?", now.UTC(), until.UTC()).
		Order("expires_at").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("find expiring subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.Subscription{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at.UTC()).Error
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}
