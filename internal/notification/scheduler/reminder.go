package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"newsroom-backend/internal/notification/domain"
	subdomain "newsroom-backend/internal/subscription/domain"

	"go.uber.org/zap"
)

type ExpiringSubscriptions interface {
	FindExpiringWithoutReminder(ctx context.Context, now, until time.Time) ([]subdomain.Subscription, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}

type EventDispatcher interface {
	Dispatch(ev domain.Event) bool
}

// ReminderScheduler queues a subscription_reminder event for every active
// subscription entering the lookahead window.
type ReminderScheduler struct {
	subs       ExpiringSubscriptions
	dispatcher EventDispatcher
	interval   time.Duration
	lookahead  time.Duration
	log        *zap.SugaredLogger
	now        func() time.Time
	stopChan   chan struct{}
	stopOnce   sync.Once
	done       chan struct{}
	started    atomic.Bool
}

func NewReminderScheduler(subs ExpiringSubscriptions, dispatcher EventDispatcher, interval, lookahead time.Duration, log *zap.Logger) *ReminderScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if lookahead <= 0 {
		lookahead = 3 * 24 * time.Hour
	}
	return &ReminderScheduler{
		subs:       subs,
		dispatcher: dispatcher,
		interval:   interval,
		lookahead:  lookahead,
		log:        log.Sugar().Named("reminder_scheduler"),
		now:        time.Now,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *ReminderScheduler) Start() {
	s.log.Infow("starting subscription reminder scheduler", "interval", s.interval, "lookahead", s.lookahead)

	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)
		s.checkAndQueueReminders()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndQueueReminders()
			case <-s.stopChan:
				s.log.Info("reminder scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *ReminderScheduler) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *ReminderScheduler) checkAndQueueReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := s.now()
	subs, err := s.subs.FindExpiringWithoutReminder(ctx, now, now.Add(s.lookahead))
	if err != nil {
		s.log.Errorw("finding expiring subscriptions failed", "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}
	s.log.Infow("subscriptions need a reminder", "count", len(subs))

	for _, sub := range subs {
		ev := domain.Event{
			Kind:      domain.EventSubscriptionReminder,
			ID:        sub.ID,
			UserID:    sub.UserID,
			ExpiresAt: sub.ExpiresAt,
		}
		// a full queue leaves the reminder for the next tick
		if !s.dispatcher.Dispatch(ev) {
			continue
		}
		if err := s.subs.MarkReminderSent(ctx, sub.ID, now); err != nil {
			s.log.Errorw("marking reminder sent failed", "subscription_id", sub.ID, "error", err)
		}
	}
}
