package main

import (
	"context"
	"fmt"
	"net/http"

	api "newsroom-backend/cmd/api"
	notificationdomain "newsroom-backend/internal/notification/domain"
	notificationRepo "newsroom-backend/internal/notification/repository"
	"newsroom-backend/internal/notification/scheduler"
	"newsroom-backend/internal/notification/subscriber"
	notificationUsecase "newsroom-backend/internal/notification/usecase"
	recipientRepo "newsroom-backend/internal/recipient/repository"
	recipientUsecase "newsroom-backend/internal/recipient/usecase"
	subscriptiondomain "newsroom-backend/internal/subscription/domain"
	subscriptionRepo "newsroom-backend/internal/subscription/repository"
	"newsroom-backend/pkg/config"
	"newsroom-backend/pkg/database"
	"newsroom-backend/pkg/fcm"
	"newsroom-backend/pkg/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Environment)
}

func newDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.NewPostgresConnection(cfg, log)
	if err != nil {
		return nil, err
	}

	// Auto-migrate database schemas
	if err := recipientRepo.Migrate(db); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&notificationdomain.Notification{}, &subscriptiondomain.Subscription{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

func newNotificationRepository(db *gorm.DB, cfg *config.Config, log *zap.Logger) notificationRepo.NotificationRepository {
	return notificationRepo.NewNotificationRepository(db, cfg.NotificationTTL, log)
}

func newGateway(cfg *config.Config, log *zap.Logger) *fcm.Gateway {
	if !cfg.PushEnabled() {
		log.Warn("FIREBASE_CREDENTIALS not set, falling back to application default credentials")
	}
	provider := fcm.NewProvider(cfg.FirebaseCredentials, cfg.FCMInitRetry, log)
	return fcm.NewGateway(provider, cfg.FCMSendTimeout, cfg.PublicWebURL, log)
}

func newComposer(cfg *config.Config) *notificationUsecase.Composer {
	return notificationUsecase.NewComposer(cfg.DefaultLanguage)
}

func newFanout(
	composer *notificationUsecase.Composer,
	resolver *notificationUsecase.Resolver,
	gateway *fcm.Gateway,
	janitor *notificationUsecase.Janitor,
	store notificationRepo.NotificationRepository,
	log *zap.Logger,
) *notificationUsecase.Fanout {
	return notificationUsecase.NewFanout(composer, resolver, gateway, janitor, store, log)
}

func newDispatcher(lc fx.Lifecycle, cfg *config.Config, fanout *notificationUsecase.Fanout, log *zap.Logger) *notificationUsecase.Dispatcher {
	d := notificationUsecase.NewDispatcher(fanout, cfg.FanoutWorkers, cfg.FanoutQueueSize, cfg.FanoutTimeout, log)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			d.Stop()
			return nil
		},
	})
	return d
}

func newNotificationUsecase(
	repo notificationRepo.NotificationRepository,
	dispatcher *notificationUsecase.Dispatcher,
	validator *notificationUsecase.EventValidator,
) notificationUsecase.NotificationUsecase {
	return notificationUsecase.NewNotificationUsecase(repo, dispatcher, validator)
}

func startSchedulers(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	notifications notificationRepo.NotificationRepository,
	subscriptions subscriptionRepo.SubscriptionRepository,
	dispatcher *notificationUsecase.Dispatcher,
) {
	sweeper := scheduler.NewExpirySweeper(notifications, cfg.ExpirySweepInterval, log)
	reminders := scheduler.NewReminderScheduler(subscriptions, dispatcher, cfg.ReminderInterval, cfg.ReminderLookahead, log)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sweeper.Start()
			reminders.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			reminders.Stop()
			sweeper.Stop()
			return nil
		},
	})
}

func startSubscriber(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, notifications notificationUsecase.NotificationUsecase) error {
	// Only start if project ID is configured
	if cfg.GoogleProjectID == "" {
		log.Warn("GOOGLE_PROJECT_ID not configured, Pub/Sub event intake disabled")
		return nil
	}

	sub, err := subscriber.NewSubscriber(context.Background(), cfg.GoogleProjectID, cfg.PubSubTopic, cfg.PubSubSubscription, cfg.GoogleCredentials, notifications, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				sub.Start(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return sub.Close()
		},
	})
	return nil
}

func main() {
	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		fx.Provide(config.Load),
		fx.Provide(newLogger),
		fx.Provide(newDatabase),

		fx.Provide(
			recipientRepo.NewRecipientRepository,
			recipientRepo.NewTokenRepository,
			newNotificationRepository,
			subscriptionRepo.NewSubscriptionRepository,
		),

		fx.Provide(newGateway),
		fx.Provide(
			recipientUsecase.NewTokenUsecase,
			newComposer,
			notificationUsecase.NewResolver,
			notificationUsecase.NewJanitor,
			notificationUsecase.NewEventValidator,
			newFanout,
			newDispatcher,
			newNotificationUsecase,
		),

		fx.Provide(api.NewHandler),
		fx.Provide(api.NewHTTPServer),

		fx.Invoke(startSchedulers),
		fx.Invoke(startSubscriber),
		fx.Invoke(func(*http.Server) {}),
	).Run()
}
