package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	Port           string `env:"PORT" envDefault:"8080"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseDebug  bool   `env:"DATABASE_DEBUG" envDefault:"false"` // log every SQL statement
	JWTSecret      string `env:"JWT_SECRET"`
	InternalAPIKey string `env:"INTERNAL_API_KEY"`
	PublicWebURL   string `env:"PUBLIC_WEB_URL"` // absolute origin used for web push click links

	// Firebase Cloud Messaging
	FirebaseCredentials string        `env:"FIREBASE_CREDENTIALS"`
	FCMSendTimeout      time.Duration `env:"FCM_SEND_TIMEOUT" envDefault:"15s"`
	FCMInitRetry        time.Duration `env:"FCM_INIT_RETRY" envDefault:"5m"`

	// Content events arrive over Pub/Sub when a project is configured
	GoogleProjectID    string `env:"GOOGLE_PROJECT_ID"`
	GoogleCredentials  string `env:"GOOGLE_CREDENTIALS"`
	PubSubTopic        string `env:"PUBSUB_TOPIC" envDefault:"content-events"`
	PubSubSubscription string `env:"PUBSUB_SUBSCRIPTION"`

	FanoutWorkers   int           `env:"FANOUT_WORKERS" envDefault:"4"`
	FanoutQueueSize int           `env:"FANOUT_QUEUE_SIZE" envDefault:"256"`
	FanoutTimeout   time.Duration `env:"FANOUT_TIMEOUT" envDefault:"2m"`

	NotificationTTL     time.Duration `env:"NOTIFICATION_TTL" envDefault:"720h"`
	ExpirySweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" envDefault:"1h"`
	ReminderInterval    time.Duration `env:"REMINDER_INTERVAL" envDefault:"1h"`
	ReminderLookahead   time.Duration `env:"REMINDER_LOOKAHEAD" envDefault:"72h"`

	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"en"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.PubSubSubscription == "" {
		cfg.PubSubSubscription = cfg.PubSubTopic + "-sub"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.FanoutWorkers <= 0 {
		return fmt.Errorf("FANOUT_WORKERS must be positive, got %d", c.FanoutWorkers)
	}
	if c.FanoutQueueSize <= 0 {
		return fmt.Errorf("FANOUT_QUEUE_SIZE must be positive, got %d", c.FanoutQueueSize)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// PushEnabled reports whether FCM credentials were supplied.
func (c *Config) PushEnabled() bool {
	return c.FirebaseCredentials != ""
}
