package database

import (
	"fmt"
	"time"

	"newsroom-backend/pkg/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresConnection opens the primary database and tunes its pool.
func NewPostgresConnection(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(cfg),
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Database connected")
	return db, nil
}

// gormLogLevel keeps gorm at Warn so only slow queries and errors surface.
// DATABASE_DEBUG opts into statement logging.
func gormLogLevel(cfg *config.Config) logger.LogLevel {
	if cfg.DatabaseDebug && !cfg.IsProduction() {
		return logger.Info
	}
	return logger.Warn
}
