package repository

import (
	"fmt"

	"newsroom-backend/internal/recipient/domain"

	"gorm.io/gorm"
)

// Migrate creates the recipient tables plus the GIN indexes used by token
// cleanup. It is Postgres only.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.RegisteredUser{}, &domain.GuestUser{}); err != nil {
		return fmt.Errorf("migrate recipients: %w", err)
	}
	for _, table := range []string{"users", "guests"} {
		for _, col := range []string{"web_tokens", "mobile_tokens"} {
			stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_%[2]s ON %[1]s USING GIN (%[2]s)", table, col)
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index %s.%s: %w", table, col, err)
			}
		}
	}
	return nil
}
