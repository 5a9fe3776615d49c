package sqlstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the users, authtoken_token and tickets tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&AccountModel{}, &TokenModel{}, &TicketModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
