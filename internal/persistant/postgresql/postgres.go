package postgresql

import (
	"context"
	"fmt"

	"github.com/aniladanir/retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Initialize opens the db session, retrying up to maxAttempts times, and auto migrates given models
func Initialize(ctx context.Context, connStr string, maxAttempts int, models []any) (*gorm.DB, error) {
	retrier, err := retry.New(retry.WithMaxAttemps(maxAttempts))
	if err != nil {
		return nil, fmt.Errorf("encountered error when initializing retrier: %w", err)
	}

	var (
		db      *gorm.DB
		openErr error
	)
	connected := <-retrier.Retry(ctx, func(attempt int) (terminate bool) {
		db, openErr = gorm.Open(postgres.Open(connStr), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		return openErr == nil
	}, true)
	if !connected {
		if openErr == nil {
			openErr = ctx.Err()
		}
		return nil, fmt.Errorf("failed to connect to postgres: %w", openErr)
	}

	if err = db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDb.Close()
}
