package initializers

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/papeleria-1x1/checkout-api/store"
)

func ConnectToDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql: %w: MYSQL_DSN is empty", store.ErrUnavailable)
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("mysql: connect: %w", err)
	}
	return db, nil
}

func SyncDatabase(db *gorm.DB) error {
	if err := db.AutoMigrate(&store.OrderRow{}); err != nil {
		return fmt.Errorf("mysql: migrate: %w", err)
	}
	return nil
}
