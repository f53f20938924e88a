package services

import (
	"context"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"fleet-ops-api/config"
	"fleet-ops-api/models"
)

const seededDrivers = 10

// OpenDB opens the gorm handle used by the read side, migrations and the
// worker. It does not ping; callers decide whether the database is required.
func OpenDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		DisableAutomaticPing: true,
		Logger: gormlogger.New(logrus.StandardLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func PingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Migrate creates the driver and compliance tables and seeds drivers
// 1..10 so that sample prediction traffic always references real rows.
func Migrate(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx)
	if err := tx.AutoMigrate(&models.Driver{}, &models.DrugTest{}, &models.Violation{}, &models.Credential{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	drivers := models.SeedDrivers(seededDrivers)
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&drivers).Error; err != nil {
		return fmt.Errorf("seed drivers: %w", err)
	}

	// Explicit ids bypass the sequence; move it past them.
	if err := tx.Exec(`SELECT setval(pg_get_serial_sequence('drivers', 'id'), GREATEST((SELECT MAX(id) FROM drivers), 1))`).Error; err != nil {
		return fmt.Errorf("advance drivers sequence: %w", err)
	}
	return nil
}
