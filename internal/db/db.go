package db

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xdido2/finance-tracker-backend/internal/config"
	"github.com/xdido2/finance-tracker-backend/internal/models"
)

// ConnectAndMigrate opens the database, applies pool limits and runs
// migrations. With MIGRATIONS=1 the SQL files under ./migrations are applied
// via golang-migrate; otherwise AutoMigrate keeps the schema current (dev
// convenience).
func ConnectAndMigrate(cfg config.Config) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DatabaseDSN)
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is empty, check environment configuration")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err == nil {
			break
		}
		slog.Warn("retrying DB connection", "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	// Pool limits: callers block on exhaustion until the context deadline,
	// then surface as unavailable.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	sqlDB.SetMaxIdleConns(cfg.PoolSize)
	sqlDB.SetConnMaxLifetime(cfg.PoolRecycle)

	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	slog.Info("database connected", "dsn", MaskDSN(dsn))

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		modelsToMigrate := []interface{}{
			&models.User{}, &models.BillCategory{}, &models.Bill{},
		}
		for _, m := range modelsToMigrate {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"users", "bill_categories", "bills"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(db)
	}
	return db, nil
}

// seed inserts default global categories (nil owner) once.
func seed(db *gorm.DB) {
	defaults := []models.BillCategory{
		{Name: "Food"},
		{Name: "Utilities"},
		{Name: "Subscriptions"},
		{Name: "Transport"},
	}
	for _, c := range defaults {
		var existing models.BillCategory
		if err := db.Where("name = ? AND user_id IS NULL", c.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&c)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
