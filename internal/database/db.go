package database

import (
	"fmt"
	"log/slog"

	"orderetl/internal/config"
	"orderetl/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector picks the gorm driver for the configured database
func Dialector(cfg *config.Config) gorm.Dialector {
	if cfg.DBDriver == config.DriverMySQL {
		return mysql.Open(cfg.DSN())
	}
	return postgres.Open(cfg.DSN())
}

// NewConnection initializes a new connection pool using GORM
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(Dialector(cfg), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}

	// Domain tables use explicit DDL; only the run log is migrated
	if err := db.AutoMigrate(&model.RunLog{}); err != nil {
		slog.Warn("failed to auto-migrate run log", "error", err)
	}

	slog.Info("connected to database", "driver", cfg.DBDriver, "host", cfg.DBHost, "name", cfg.DBName)
	return db, nil
}
