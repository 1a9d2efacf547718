// Package db opens the gorm connection for the configured engine and migrates the schema.
package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/config"
	"github.com/pkp/pkplib/internal/db/dsn"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/logger/adapter/gormlog"
)

// ErrConfigNil is returned when no configuration is passed to Open.
var ErrConfigNil = errors.New("config is nil")

// Dialector returns the gorm dialector for the configured engine.
func Dialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.Engine {
	case config.DBEnginePostgres:
		return postgres.Open(dsn.Create(cfg))
	case config.DBEngineSQLite:
		return sqlite.Open(dsn.Create(cfg))
	default:
		return gormmysql.Open(dsn.Create(cfg))
	}
}

// Open connects to the configured database and migrates all models.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	db, err := gorm.Open(Dialector(cfg), &gorm.Config{
		Logger: gormlog.New(
			gormlog.ParseLevel(cfg.DB.LogLevel),
			time.Duration(cfg.DB.SlowSQL)*time.Millisecond,
			nil,
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
