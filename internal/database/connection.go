// Package database provides database connection and migration utilities.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

//go:embed migrations
var migrationsFS embed.FS

// driverName maps a configured driver to its database/sql name.
func driverName(d config.DatabaseDriver) string {
	if d == config.DriverSQLite {
		return "sqlite"
	}
	return "mysql"
}

// DSN builds the data source name for cfg.
func DSN(cfg config.DatabaseConfig) string {
	if cfg.Driver == config.DriverSQLite {
		return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", cfg.Path)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// Open migrates the schema to the latest version and connects.
func Open(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if err := Migrate(cfg); err != nil {
		return nil, err
	}
	return Connect(cfg)
}

// Connect establishes a connection to the configured database.
// The connection is configured with pool settings suited to the driver and includes a connectivity test.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if err := ensureDir(cfg); err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driverName(cfg.Driver), DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate applies pending schema migrations using a dedicated connection.
func Migrate(cfg config.DatabaseConfig) error {
	if err := ensureDir(cfg); err != nil {
		return err
	}

	db, err := sql.Open(driverName(cfg.Driver), DSN(cfg))
	if err != nil {
		return fmt.Errorf("open database for migration: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(cfg.Driver))
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("load migrations: %w", err)
	}

	var m *migrate.Migrate
	switch cfg.Driver {
	case config.DriverSQLite:
		drv, derr := migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if derr != nil {
			_ = db.Close()
			return fmt.Errorf("init sqlite migration driver: %w", derr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite", drv)
	default:
		drv, derr := migratemysql.WithInstance(db, &migratemysql.Config{})
		if derr != nil {
			_ = db.Close()
			return fmt.Errorf("init mysql migration driver: %w", derr)
		}
		m, err = migrate.NewWithInstance("iofs", src, "mysql", drv)
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Failed to close migration resources: %v %v", srcErr, dbErr)
		}
		_ = db.Close()
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	v, dirty, err := m.Version()
	if err == nil {
		logger.Info("Database schema at version %d (dirty: %t)", v, dirty)
	}
	return nil
}

func ensureDir(cfg config.DatabaseConfig) error {
	if cfg.Driver != config.DriverSQLite {
		return nil
	}
	dir := filepath.Dir(cfg.Path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
