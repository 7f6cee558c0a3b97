package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/healthpredictor/platform/pkg/common/config"
	"github.com/healthpredictor/platform/pkg/common/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenSQLite opens a pure-Go SQLite database. It backs single-node
// development setups and repository tests; ":memory:" is accepted.
// The pool is pinned to one connection so an in-memory database is shared
// by every query and foreign keys stay enforced.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn+"?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Open connects to the database selected by DATABASE_DRIVER.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case "", "postgres":
		return OpenPostgres(cfg)
	case "sqlite":
		db, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to open SQLite")
			return nil, err
		}
		logger.Log.WithField("path", cfg.SQLitePath).Info("Opened SQLite")
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
