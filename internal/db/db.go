package db

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IsSQLite reports whether dsn names a sqlite database rather than mysql.
func IsSQLite(dsn string) bool {
	d := strings.ToLower(dsn)
	return strings.HasPrefix(d, "file:") ||
		strings.Contains(d, ":memory:") ||
		strings.HasSuffix(strings.SplitN(d, "?", 2)[0], ".db")
}

func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn), TranslateError: true}

	if IsSQLite(dsn) {
		gdb, err := gorm.Open(gormsqlite.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows one writer at a time
		sqlDB.SetMaxOpenConns(1)
		return gdb, nil
	}

	gdb, err := gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return gdb, nil
}

// Connect is Open for process start-up: failure exits.
func Connect(dsn string) *gorm.DB {
	gdb, err := Open(dsn)
	if err != nil {
		slog.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	return gdb
}

func Migrate(gdb *gorm.DB, models ...any) error {
	if err := gdb.AutoMigrate(models...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	slog.Info("schema migrated", "tables", len(models))
	return nil
}
