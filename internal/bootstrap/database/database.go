package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"formledger/internal/bootstrap/config"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/errs"
)

// sqlitePragmas run on the single pooled connection right after open.
var sqlitePragmas = []string{
	"PRAGMA busy_timeout = 5000",
}

func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.database"))

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite", "sqlite3":
		return openSQLite(logCtx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, dsn string) (*gorm.DB, error) {
	if path, ok := sqliteFilePath(dsn); ok {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errs.Wrapf(err, "create sqlite directory %q", dir)
		}
	}

	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errs.Wrap(err, "open sqlite db")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Wrap(err, "get sql db")
	}
	// One connection: writers serialize and the pragmas below stick.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if err := db.WithContext(ctx).Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			return nil, errs.Wrapf(err, "apply %q", pragma)
		}
	}

	logging.Info(ctx, "database opened", slog.String("driver", "sqlite"), slog.String("dsn", dsn))
	return db, nil
}

// sqliteFilePath returns the file behind dsn, or false for in-memory
// databases and paths in the working directory.
func sqliteFilePath(dsn string) (string, bool) {
	candidate := strings.TrimSpace(dsn)
	if lower := strings.ToLower(candidate); strings.HasPrefix(lower, "file:") {
		candidate = candidate[len("file:"):]
	}
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if candidate == "" || candidate == ":memory:" {
		return "", false
	}
	if dir := filepath.Dir(candidate); dir == "." {
		return "", false
	}
	return candidate, true
}
