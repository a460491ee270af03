package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"formledger/internal/bootstrap/config"
	"formledger/internal/bootstrap/logging"
	"formledger/internal/errs"
	"formledger/internal/infrastructure/persistence/sqlite/model"
)

// ErrSchemaMissing means init-db has not been run against the database.
var ErrSchemaMissing = errors.New("database schema missing, run init-db")

type App struct {
	Config config.Config
	DB     *gorm.DB
}

// InitSchema creates or upgrades every table. It is safe to run repeatedly.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	models := model.All()
	if err := a.DB.WithContext(ctx).AutoMigrate(models...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema ready", slog.Int("tables", len(models)))
	return nil
}

// CheckSchema reports ErrSchemaMissing naming the absent tables.
func (a *App) CheckSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	migrator := a.DB.WithContext(ctx).Migrator()
	var missing []string
	for _, m := range model.All() {
		if migrator.HasTable(m) {
			continue
		}
		name := fmt.Sprintf("%T", m)
		if tabler, ok := m.(interface{ TableName() string }); ok {
			name = tabler.TableName()
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, strings.Join(missing, ", "))
	}
	return nil
}
