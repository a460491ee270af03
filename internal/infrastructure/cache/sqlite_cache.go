package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"formledger/internal/errs"
	"formledger/internal/infrastructure/persistence/sqlite/model"
	"formledger/internal/ports"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.Cache = (*SQLiteCache)(nil)

func NewSQLiteCache(db *gorm.DB) *SQLiteCache {
	return &SQLiteCache{db: db, now: time.Now}
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.KVEntry
	if err := c.db.WithContext(ctx).
		Where("key = ?", trimmedKey).
		Where("expires_at IS NULL OR expires_at > ?", c.stamp(0)).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query cache by key")
	}

	return row.Value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	row := c.entry(trimmedKey, value, ttl)
	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

// SetIfAbsent claims key. An expired entry counts as absent and is replaced.
func (c *SQLiteCache) SetIfAbsent(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return false, err
	}

	stored := false
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("key = ?", trimmedKey).
			Where("expires_at IS NOT NULL AND expires_at <= ?", c.stamp(0)).
			Delete(&model.KVEntry{}).Error; err != nil {
			return errs.Wrap(err, "purge expired cache key")
		}

		row := c.entry(trimmedKey, value, ttl)
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&row)
		if result.Error != nil {
			return errs.Wrap(result.Error, "insert cache key")
		}
		stored = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return stored, nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	if err := c.db.WithContext(ctx).Where("key = ?", trimmedKey).Delete(&model.KVEntry{}).Error; err != nil {
		return errs.Wrap(err, "delete cache key")
	}
	return nil
}

func (c *SQLiteCache) entry(key string, value string, ttl time.Duration) model.KVEntry {
	row := model.KVEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: c.stamp(0),
	}
	if ttl > 0 {
		expiresAt := c.stamp(ttl)
		row.ExpiresAt = &expiresAt
	}
	return row
}

func (c *SQLiteCache) stamp(offset time.Duration) string {
	return c.now().Add(offset).UTC().Format(timeLayout)
}

func checkKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", errors.New("key is required")
	}
	return trimmedKey, nil
}
