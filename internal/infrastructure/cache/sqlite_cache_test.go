package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"formledger/internal/infrastructure/persistence/sqlite/model"
)

func setupSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "cache.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&model.KVEntry{}); err != nil {
		t.Fatalf("auto migrate kv_entries: %v", err)
	}

	return NewSQLiteCache(db)
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "capture:delivery:d-1", "11", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "capture:delivery:d-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "11" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "capture:delivery:d-1", "12", time.Hour); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, found, err = cache.Get(ctx, "capture:delivery:d-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "12" {
		t.Fatalf("Get() after update = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "capture:delivery:d-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, found, err = cache.Get(ctx, "capture:delivery:d-1")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Fatalf("Get() expected found=false after delete")
	}
}

func TestSQLiteCacheExpiry(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, _ := cache.Get(ctx, "k"); !found {
		t.Fatalf("Get() before expiry found=false")
	}

	now = now.Add(2 * time.Minute)
	if _, found, _ := cache.Get(ctx, "k"); found {
		t.Fatalf("Get() after expiry found=true")
	}
}

func TestSQLiteCacheSetIfAbsent(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	stored, err := cache.SetIfAbsent(ctx, "capture:delivery:x", "pending", time.Hour)
	if err != nil || !stored {
		t.Fatalf("SetIfAbsent() first = %v, %v", stored, err)
	}
	stored, err = cache.SetIfAbsent(ctx, "capture:delivery:x", "pending", time.Hour)
	if err != nil || stored {
		t.Fatalf("SetIfAbsent() second = %v, %v", stored, err)
	}

	now = now.Add(2 * time.Hour)
	stored, err = cache.SetIfAbsent(ctx, "capture:delivery:x", "again", time.Hour)
	if err != nil || !stored {
		t.Fatalf("SetIfAbsent() after expiry = %v, %v", stored, err)
	}
	value, _, _ := cache.Get(ctx, "capture:delivery:x")
	if value != "again" {
		t.Fatalf("Get() = %q", value)
	}
}

func TestSQLiteCacheRejectsEmptyKey(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, " "); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if _, err := cache.SetIfAbsent(ctx, "", "v", 0); err == nil {
		t.Fatalf("SetIfAbsent() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
