package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"formledger/internal/bootstrap/config"
)

func TestSQLiteFilePath(t *testing.T) {
	testCases := []struct {
		dsn    string
		want   string
		wantOK bool
	}{
		{dsn: ":memory:", wantOK: false},
		{dsn: "file::memory:?cache=shared", wantOK: false},
		{dsn: "local.sqlite", wantOK: false},
		{dsn: ".formledger/submissions.sqlite", want: ".formledger/submissions.sqlite", wantOK: true},
		{dsn: "file:/var/lib/fl/db.sqlite?_pragma=journal_mode(WAL)", want: "/var/lib/fl/db.sqlite", wantOK: true},
	}

	for _, testCase := range testCases {
		got, ok := sqliteFilePath(testCase.dsn)
		if got != testCase.want || ok != testCase.wantOK {
			t.Fatalf("sqliteFilePath(%q) = %q, %v, want %q, %v", testCase.dsn, got, ok, testCase.want, testCase.wantOK)
		}
	}
}

func TestOpenCreatesDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "data", "submissions.sqlite")

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	defer func() { _ = sqlDB.Close() }()

	var timeout int
	if err := db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error; err != nil {
		t.Fatalf("read busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Fatalf("busy_timeout = %d, want 5000", timeout)
	}
	if _, err := os.Stat(filepath.Dir(dsn)); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres", DSN: "x"}); err == nil {
		t.Fatalf("Open() expected error for unknown driver")
	}
}
