package uow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"formledger/internal/domain/submission"
	"formledger/internal/infrastructure/persistence/sqlite/model"
	"formledger/internal/infrastructure/persistence/sqlite/repository"
	"formledger/internal/ports"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "uow.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func countSubmissions(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.Submission{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	u := NewUnitOfWork(db)
	repo := repository.NewSubmissionRepository(db)
	boom := errors.New("boom")

	err := u.WithTx(context.Background(), func(ctx context.Context) error {
		if ports.TxFromContext(ctx) == nil {
			t.Fatalf("no transaction in context")
		}
		draft := submission.Draft{FormTitle: "Contact", Attributes: map[string]submission.Value{"email": submission.Single("a@x.com")}}
		if _, err := repo.CreateSubmission(ctx, draft, time.Now()); err != nil {
			t.Fatalf("CreateSubmission() error = %v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v", err)
	}
	if n := countSubmissions(t, db); n != 0 {
		t.Fatalf("submissions = %d after rollback", n)
	}
}

func TestWithTxJoinsOuterTransaction(t *testing.T) {
	db := openTestDB(t)
	u := NewUnitOfWork(db)

	err := u.WithTx(context.Background(), func(outer context.Context) error {
		outerTx := ports.TxFromContext(outer)
		return u.WithTx(outer, func(inner context.Context) error {
			if ports.TxFromContext(inner) != outerTx {
				t.Fatalf("nested WithTx opened a second transaction")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}
}
