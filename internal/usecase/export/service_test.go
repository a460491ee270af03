package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"formledger/internal/domain/access"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/ports"
)

// memoryRepo applies submission.Filter the way the SQLite store does.
type memoryRepo struct {
	records []submission.Record
	queries int
	gets    int
}

func (m *memoryRepo) QuerySubmissions(_ context.Context, filter submission.Filter) ([]submission.Record, error) {
	m.queries++
	var out []submission.Record
	for _, r := range m.records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memoryRepo) GetSubmission(_ context.Context, id uint64) (submission.Record, error) {
	m.gets++
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return submission.Record{}, ports.ErrSubmissionNotFound
}

type failingRepo struct{ memoryRepo }

func (f *failingRepo) QuerySubmissions(context.Context, submission.Filter) ([]submission.Record, error) {
	return nil, errors.New("database is locked")
}

var admin = access.Principal{Subject: "root", Roles: []string{access.RoleAdministrator}}

func record(id uint64, title string, created string, attrs map[string]submission.Value) submission.Record {
	at, _ := time.Parse(time.RFC3339, created)
	return submission.Record{
		ID:        id,
		CreatedAt: at,
		Draft: submission.Draft{
			FormTitle:  title,
			Status:     submission.StatusPrivate,
			Attributes: attrs,
			Files:      map[string]string{"cv": "/srv/uploads/cv.pdf"},
		},
	}
}

func seededRepo() *memoryRepo {
	return &memoryRepo{records: []submission.Record{
		record(1, "Contact", "2024-01-10T08:00:00Z", map[string]submission.Value{"email": submission.Single("a@x.com")}),
		record(2, "Contact", "2024-01-11T09:30:00Z", map[string]submission.Value{"phone": submission.Single("555-1234")}),
		record(3, "Newsletter", "2024-01-12T10:00:00Z", map[string]submission.Value{"topics": submission.List("go", "sql")}),
	}}
}

func TestPrepareRejectsNonAdministratorBeforeStoreAccess(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, Options{})

	for _, principal := range []access.Principal{{}, {Subject: "sam", Roles: []string{"editor"}}} {
		exp, err := svc.Prepare(context.Background(), principal, submission.ExportParams{})
		if err == nil {
			t.Fatalf("Prepare(%v) expected error", principal)
		}
		if code := errs.CodeOf(err); code != errs.CodeUnauthenticated && code != errs.CodeForbidden {
			t.Fatalf("Prepare(%v) code = %q", principal, code)
		}
		if len(exp.Records) != 0 {
			t.Fatalf("Prepare(%v) returned records", principal)
		}
	}
	if repo.queries != 0 {
		t.Fatalf("store queried %d times for denied principals", repo.queries)
	}
}

func TestPrepareEmptyResult(t *testing.T) {
	svc := NewService(seededRepo(), Options{})

	exp, err := svc.Prepare(context.Background(), admin, submission.ExportParams{FormTitle: "no such form"})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !exp.Empty() {
		t.Fatalf("Prepare() empty = false")
	}
	var buf bytes.Buffer
	if err := exp.WriteCSV(&buf); err == nil || buf.Len() != 0 {
		t.Fatalf("WriteCSV() on empty export = %v, %q", err, buf.String())
	}
}

func TestPrepareTwoRecordExample(t *testing.T) {
	svc := NewService(seededRepo(), Options{FilenamePrefix: "cf7-submissions"})
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }

	exp, err := svc.Prepare(context.Background(), admin, submission.ExportParams{FormTitle: "contact"})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if exp.Filename != "cf7-submissions-20240201-120000.csv" {
		t.Fatalf("filename = %q", exp.Filename)
	}

	var buf bytes.Buffer
	if err := exp.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	want := "ID,Date,Form,email,phone\n" +
		"2,2024-01-11 09:30:00,Contact,,555-1234\n" +
		"1,2024-01-10 08:00:00,Contact,a@x.com,\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPrepareAppliesDateRangeAndLimit(t *testing.T) {
	svc := NewService(seededRepo(), Options{})
	ctx := context.Background()

	exp, err := svc.Prepare(ctx, admin, submission.ExportParams{From: "2024-01-11", To: "2024-01-12"})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(exp.Records) != 2 || exp.Records[0].ID != 3 || exp.Records[1].ID != 2 {
		t.Fatalf("records = %#v", exp.Records)
	}

	exp, err = svc.Prepare(ctx, admin, submission.ExportParams{Limit: "zero"})
	if err != nil {
		t.Fatalf("Prepare(limit) error = %v", err)
	}
	if len(exp.Records) != 1 || exp.Records[0].ID != 3 {
		t.Fatalf("limit coerced records = %#v", exp.Records)
	}

	var buf bytes.Buffer
	if err := exp.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 || rows[0][3] != "topics" || rows[1][3] != "go, sql" {
		t.Fatalf("rows = %#v", rows)
	}
}

func TestPrepareInTimeZone(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	svc := NewService(seededRepo(), Options{Location: loc})

	exp, err := svc.Prepare(context.Background(), admin, submission.ExportParams{To: "2024-01-10"})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(exp.Records) != 1 || exp.Records[0].ID != 1 {
		t.Fatalf("records = %#v", exp.Records)
	}

	var buf bytes.Buffer
	if err := exp.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if !strings.Contains(buf.String(), "2024-01-10 18:00:00") {
		t.Fatalf("csv = %q", buf.String())
	}
}

func TestPrepareStorageFailure(t *testing.T) {
	svc := NewService(&failingRepo{}, Options{})

	_, err := svc.Prepare(context.Background(), admin, submission.ExportParams{})
	if errs.CodeOf(err) != errs.CodeStorage {
		t.Fatalf("Prepare() error = %v", err)
	}
}

func TestListAndGet(t *testing.T) {
	repo := seededRepo()
	repo.records[0].Attributes["your-name"] = submission.Single("Ana")
	profile := ports.StaticProfile(submission.Aliases{Name: []string{"your-name"}, Email: []string{"email"}, Phone: []string{"phone"}})
	svc := NewService(repo, Options{Profile: profile})
	ctx := context.Background()

	items, err := svc.List(ctx, admin, ListInput{FormTitle: "Contact"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %#v", items)
	}
	if items[0].ID != 2 || items[0].Phone != "555-1234" || items[1].Name != "Ana" || items[1].Email != "a@x.com" {
		t.Fatalf("items = %#v", items)
	}

	detail, err := svc.Get(ctx, admin, 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if detail.Files["cv"] != "/srv/uploads/cv.pdf" || detail.Date != "2024-01-10 08:00:00" {
		t.Fatalf("detail = %#v", detail)
	}

	if _, err := svc.Get(ctx, admin, 99); errs.CodeOf(err) != errs.CodeNotFound {
		t.Fatalf("Get(99) error = %v", err)
	}
}

func TestListRejectsNonAdministrator(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, Options{})

	if _, err := svc.List(context.Background(), access.Principal{Subject: "sam"}, ListInput{}); errs.CodeOf(err) != errs.CodeForbidden {
		t.Fatalf("List() error = %v", err)
	}
	if _, err := svc.Get(context.Background(), access.Principal{}, 1); errs.CodeOf(err) != errs.CodeUnauthenticated {
		t.Fatalf("Get() error = %v", err)
	}
	if repo.queries != 0 || repo.gets != 0 {
		t.Fatalf("store touched: queries=%d gets=%d", repo.queries, repo.gets)
	}
}
