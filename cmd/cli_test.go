package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"formledger/internal/domain/access"
	"formledger/internal/domain/submission"
	"formledger/internal/usecase/export"
)

func TestReadEventBody(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "event.json")
	if err := os.WriteFile(path, []byte(`{"fields":{}}`), 0o600); err != nil {
		t.Fatalf("write event: %v", err)
	}

	body, err := readEventBody(strings.NewReader("ignored"), path)
	if err != nil || string(body) != `{"fields":{}}` {
		t.Fatalf("readEventBody(file) = %q, %v", body, err)
	}
	body, err = readEventBody(strings.NewReader("from stdin"), "-")
	if err != nil || string(body) != "from stdin" {
		t.Fatalf("readEventBody(stdin) = %q, %v", body, err)
	}
	if _, err := readEventBody(nil, filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("readEventBody(missing) expected error")
	}
}

func preparedExport(t *testing.T) export.Export {
	t.Helper()
	repo := &memorySubmissions{records: []submission.Record{{
		ID:        1,
		CreatedAt: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
		Draft: submission.Draft{
			FormTitle:  "Contact",
			Attributes: map[string]submission.Value{"email": submission.Single("a@x.com")},
		},
	}}}
	exp, err := export.NewService(repo, export.Options{}).Prepare(context.Background(), access.Operator(""), submission.ExportParams{})
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return exp
}

func TestWriteExportTargets(t *testing.T) {
	t.Parallel()

	exp := preparedExport(t)
	want := "ID,Date,Form,email\n1,2024-01-10 08:00:00,Contact,a@x.com\n"

	var stdout, stderr bytes.Buffer
	if err := writeExport(&stdout, &stderr, "-", exp); err != nil {
		t.Fatalf("writeExport(stdout) error = %v", err)
	}
	if stdout.String() != want {
		t.Fatalf("stdout = %q", stdout.String())
	}

	dir := t.TempDir()
	if err := writeExport(&stdout, &stderr, dir, exp); err != nil {
		t.Fatalf("writeExport(dir) error = %v", err)
	}
	written, err := os.ReadFile(filepath.Join(dir, exp.Filename))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(written) != want {
		t.Fatalf("file = %q", written)
	}
	if !strings.Contains(stderr.String(), "exported 1 submissions to ") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
