package submission

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"
	"time"
)

func contactRecord(id uint64, created time.Time, attrs map[string]Value) Record {
	return Record{
		ID:        id,
		CreatedAt: created,
		Draft: Draft{
			FormTitle:  "Contact",
			Status:     StatusPrivate,
			Attributes: attrs,
			Files:      map[string]string{"cv": "/srv/cv.pdf"},
		},
	}
}

func TestProjectorTwoRecordExample(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	records := []Record{
		contactRecord(1, created, map[string]Value{"email": Single("a@x.com")}),
		contactRecord(2, created, map[string]Value{"phone": Single("555-1234")}),
	}

	var buf bytes.Buffer
	if err := NewProjector(time.UTC).Write(&buf, records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	want := "ID,Date,Form,email,phone\n" +
		"1,2024-05-06 07:08:09,Contact,a@x.com,\n" +
		"2,2024-05-06 07:08:09,Contact,,555-1234\n"
	if buf.String() != want {
		t.Fatalf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestProjectorRoundTripsThroughCSVReader(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []Record{
		contactRecord(9, created, map[string]Value{
			"message": Single("line \"quoted\", with comma"),
			"colours": List("red", "blue"),
		}),
		contactRecord(3, created.Add(-time.Hour), map[string]Value{
			"_private": Single("x"),
		}),
	}

	var buf bytes.Buffer
	if err := NewProjector(nil).Write(&buf, records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	want := [][]string{
		{"ID", "Date", "Form", "private", "colours", "message"},
		{"9", "2024-01-02 03:04:05", "Contact", "", "red, blue", "line \"quoted\", with comma"},
		{"3", "2024-01-02 02:04:05", "Contact", "x", "", ""},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %#v, want %#v", rows, want)
	}
	if strings.Contains(buf.String(), "/srv/cv.pdf") {
		t.Fatal("file reference leaked into csv")
	}
}

func TestColumnsFollowMatchedRecords(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a := contactRecord(1, now, map[string]Value{"email": Single("a")})
	b := contactRecord(2, now, map[string]Value{"phone": Single("b"), "email": Single("c")})

	if got := Columns([]Record{a, b}); !reflect.DeepEqual(got, []string{"email", "phone"}) {
		t.Fatalf("Columns(a,b) = %v", got)
	}
	if got := Columns([]Record{a}); !reflect.DeepEqual(got, []string{"email"}) {
		t.Fatalf("Columns(a) = %v", got)
	}
	if got := Columns(nil); len(got) != 0 {
		t.Fatalf("Columns(nil) = %v", got)
	}
}

func TestProjectorUsesLocation(t *testing.T) {
	t.Parallel()

	p := NewProjector(time.FixedZone("UTC-5", -5*60*60))
	got := p.FormatTime(time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC))
	if got != "2023-12-31 22:00:00" {
		t.Fatalf("FormatTime() = %q", got)
	}
}

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestProjectorFlushesIncrementally(t *testing.T) {
	t.Parallel()

	records := make([]Record, 250)
	for i := range records {
		records[i] = contactRecord(uint64(i+1), time.Now(), map[string]Value{"n": Single("v")})
	}

	var out flushRecorder
	if err := NewProjector(nil).Write(&out, records); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if out.flushes != 3 {
		t.Fatalf("flushes = %d, want 3", out.flushes)
	}
}

func TestFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 7, 8, 9, 10, 11, 0, time.FixedZone("X", 3600))
	if got := Filename("cf7-submissions", now); got != "cf7-submissions-20240708-081011.csv" {
		t.Fatalf("Filename() = %q", got)
	}
	if got := Filename("", now); got != "form-submissions-20240708-081011.csv" {
		t.Fatalf("Filename(empty) = %q", got)
	}
}
