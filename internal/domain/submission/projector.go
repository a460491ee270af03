package submission

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	filenameLayout  = "20060102-150405"
	flushEvery      = 100
)

var fixedHeader = []string{"ID", "Date", "Form"}

// Columns is the sorted union of attribute keys over records. File
// references are never part of it.
func Columns(records []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for key := range r.Attributes {
			seen[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Projector renders records as CSV.
type Projector struct {
	loc *time.Location
}

// NewProjector renders dates in loc (UTC when nil).
func NewProjector(loc *time.Location) Projector {
	if loc == nil {
		loc = time.UTC
	}
	return Projector{loc: loc}
}

type flusher interface {
	Flush()
}

// Write streams header and rows to w in record order, flushing as it goes
// when w supports it (http.ResponseWriter does).
func (p Projector) Write(w io.Writer, records []Record) error {
	columns := Columns(records)
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(fixedHeader)+len(columns))
	header = append(header, fixedHeader...)
	for _, key := range columns {
		header = append(header, HeaderName(key))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, r := range records {
		row = row[:0]
		row = append(row,
			strconv.FormatUint(r.ID, 10),
			p.FormatTime(r.CreatedAt),
			r.FormTitle,
		)
		for _, key := range columns {
			value, ok := r.Attributes[key]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, value.String())
		}
		if err := cw.Write(row); err != nil {
			return err
		}
		if (i+1)%flushEvery == 0 {
			if err := p.flush(cw, w); err != nil {
				return err
			}
		}
	}
	return p.flush(cw, w)
}

func (p Projector) flush(cw *csv.Writer, w io.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
	return nil
}

func (p Projector) FormatTime(t time.Time) string {
	return t.In(p.loc).Format(timestampLayout)
}

// Filename is "<prefix>-YYYYMMDD-HHMMSS.csv" with the UTC time of now.
func Filename(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "form-submissions"
	}
	return prefix + "-" + now.UTC().Format(filenameLayout) + ".csv"
}
