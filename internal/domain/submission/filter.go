package submission

import (
	"strconv"
	"strings"
	"time"
)

const (
	DefaultExportLimit = 1000
	dateLayout         = "2006-01-02"
)

// ExportParams are the raw export request values as typed by an administrator.
type ExportParams struct {
	From      string
	To        string
	FormTitle string
	Limit     string
}

// Filter selects records for export. Since is inclusive, Until exclusive;
// nil bounds are open.
type Filter struct {
	Since     *time.Time
	Until     *time.Time
	FormTitle string
	Limit     int
}

// ParseFilter never fails: unparsable dates become open bounds and a limit
// that is not a positive number becomes 1. Dates are calendar days in loc;
// To covers its whole day.
func ParseFilter(params ExportParams, loc *time.Location) Filter {
	if loc == nil {
		loc = time.UTC
	}

	filter := Filter{
		FormTitle: SanitizeText(params.FormTitle),
		Limit:     parseLimit(params.Limit),
	}
	if day, ok := parseDay(params.From, loc); ok {
		filter.Since = &day
	}
	if day, ok := parseDay(params.To, loc); ok {
		next := day.AddDate(0, 0, 1)
		filter.Until = &next
	}
	return filter
}

func parseDay(raw string, loc *time.Location) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(dateLayout, trimmed, loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

func parseLimit(raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultExportLimit
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Matches applies the filter to one record; stores use it for reference
// semantics and tests.
func (f Filter) Matches(r Record) bool {
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !r.CreatedAt.Before(*f.Until) {
		return false
	}
	if f.FormTitle != "" && !strings.Contains(strings.ToLower(r.FormTitle), strings.ToLower(f.FormTitle)) {
		return false
	}
	return true
}
