package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()

	r.CaptureOutcome("captured")
	r.CaptureOutcome("captured")
	r.CaptureOutcome("duplicate")
	r.ExportOutcome("exported", 12)
	r.ExportOutcome("empty", 0)

	if got := testutil.ToFloat64(r.captures.WithLabelValues("captured")); got != 2 {
		t.Fatalf("captured = %v", got)
	}
	if got := testutil.ToFloat64(r.captures.WithLabelValues("duplicate")); got != 1 {
		t.Fatalf("duplicate = %v", got)
	}
	if got := testutil.ToFloat64(r.exportedRows); got != 12 {
		t.Fatalf("exported rows = %v", got)
	}
}

func TestRecorderHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.CaptureOutcome("captured")
	r.HTTPRequest("/hooks/submissions", "200")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`formledger_captures_total{outcome="captured"} 1`,
		`formledger_http_requests_total{route="/hooks/submissions",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
