package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formledger/internal/ports"
)

// Recorder implements ports.Metrics on a private Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	captures     *prometheus.CounterVec
	exports      *prometheus.CounterVec
	exportedRows prometheus.Counter
	httpRequests *prometheus.CounterVec
}

var _ ports.Metrics = (*Recorder)(nil)

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		captures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formledger_captures_total",
				Help: "Submission events by capture outcome",
			},
			[]string{"outcome"},
		),
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formledger_exports_total",
				Help: "Export requests by outcome",
			},
			[]string{"outcome"},
		),
		exportedRows: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "formledger_exported_rows_total",
				Help: "CSV rows written by exports",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formledger_http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "status"},
		),
	}
}

func (r *Recorder) CaptureOutcome(outcome string) {
	r.captures.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ExportOutcome(outcome string, rows int) {
	r.exports.WithLabelValues(outcome).Inc()
	if rows > 0 {
		r.exportedRows.Add(float64(rows))
	}
}

func (r *Recorder) HTTPRequest(route string, status string) {
	r.httpRequests.WithLabelValues(route, status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
