package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/domain/submission"
	"formledger/internal/infrastructure/auth"
	"formledger/internal/infrastructure/metrics"
	"formledger/internal/usecase/capture"
	"formledger/internal/usecase/export"
)

const requestIDHeader = "X-Request-Id"

type submissionCapturer interface {
	Capture(ctx context.Context, body []byte) (capture.Result, error)
}

type submissionExporter interface {
	Prepare(ctx context.Context, principal access.Principal, params submission.ExportParams) (export.Export, error)
	List(ctx context.Context, principal access.Principal, input export.ListInput) ([]export.ListItem, error)
	Get(ctx context.Context, principal access.Principal, id uint64) (export.Detail, error)
}

type routerDeps struct {
	Capture       submissionCapturer
	Export        submissionExporter
	Issuer        *auth.Issuer
	Metrics       *metrics.Recorder
	WebhookSecret string
	MaxBodyBytes  int64
}

func newRouter(ctx context.Context, deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestContext(ctx))
	r.Use(middleware.Recoverer)
	r.Use(requestLog(deps.Metrics))

	hooks := &captureHTTPHandler{
		svc:          deps.Capture,
		secret:       deps.WebhookSecret,
		maxBodyBytes: deps.MaxBodyBytes,
	}
	r.Post("/hooks/submissions", hooks.handleCapture)

	admin := &adminHTTPHandler{
		svc:          deps.Export,
		nonces:       deps.Issuer,
		maxBodyBytes: deps.MaxBodyBytes,
	}
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.Middleware(deps.Issuer))

		r.Get("/export", admin.exportPage)
		r.Post("/export", admin.exportDownload)
		r.Get("/submissions", admin.listSubmissions)
		r.Get("/submissions/{id}", admin.getSubmission)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	return r
}

// requestContext carries the server logger into each request and tags it
// with a request id, reusing the caller's X-Request-Id when present.
func requestContext(base context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := logging.WithLogger(r.Context(), logging.Logger(base))
			ctx = logging.WithAttrs(ctx, logging.Attrs(base)...)
			ctx = logging.WithRequestID(ctx, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestLog(recorder *metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if recorder != nil {
				recorder.HTTPRequest(route, strconv.Itoa(status))
			}
			logging.Debug(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
