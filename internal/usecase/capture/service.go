package capture

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/ports"
)

const (
	DefaultDedupTTL = 24 * time.Hour

	deliveryKeyPrefix = "capture:delivery:"
	pendingMarker     = "pending"
)

// Outcomes reported through Result.Reason and metrics.
const (
	OutcomeCaptured       = "captured"
	OutcomeInvalidPayload = "invalid_payload"
	OutcomeDuplicate      = "duplicate"
	OutcomeStorageFailed  = "storage_failed"
)

type Options struct {
	Rules    submission.Rules
	DedupTTL time.Duration
	Metrics  ports.Metrics
}

type Service struct {
	repo       ports.SubmissionRepository
	uow        ports.UnitOfWork
	cache      ports.Cache
	normalizer *submission.Normalizer
	dedupTTL   time.Duration
	metrics    ports.Metrics
	now        func() time.Time
}

// NewService wires capture with the record store. cache may be nil, which
// disables delivery dedup.
func NewService(repo ports.SubmissionRepository, uow ports.UnitOfWork, cache ports.Cache, opts Options) *Service {
	ttl := opts.DedupTTL
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		repo:       repo,
		uow:        uow,
		cache:      cache,
		normalizer: submission.NewNormalizer(opts.Rules),
		dedupTTL:   ttl,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Result describes one capture attempt. Captured is false for recoverable
// no-ops; Reason then says which.
type Result struct {
	Captured bool
	Reason   string
	Record   submission.Record
}

// Capture parses and stores a raw event body. Malformed bodies are a no-op,
// not an error.
func (s *Service) Capture(ctx context.Context, body []byte) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("context is required")
	}

	payload, ok := submission.ParsePayload(body)
	if !ok {
		logging.Warn(ctx, "submission event dropped: no usable payload", slog.Int("bytes", len(body)))
		s.metrics.CaptureOutcome(OutcomeInvalidPayload)
		return Result{Reason: OutcomeInvalidPayload}, nil
	}
	return s.CapturePayload(ctx, payload)
}

// CapturePayload stores an already parsed payload. A storage failure leaves
// nothing behind and is returned with errs.CodeStorage.
func (s *Service) CapturePayload(ctx context.Context, payload submission.Payload) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return Result{}, errors.New("submission repository is required")
	}
	if s.uow == nil {
		return Result{}, errors.New("submission unit of work is required")
	}

	draft := s.normalizer.Normalize(payload)
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.capture"),
		slog.String("form_title", draft.FormTitle),
	)
	if payload.DeliveryID != "" {
		logCtx = logging.WithAttrs(logCtx, slog.String("delivery_id", payload.DeliveryID))
	}

	claimKey, claimed := s.claimDelivery(logCtx, payload.DeliveryID)
	if claimKey != "" && !claimed {
		logging.Info(logCtx, "submission event dropped: duplicate delivery")
		s.metrics.CaptureOutcome(OutcomeDuplicate)
		return Result{Reason: OutcomeDuplicate}, nil
	}

	var record submission.Record
	err := s.uow.WithTx(logCtx, func(txCtx context.Context) error {
		created, createErr := s.repo.CreateSubmission(txCtx, draft, s.now().UTC())
		if createErr != nil {
			return createErr
		}
		record = created
		return nil
	})
	if err != nil {
		s.releaseDelivery(logCtx, claimKey)
		logging.Error(logCtx, "submission event dropped: storage failure", slog.Any("err", errs.Loggable(err)))
		s.metrics.CaptureOutcome(OutcomeStorageFailed)
		return Result{Reason: OutcomeStorageFailed}, errs.E(errs.CodeStorage, errs.WithStack(err), "store submission")
	}

	if claimKey != "" {
		if setErr := s.cache.Set(logCtx, claimKey, strconv.FormatUint(record.ID, 10), s.dedupTTL); setErr != nil {
			logging.Warn(logCtx, "record delivery id failed", slog.Any("err", errs.Loggable(setErr)))
		}
	}

	logging.Info(logCtx, "submission captured",
		slog.Uint64("submission_id", record.ID),
		slog.Int("attributes", len(record.Attributes)),
		slog.Int("files", len(record.Files)),
	)
	s.metrics.CaptureOutcome(OutcomeCaptured)
	return Result{Captured: true, Record: record}, nil
}

// claimDelivery returns the dedup key and whether this call owns it. An
// empty key means dedup does not apply. Cache errors fail open.
func (s *Service) claimDelivery(ctx context.Context, deliveryID string) (string, bool) {
	if deliveryID == "" || s.cache == nil {
		return "", false
	}

	key := deliveryKeyPrefix + deliveryID
	stored, err := s.cache.SetIfAbsent(ctx, key, pendingMarker, s.dedupTTL)
	if err != nil {
		logging.Warn(ctx, "delivery dedup unavailable", slog.Any("err", errs.Loggable(err)))
		return "", false
	}
	return key, stored
}

func (s *Service) releaseDelivery(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		logging.Warn(ctx, "release delivery id failed", slog.Any("err", errs.Loggable(err)))
	}
}
