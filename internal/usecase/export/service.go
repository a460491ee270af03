package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/ports"
)

const (
	OutcomeExported  = "exported"
	OutcomeEmpty     = "empty"
	OutcomeDenied    = "denied"
	OutcomeFailed    = "failed"
	defaultListLimit = 50
)

type Options struct {
	Location       *time.Location
	FilenamePrefix string
	Profile        ports.FieldProfile
	Metrics        ports.Metrics
}

type Service struct {
	repo      ports.SubmissionReadRepository
	loc       *time.Location
	prefix    string
	profile   ports.FieldProfile
	metrics   ports.Metrics
	projector submission.Projector
	now       func() time.Time
}

func NewService(repo ports.SubmissionReadRepository, opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	profile := opts.Profile
	if profile == nil {
		profile = ports.StaticProfile(submission.DefaultAliases())
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		repo:      repo,
		loc:       loc,
		prefix:    opts.FilenamePrefix,
		profile:   profile,
		metrics:   metrics,
		projector: submission.NewProjector(loc),
		now:       time.Now,
	}
}

// Export is a prepared CSV download. An Empty export carries no file.
type Export struct {
	Filename string
	Records  []submission.Record

	projector submission.Projector
}

func (e Export) Empty() bool {
	return len(e.Records) == 0
}

// WriteCSV streams the file body.
func (e Export) WriteCSV(w io.Writer) error {
	if e.Empty() {
		return errors.New("empty export has no file")
	}
	return e.projector.Write(w, e.Records)
}

// Prepare checks the principal, then queries the records the params select.
// Nothing is read from the store for a principal that is not an
// administrator.
func (s *Service) Prepare(ctx context.Context, principal access.Principal, params submission.ExportParams) (Export, error) {
	if ctx == nil {
		return Export{}, errors.New("context is required")
	}
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.export"),
		slog.String("subject", principal.Subject),
	)

	if err := access.RequireAdministrator(principal); err != nil {
		logging.Warn(logCtx, "export denied", slog.Any("err", errs.Loggable(err)))
		s.metrics.ExportOutcome(OutcomeDenied, 0)
		return Export{}, err
	}
	if s.repo == nil {
		return Export{}, errors.New("submission repository is required")
	}

	filter := submission.ParseFilter(params, s.loc)
	records, err := s.repo.QuerySubmissions(logCtx, filter)
	if err != nil {
		s.metrics.ExportOutcome(OutcomeFailed, 0)
		return Export{}, errs.E(errs.CodeStorage, err, "query submissions")
	}

	if len(records) == 0 {
		logging.Info(logCtx, "export matched no submissions", slog.String("form_title", filter.FormTitle))
		s.metrics.ExportOutcome(OutcomeEmpty, 0)
		return Export{}, nil
	}

	logging.Info(logCtx, "export prepared",
		slog.Int("rows", len(records)),
		slog.Int("limit", filter.Limit),
		slog.String("form_title", filter.FormTitle),
	)
	s.metrics.ExportOutcome(OutcomeExported, len(records))
	return Export{
		Filename:  submission.Filename(s.prefix, s.now()),
		Records:   records,
		projector: s.projector,
	}, nil
}
