package export

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"formledger/internal/bootstrap/logging"
	"formledger/internal/domain/access"
	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/ports"
)

type ListInput struct {
	FormTitle string
	Limit     string
}

// ListItem is one row of the admin submissions list.
type ListItem struct {
	ID   uint64 `json:"id"`
	Date string `json:"date"`
	Form string `json:"form"`
	submission.Contact
}

// Detail is the full admin view of a record, file paths included.
type Detail struct {
	ListItem
	Title      string                      `json:"title"`
	Summary    string                      `json:"summary"`
	Attributes map[string]submission.Value `json:"attributes"`
	Files      map[string]string           `json:"files"`
}

func (s *Service) List(ctx context.Context, principal access.Principal, input ListInput) ([]ListItem, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := access.RequireAdministrator(principal); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, errors.New("submission repository is required")
	}

	filter := submission.Filter{
		FormTitle: submission.SanitizeText(input.FormTitle),
		Limit:     defaultListLimit,
	}
	if raw := strings.TrimSpace(input.Limit); raw != "" {
		filter.Limit = max(1, atoiOrZero(raw))
	}

	records, err := s.repo.QuerySubmissions(ctx, filter)
	if err != nil {
		return nil, errs.E(errs.CodeStorage, err, "list submissions")
	}

	aliases := s.profile.Aliases()
	items := make([]ListItem, 0, len(records))
	for _, r := range records {
		items = append(items, s.listItem(r, aliases))
	}
	logging.Debug(ctx, "submissions listed", slog.Int("count", len(items)))
	return items, nil
}

func (s *Service) Get(ctx context.Context, principal access.Principal, id uint64) (Detail, error) {
	if ctx == nil {
		return Detail{}, errors.New("context is required")
	}
	if err := access.RequireAdministrator(principal); err != nil {
		return Detail{}, err
	}
	if s.repo == nil {
		return Detail{}, errors.New("submission repository is required")
	}

	r, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrSubmissionNotFound) {
			return Detail{}, errs.E(errs.CodeNotFound, err, "get submission "+strconv.FormatUint(id, 10))
		}
		return Detail{}, errs.E(errs.CodeStorage, err, "get submission")
	}

	attrs := r.Attributes
	if attrs == nil {
		attrs = map[string]submission.Value{}
	}
	files := r.Files
	if files == nil {
		files = map[string]string{}
	}
	return Detail{
		ListItem:   s.listItem(r, s.profile.Aliases()),
		Title:      r.Title,
		Summary:    r.Summary,
		Attributes: attrs,
		Files:      files,
	}, nil
}

func (s *Service) listItem(r submission.Record, aliases submission.Aliases) ListItem {
	return ListItem{
		ID:      r.ID,
		Date:    s.projector.FormatTime(r.CreatedAt),
		Form:    r.FormTitle,
		Contact: submission.InferContact(r.Attributes, aliases),
	}
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
