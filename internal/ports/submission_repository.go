package ports

import (
	"context"
	"errors"
	"time"

	"formledger/internal/domain/submission"
)

var ErrSubmissionNotFound = errors.New("submission not found")

type SubmissionReadRepository interface {
	// QuerySubmissions returns records matching filter, newest first, at most
	// filter.Limit of them (all when Limit <= 0).
	QuerySubmissions(ctx context.Context, filter submission.Filter) ([]submission.Record, error)
	GetSubmission(ctx context.Context, id uint64) (submission.Record, error)
}

type SubmissionRepository interface {
	SubmissionReadRepository
	// CreateSubmission stores the draft with its attributes and file
	// references atomically and assigns the id.
	CreateSubmission(ctx context.Context, draft submission.Draft, createdAt time.Time) (submission.Record, error)
}
