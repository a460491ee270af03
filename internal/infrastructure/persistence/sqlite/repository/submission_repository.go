package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"formledger/internal/domain/submission"
	"formledger/internal/errs"
	"formledger/internal/infrastructure/persistence/sqlite/model"
	"formledger/internal/ports"
)

// createdAtLayout is fixed width so text comparison orders like time.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// idChunk bounds IN (...) lists when loading attributes for many records.
const idChunk = 500

type SubmissionRepository struct {
	db *gorm.DB
}

var _ ports.SubmissionRepository = (*SubmissionRepository)(nil)

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *SubmissionRepository) CreateSubmission(ctx context.Context, draft submission.Draft, createdAt time.Time) (submission.Record, error) {
	if ports.TxFromContext(ctx) == nil {
		var created submission.Record
		if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			record, err := r.CreateSubmission(ports.WithTxContext(ctx, tx), draft, createdAt)
			if err != nil {
				return err
			}
			created = record
			return nil
		}); err != nil {
			return submission.Record{}, err
		}
		return created, nil
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return submission.Record{}, err
	}

	status := draft.Status
	if status == "" {
		status = submission.StatusPrivate
	}
	row := model.Submission{
		FormID:    draft.FormID,
		FormTitle: draft.FormTitle,
		Title:     draft.Title,
		Summary:   draft.Summary,
		Status:    status,
		CreatedAt: formatCreatedAt(createdAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return submission.Record{}, errs.Wrap(err, "insert submission")
	}

	if len(draft.Attributes) > 0 {
		attrRows := make([]model.SubmissionAttribute, 0, len(draft.Attributes))
		for key, value := range draft.Attributes {
			raw, err := json.Marshal(value)
			if err != nil {
				return submission.Record{}, errs.Wrapf(err, "encode attribute %q", key)
			}
			attrRows = append(attrRows, model.SubmissionAttribute{
				SubmissionID: row.SubmissionID,
				AttrKey:      key,
				ValueJSON:    datatypes.JSON(raw),
			})
		}
		if err := db.Create(&attrRows).Error; err != nil {
			return submission.Record{}, errs.Wrap(err, "insert submission attributes")
		}
	}

	if len(draft.Files) > 0 {
		fileRows := make([]model.SubmissionFile, 0, len(draft.Files))
		for key, path := range draft.Files {
			fileRows = append(fileRows, model.SubmissionFile{
				SubmissionID: row.SubmissionID,
				FieldKey:     key,
				Path:         path,
			})
		}
		if err := db.Create(&fileRows).Error; err != nil {
			return submission.Record{}, errs.Wrap(err, "insert submission files")
		}
	}

	record := mapSubmission(row)
	record.Attributes = cloneAttributes(draft.Attributes)
	record.Files = cloneFiles(draft.Files)
	return record, nil
}

func (r *SubmissionRepository) QuerySubmissions(ctx context.Context, filter submission.Filter) ([]submission.Record, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Submission{})
	if filter.Since != nil {
		query = query.Where("created_at >= ?", formatCreatedAt(*filter.Since))
	}
	if filter.Until != nil {
		query = query.Where("created_at < ?", formatCreatedAt(*filter.Until))
	}
	if title := strings.TrimSpace(filter.FormTitle); title != "" {
		query = query.Where(`LOWER(form_title) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(title))+"%")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Submission
	if err := query.Order("created_at desc").Order("submission_id desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query submissions")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]submission.Record, 0, len(rows))
	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		records = append(records, mapSubmission(row))
		ids = append(ids, row.SubmissionID)
	}

	attrs, files, err := loadDetails(db, ids)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Attributes = attrs[records[i].ID]
		records[i].Files = files[records[i].ID]
	}
	return records, nil
}

func (r *SubmissionRepository) GetSubmission(ctx context.Context, id uint64) (submission.Record, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return submission.Record{}, err
	}

	var row model.Submission
	if err := db.Where("submission_id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return submission.Record{}, ports.ErrSubmissionNotFound
		}
		return submission.Record{}, errs.Wrap(err, "query submission")
	}

	attrs, files, err := loadDetails(db, []uint64{id})
	if err != nil {
		return submission.Record{}, err
	}
	record := mapSubmission(row)
	record.Attributes = attrs[id]
	record.Files = files[id]
	return record, nil
}

func loadDetails(db *gorm.DB, ids []uint64) (map[uint64]map[string]submission.Value, map[uint64]map[string]string, error) {
	attrs := make(map[uint64]map[string]submission.Value, len(ids))
	files := make(map[uint64]map[string]string)

	for start := 0; start < len(ids); start += idChunk {
		end := min(start+idChunk, len(ids))
		chunk := ids[start:end]

		var attrRows []model.SubmissionAttribute
		if err := db.Where("submission_id IN ?", chunk).Find(&attrRows).Error; err != nil {
			return nil, nil, errs.Wrap(err, "query submission attributes")
		}
		for _, row := range attrRows {
			var value submission.Value
			if err := json.Unmarshal(row.ValueJSON, &value); err != nil {
				return nil, nil, errs.Wrapf(err, "decode attribute %q of submission %d", row.AttrKey, row.SubmissionID)
			}
			if attrs[row.SubmissionID] == nil {
				attrs[row.SubmissionID] = make(map[string]submission.Value)
			}
			attrs[row.SubmissionID][row.AttrKey] = value
		}

		var fileRows []model.SubmissionFile
		if err := db.Where("submission_id IN ?", chunk).Find(&fileRows).Error; err != nil {
			return nil, nil, errs.Wrap(err, "query submission files")
		}
		for _, row := range fileRows {
			if files[row.SubmissionID] == nil {
				files[row.SubmissionID] = make(map[string]string)
			}
			files[row.SubmissionID][row.FieldKey] = row.Path
		}
	}

	return attrs, files, nil
}

func mapSubmission(row model.Submission) submission.Record {
	return submission.Record{
		ID:        row.SubmissionID,
		CreatedAt: parseCreatedAt(row.CreatedAt),
		Draft: submission.Draft{
			FormID:    row.FormID,
			FormTitle: row.FormTitle,
			Title:     row.Title,
			Summary:   row.Summary,
			Status:    row.Status,
		},
	}
}

func formatCreatedAt(t time.Time) string {
	return t.UTC().Format(createdAtLayout)
}

func parseCreatedAt(raw string) time.Time {
	t, err := time.Parse(createdAtLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func cloneAttributes(in map[string]submission.Value) map[string]submission.Value {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]submission.Value, len(in))
	for key, value := range in {
		out[key] = submission.Value{Items: slices.Clone(value.Items), Multi: value.Multi}
	}
	return out
}

func cloneFiles(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	return maps.Clone(in)
}
