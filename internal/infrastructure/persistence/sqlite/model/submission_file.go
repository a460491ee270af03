package model

type SubmissionFile struct {
	SubmissionID uint64 `gorm:"column:submission_id;primaryKey"`
	FieldKey     string `gorm:"column:field_key;type:text;primaryKey"`
	Path         string `gorm:"column:path;type:text;not null"`
}

func (SubmissionFile) TableName() string {
	return "submission_files"
}
