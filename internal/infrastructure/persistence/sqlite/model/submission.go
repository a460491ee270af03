package model

type Submission struct {
	SubmissionID uint64 `gorm:"column:submission_id;primaryKey;autoIncrement"`
	FormID       string `gorm:"column:form_id;type:text;not null;default:''"`
	FormTitle    string `gorm:"column:form_title;type:text;not null;index"`
	Title        string `gorm:"column:title;type:text;not null"`
	Summary      string `gorm:"column:summary;type:text;not null"`
	Status       string `gorm:"column:status;type:text;not null"`
	CreatedAt    string `gorm:"column:created_at;type:text;not null;index"`
}

func (Submission) TableName() string {
	return "submissions"
}
