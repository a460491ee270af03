package model

import "gorm.io/datatypes"

type SubmissionAttribute struct {
	SubmissionID uint64         `gorm:"column:submission_id;primaryKey"`
	AttrKey      string         `gorm:"column:attr_key;type:text;primaryKey"`
	ValueJSON    datatypes.JSON `gorm:"column:value_json;not null"`
}

func (SubmissionAttribute) TableName() string {
	return "submission_attributes"
}
