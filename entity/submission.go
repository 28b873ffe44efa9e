package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutputType string

const (
	OutputTypeCorrect   OutputType = "correct"
	OutputTypeIncorrect OutputType = "incorrect"
	OutputTypeError     OutputType = "error"
)

type Submission struct {
	ID          string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	UserID      string    `gorm:"column:user_id;type:varchar(36);uniqueIndex:uk_battle_user;not null" json:"userId"`
	BattleID    string    `gorm:"column:battle_id;type:varchar(36);uniqueIndex:uk_battle_user;not null" json:"battleId"`
	Code        string    `gorm:"column:code;type:text" json:"code"`
	SubmittedAt time.Time `gorm:"column:submitted_at" json:"submittedAt"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s *Submission) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

type SubmissionTestResult struct {
	ID           string     `gorm:"column:id;type:varchar(36);primaryKey"`
	SubmissionID string     `gorm:"column:submission_id;type:varchar(36);index;not null"`
	TestCaseID   string     `gorm:"column:test_case_id;type:varchar(36);not null"`
	Order        int        `gorm:"column:order_no;not null"`
	Output       string     `gorm:"column:output;type:text"`
	OutputType   OutputType `gorm:"column:output_type;type:varchar(16);not null"`
	Performance  int64      `gorm:"column:performance;not null"` // 单位: 毫秒
}

func (SubmissionTestResult) TableName() string {
	return "submission_test_results"
}

func (r *SubmissionTestResult) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
