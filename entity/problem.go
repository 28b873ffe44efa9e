package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Problem 题库中的题目, 按 Order 排序的前 ExampleCount 个测试用例为公开样例
type Problem struct {
	ID             string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Prompt         string     `gorm:"column:prompt;type:text" json:"prompt"`
	InputFormat    string     `gorm:"column:input_format;type:text" json:"inputFormat"`
	OutputFormat   string     `gorm:"column:output_format;type:text" json:"outputFormat"`
	ExampleCount   int        `gorm:"column:example_count;not null" json:"exampleCount"`
	ReviewVideoURL string     `gorm:"column:review_video_url;type:varchar(512)" json:"reviewVideoURL"`
	ReviewText     string     `gorm:"column:review_text;type:text" json:"reviewText"`
	CreatedAt      time.Time  `gorm:"column:created_at" json:"createdAt"`
	TestCases      []TestCase `gorm:"foreignKey:ProblemID" json:"testCases,omitempty"`
}

func (Problem) TableName() string {
	return "problems"
}

func (p *Problem) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type TestCase struct {
	ID        string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	ProblemID string `gorm:"column:problem_id;type:varchar(36);index;not null" json:"problemId"`
	Order     int    `gorm:"column:order_no;not null" json:"order"`
	Input     string `gorm:"column:input;type:text" json:"input"`
	Output    string `gorm:"column:output;type:text" json:"output"`
}

func (TestCase) TableName() string {
	return "test_cases"
}

func (t *TestCase) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
