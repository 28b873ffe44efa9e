package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BattleResult 每场对战唯一, 第一份提交时创建, 结算时写入胜负
type BattleResult struct {
	ID              string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	BattleID        string    `gorm:"column:battle_id;type:varchar(36);uniqueIndex;not null" json:"battleId"`
	SubmissionCount int       `gorm:"column:submission_count;not null;default:0" json:"submissionCount"`
	WinnerID        *string   `gorm:"column:winner_id;type:varchar(36)" json:"winnerId"`
	IsDraw          bool      `gorm:"column:is_draw;not null;default:false" json:"isDraw"`
	Score           int       `gorm:"column:score;not null;default:0" json:"score"`
	Finalized       bool      `gorm:"column:finalized;not null;default:false" json:"finalized"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (BattleResult) TableName() string {
	return "battle_results"
}

func (r *BattleResult) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// BattleEvaluation 单个选手的评测汇总
type BattleEvaluation struct {
	ID          string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	ResultID    string `gorm:"column:result_id;type:varchar(36);uniqueIndex:uk_result_user;not null" json:"resultId"`
	UserID      string `gorm:"column:user_id;type:varchar(36);uniqueIndex:uk_result_user;not null" json:"userId"`
	Correctness int    `gorm:"column:correctness;not null" json:"correctness"`
	Performance int64  `gorm:"column:performance;not null" json:"performance"` // 单位: 毫秒
	Time        int64  `gorm:"column:time;not null" json:"time"`               // 单位: 毫秒
}

func (BattleEvaluation) TableName() string {
	return "battle_evaluations"
}

func (e *BattleEvaluation) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
