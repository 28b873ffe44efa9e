package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BattleStatus string

const (
	BattleStatusLobby    BattleStatus = "lobby"    // 等待双方准备
	BattleStatusRunning  BattleStatus = "running"  // 对战进行中
	BattleStatusFinished BattleStatus = "finished" // 已结算
)

// BattleInvitation 对战邀请, 邀请码即主键, 被消费或取消时删除
type BattleInvitation struct {
	InviteCode string    `gorm:"column:invite_code;type:varchar(16);primaryKey" json:"inviteCode"`
	UserID     string    `gorm:"column:user_id;type:varchar(36);index;not null" json:"userId"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (BattleInvitation) TableName() string {
	return "battle_invitations"
}

type Battle struct {
	ID          string             `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	InviteCode  string             `gorm:"column:invite_code;type:varchar(16);uniqueIndex;not null" json:"inviteCode"`
	ProblemID   string             `gorm:"column:problem_id;type:varchar(36);not null" json:"problemId"`
	StartTime   time.Time          `gorm:"column:start_time" json:"startTime"`
	EndTime     time.Time          `gorm:"column:end_time;index" json:"endTime"`
	Status      BattleStatus       `gorm:"column:status;type:varchar(16);index;not null" json:"status"`
	Finished    bool               `gorm:"column:finished;not null;default:false" json:"finished"`
	CreatedAt   time.Time          `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt   time.Time          `gorm:"column:updated_at" json:"updatedAt"`
	Memberships []BattleMembership `gorm:"foreignKey:BattleID" json:"-"`
}

func (Battle) TableName() string {
	return "battles"
}

func (b *Battle) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BattleMembership 对战参与关系, JoinOrder 1 为邀请发起人, 2 为加入者
type BattleMembership struct {
	BattleID  string `gorm:"column:battle_id;type:varchar(36);primaryKey"`
	UserID    string `gorm:"column:user_id;type:varchar(36);primaryKey;index"`
	Ready     bool   `gorm:"column:ready;not null;default:false"`
	JoinOrder int    `gorm:"column:join_order;not null"`
	User      *User  `gorm:"foreignKey:UserID;references:ID"`
}

func (BattleMembership) TableName() string {
	return "battle_memberships"
}
