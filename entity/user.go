package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID         string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	ExternalID string    `gorm:"column:external_id;type:varchar(128);uniqueIndex;not null" json:"-"`
	Nickname   string    `gorm:"column:nickname;type:varchar(128)" json:"nickname"`
	Picture    string    `gorm:"column:picture;type:varchar(512)" json:"picture"`
	Rating     int       `gorm:"column:rating;not null" json:"rating"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
