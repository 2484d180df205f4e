package model

import "time"

// UserProfile 用户资料，注册时创建
type UserProfile struct {
	ID             uint      `gorm:"primaryKey" json:"ID"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"UserID"`
	ProfilePicture string    `json:"ProfilePicture"` // 对象存储中的 key，为空表示默认头像
	Bio            string    `gorm:"type:text" json:"Bio"`
	UpdatedAt      time.Time `json:"UpdatedAt"`

	User *User `json:"User,omitempty"`
}
