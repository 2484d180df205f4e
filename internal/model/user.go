package model

import "gorm.io/gorm"

// Role 用户角色，只有 admin 与 student 两种
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid 判断是否为已知角色
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User 系统账户
type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"Username"`
	Email    string `gorm:"not null" json:"Email"`
	Password string `gorm:"not null" json:"-"` // bcrypt 哈希，不输出到 JSON
	Role     Role   `gorm:"type:varchar(16);index" json:"Role"`
	IsActive bool   `gorm:"default:true" json:"IsActive"`

	Student *Student     `gorm:"constraint:OnDelete:CASCADE" json:"Student,omitempty"`
	Admin   *Admin       `gorm:"constraint:OnDelete:CASCADE" json:"Admin,omitempty"`
	Profile *UserProfile `gorm:"constraint:OnDelete:CASCADE" json:"Profile,omitempty"`
}

// Student 学生角色信息，与 User 一对一
type Student struct {
	ID        uint   `gorm:"primaryKey" json:"ID"`
	UserID    uint   `gorm:"uniqueIndex;not null" json:"UserID"`
	StudentNo string `gorm:"uniqueIndex;not null" json:"StudentNo"`
	Grade     string `gorm:"size:10" json:"Grade"`

	User *User `json:"User,omitempty"`
}

// Admin 管理员角色信息，与 User 一对一
type Admin struct {
	ID        uint   `gorm:"primaryKey" json:"ID"`
	UserID    uint   `gorm:"uniqueIndex;not null" json:"UserID"`
	StaffRole string `gorm:"size:50" json:"StaffRole"`
}
