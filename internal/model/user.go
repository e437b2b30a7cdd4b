package model

import (
	"time"
)

// 角色采用封闭枚举，避免在 handler 里散落字符串比较
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                  int64      `gorm:"primaryKey" json:"id"`
	Email               string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash        string     `gorm:"size:255;not null" json:"-"`
	Name                string     `gorm:"size:50" json:"name"`
	Role                string     `gorm:"size:20;default:user" json:"role"`
	ResetTokenHash      *string    `gorm:"size:100" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
