package model

import (
	"time"
)

// 订阅套餐，额度按张数计，不按时间过期
// imagesRemaining 一律由 images_limit - images_generated 推导，不单独存储
type Subscription struct {
	ID              int64     `gorm:"primaryKey" json:"id"`
	UserID          int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	Plan            string    `gorm:"size:20;not null" json:"plan"` // basic, premium
	ImagesLimit     int       `gorm:"not null" json:"images_limit"`
	ImagesGenerated int       `gorm:"not null;default:0" json:"images_generated"`
	// 不能带 default 标签：gorm 创建时会跳过带默认值的零值字段，false 会被写成 true
	Active          bool      `gorm:"not null;index" json:"active"`
	PaymentID       string    `gorm:"size:100" json:"payment_id,omitempty"`
	StartedAt       time.Time `gorm:"not null" json:"started_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// ImagesRemaining 剩余可生成张数
func (s *Subscription) ImagesRemaining() int {
	remaining := s.ImagesLimit - s.ImagesGenerated
	if remaining < 0 {
		return 0
	}
	return remaining
}
