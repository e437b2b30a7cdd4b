package model

import (
	"time"
)

// 生成任务状态
const (
	ImageStatusProcessing = "processing"
	ImageStatusCompleted  = "completed"
	ImageStatusFailed     = "failed"
)

// Image 一次风格化生成请求及其生命周期记录
// 状态只允许 processing -> completed / failed，终态后不再变更
type Image struct {
	ID                int64      `gorm:"primaryKey" json:"id"`
	UserID            int64      `gorm:"not null;index" json:"user_id"`
	Name              string     `gorm:"size:100;not null" json:"name"`
	Prompt            string     `gorm:"size:500" json:"prompt,omitempty"`
	OriginalKey       string     `gorm:"size:500;not null" json:"-"`
	OriginalImageURL  string     `gorm:"size:500;not null" json:"original_image_url"`
	GeneratedKey      string     `gorm:"size:500" json:"-"`
	GeneratedImageURL string     `gorm:"size:500" json:"generated_image_url,omitempty"`
	Status            string     `gorm:"size:20;default:processing;index" json:"status"`
	ErrorMessage      string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

func (Image) TableName() string {
	return "images"
}
