package model

import (
	"time"
)

// PaymentEvent 已处理的支付事件，payment_id 唯一索引用于 webhook 去重
type PaymentEvent struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	PaymentID string    `gorm:"size:100;uniqueIndex;not null" json:"payment_id"`
	OrderID   string    `gorm:"size:100;index" json:"order_id,omitempty"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Plan      string    `gorm:"size:20;not null" json:"plan"`
	Amount    float64   `gorm:"type:decimal(10,2)" json:"amount,omitempty"`
	Event     string    `gorm:"size:50" json:"event"`
	CreatedAt time.Time `json:"created_at"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}
