package model

import (
	"time"
)

// 工单状态机：open -> in-progress -> closed -> reopened
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in-progress"
	TicketStatusClosed     = "closed"
	TicketStatusReopened   = "reopened"
)

type SupportTicket struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Subject   string    `gorm:"size:200;not null" json:"subject"`
	Status    string    `gorm:"size:20;default:open;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	// 关联
	Messages []TicketMessage `gorm:"foreignKey:TicketID" json:"messages,omitempty"`
	User     *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (SupportTicket) TableName() string {
	return "support_tickets"
}

// TicketMessage 工单消息，只追加不修改
type TicketMessage struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	TicketID  int64     `gorm:"not null;index" json:"ticket_id"`
	Sender    string    `gorm:"size:20;not null" json:"sender"` // user, admin
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (TicketMessage) TableName() string {
	return "ticket_messages"
}
