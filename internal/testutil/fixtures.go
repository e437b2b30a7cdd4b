package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/artify/artify_go_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	user := &model.User{
		Email:        fmt.Sprintf("test_%d@example.com", time.Now().UnixNano()),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Name:         fmt.Sprintf("Test User %d", time.Now().UnixNano()%10000),
		Role:         model.RoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = hash
	}
}

// TestSubscription 创建测试订阅
func TestSubscription(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		UserID:      userID,
		Plan:        "basic",
		ImagesLimit: 2,
		Active:      true,
		PaymentID:   fmt.Sprintf("pay_test%d", time.Now().UnixNano()%100000),
		StartedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithPlan 设置套餐与额度
func WithPlan(plan string, limit int) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Plan = plan
		s.ImagesLimit = limit
	}
}

// WithGenerated 设置已用额度
func WithGenerated(generated int) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.ImagesGenerated = generated
	}
}

// WithInactive 设置为失效订阅
func WithInactive() func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Active = false
	}
}

// TestImage 创建测试图片记录
func TestImage(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Image)) *model.Image {
	t.Helper()

	image := &model.Image{
		UserID:           userID,
		Name:             fmt.Sprintf("Test Image %d", time.Now().UnixNano()%10000),
		Prompt:           "make it dreamy",
		OriginalKey:      fmt.Sprintf("originals/%d/test.png", userID),
		OriginalImageURL: fmt.Sprintf("local://originals/%d/test.png", userID),
		Status:           model.ImageStatusProcessing,
	}

	for _, opt := range opts {
		opt(image)
	}

	if err := db.Create(image).Error; err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}

	return image
}

// WithStatus 设置任务状态
func WithStatus(status string) func(*model.Image) {
	return func(i *model.Image) {
		i.Status = status
	}
}

// WithCreatedAt 设置创建时间（对账超时场景用）
func WithCreatedAt(at time.Time) func(*model.Image) {
	return func(i *model.Image) {
		i.CreatedAt = at
	}
}

// TestTicket 创建测试工单
func TestTicket(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.SupportTicket)) *model.SupportTicket {
	t.Helper()

	ticket := &model.SupportTicket{
		UserID:  userID,
		Subject: fmt.Sprintf("Test Ticket %d", time.Now().UnixNano()%10000),
		Status:  model.TicketStatusOpen,
		Messages: []model.TicketMessage{
			{Sender: model.RoleUser, Body: "something went wrong"},
		},
	}

	for _, opt := range opts {
		opt(ticket)
	}

	if err := db.Create(ticket).Error; err != nil {
		t.Fatalf("Failed to create test ticket: %v", err)
	}

	return ticket
}

// WithTicketStatus 设置工单状态
func WithTicketStatus(status string) func(*model.SupportTicket) {
	return func(tk *model.SupportTicket) {
		tk.Status = status
	}
}
