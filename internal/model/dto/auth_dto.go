package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=32"`
	Name     string `json:"name" binding:"required,min=2,max=50"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 注册/登录响应
type AuthResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// ForgotPasswordRequest 找回密码请求
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest 重置密码请求
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8,max=32"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID           int64             `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Role         string            `json:"role"`
	Subscription *SubscriptionInfo `json:"subscription,omitempty"`
	CreatedAt    string            `json:"created_at,omitempty"`
}

// SubscriptionInfo 订阅摘要
type SubscriptionInfo struct {
	Plan            string `json:"plan"`
	ImagesLimit     int    `json:"images_limit"`
	ImagesGenerated int    `json:"images_generated"`
	ImagesRemaining int    `json:"images_remaining"`
	Active          bool   `json:"active"`
	StartedAt       string `json:"started_at,omitempty"`
}
