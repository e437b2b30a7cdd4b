package dto

// PlanInfo 套餐信息
type PlanInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	ImagesLimit int     `json:"images_limit"`
	Description string  `json:"description,omitempty"`
}

// CreateSessionRequest 创建支付会话请求
type CreateSessionRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// SessionDescriptor 支付会话描述，前端用它拉起收银台
type SessionDescriptor struct {
	OrderID     string  `json:"order_id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Key         string  `json:"key"`
	CallbackURL string  `json:"callback_url"`
}

// SubscriptionDetail 当前订阅详情
type SubscriptionDetail struct {
	HasSubscription bool              `json:"has_subscription"`
	Subscription    *SubscriptionInfo `json:"subscription,omitempty"`
	Plan            *PlanInfo         `json:"plan,omitempty"`
}

// WebhookPayload Razorpay webhook 报文（只解析用到的字段）
type WebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Amount  int64             `json:"amount"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}
