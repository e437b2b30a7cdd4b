package dto

// CreateTicketRequest 新建工单请求
type CreateTicketRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=2000"`
}

// AddMessageRequest 追加工单消息请求
type AddMessageRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

// TicketMessageInfo 工单消息
type TicketMessageInfo struct {
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// TicketDetail 工单详情
type TicketDetail struct {
	ID        int64               `json:"id"`
	UserID    int64               `json:"user_id"`
	Subject   string              `json:"subject"`
	Status    string              `json:"status"`
	Messages  []TicketMessageInfo `json:"messages"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
}

// TicketListItem 工单列表项
type TicketListItem struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id,omitempty"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}
