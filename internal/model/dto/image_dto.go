package dto

// GenerateImageResponse 提交生成任务的响应（任务异步执行）
type GenerateImageResponse struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	OriginalImageURL string `json:"original_image_url"`
	ImagesRemaining  int    `json:"images_remaining"`
	CreatedAt        string `json:"created_at"`
}

// ImageListItem 图片列表项
type ImageListItem struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	OriginalImageURL  string `json:"original_image_url"`
	GeneratedImageURL string `json:"generated_image_url,omitempty"`
	CreatedAt         string `json:"created_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
}

// ImageDetail 图片详情
type ImageDetail struct {
	ID                int64  `json:"id"`
	UserID            int64  `json:"user_id"`
	Name              string `json:"name"`
	Prompt            string `json:"prompt,omitempty"`
	Status            string `json:"status"`
	OriginalImageURL  string `json:"original_image_url"`
	GeneratedImageURL string `json:"generated_image_url,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	CreatedAt         string `json:"created_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
}

// DeleteImageResponse 删除结果，存储清理失败时在 warnings 中报告
type DeleteImageResponse struct {
	Deleted  bool     `json:"deleted"`
	Warnings []string `json:"warnings,omitempty"`
}
