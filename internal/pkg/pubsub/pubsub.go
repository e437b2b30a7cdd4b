package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelImageEvents = "image_events"
)

// 事件类型常量
const (
	EventProcessing = "processing"
	EventCompleted  = "completed"
	EventFailed     = "failed"
)

// 事件对应的消息
var eventMessages = map[string]string{
	EventProcessing: "图片正在生成中",
	EventCompleted:  "图片生成完成",
	EventFailed:     "图片生成失败，额度已退还",
}

// ImageEvent 任务事件消息
type ImageEvent struct {
	Type              string `json:"type"`
	UserID            int64  `json:"user_id"`
	ImageID           int64  `json:"image_id"`
	Name              string `json:"name"`
	Status            string `json:"status"`
	GeneratedImageURL string `json:"generated_image_url,omitempty"`
	Message           string `json:"message,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishEvent 发布任务事件
func (p *Publisher) PublishEvent(ctx context.Context, msg *ImageEvent) error {
	msg.Type = "image_event"

	// 自动填充提示文案
	if msg.Message == "" && msg.Status != "" {
		if message, ok := eventMessages[msg.Status]; ok {
			msg.Message = message
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal image event: %w", err)
	}

	return p.client.Publish(ctx, ChannelImageEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅任务事件
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ImageEvent)) error {
	pubsub := s.client.Subscribe(ctx, ChannelImageEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event ImageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
