package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/pkg/email"
	"github.com/artify/artify_go_server/internal/pkg/oss"
	"github.com/artify/artify_go_server/internal/pkg/pubsub"
	"github.com/artify/artify_go_server/internal/pkg/queue"
	"github.com/artify/artify_go_server/internal/pkg/stylize"
	"github.com/artify/artify_go_server/internal/repository"
	"github.com/artify/artify_go_server/internal/service"
)

// Processor 生成任务处理器
type Processor struct {
	imageRepo   *repository.ImageRepository
	userRepo    *repository.UserRepository
	subSvc      *service.SubscriptionService
	transformer stylize.Transformer
	ossClient   *oss.Client
	publisher   *pubsub.Publisher
	mailer      *email.Service
	cfg         *config.Config
}

// NewProcessor 创建任务处理器
func NewProcessor(
	imageRepo *repository.ImageRepository,
	userRepo *repository.UserRepository,
	subSvc *service.SubscriptionService,
	transformer stylize.Transformer,
	ossClient *oss.Client,
	publisher *pubsub.Publisher,
	mailer *email.Service,
	cfg *config.Config,
) *Processor {
	return &Processor{
		imageRepo:   imageRepo,
		userRepo:    userRepo,
		subSvc:      subSvc,
		transformer: transformer,
		ossClient:   ossClient,
		publisher:   publisher,
		mailer:      mailer,
		cfg:         cfg,
	}
}

// jobTimeout 单个任务的处理时限
func (p *Processor) jobTimeout() time.Duration {
	minutes := p.cfg.Queue.JobTimeoutMinutes
	if minutes <= 0 {
		minutes = 20
	}
	return time.Duration(minutes) * time.Minute
}

// Process 处理一条生成任务
// 完成和失败都走带状态守卫的更新，重复投递不会产生二次效果
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	image, err := p.imageRepo.GetByID(msg.ImageID)
	if err != nil {
		return fmt.Errorf("failed to load image %d: %w", msg.ImageID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.jobTimeout())
	defer cancel()

	// Step 1: 取回原图
	log.Printf("Image %d: downloading original %s", image.ID, msg.OriginalKey)
	original, err := p.downloadOriginal(msg.OriginalKey)
	if err != nil {
		return p.fail(ctx, msg, fmt.Errorf("failed to download original: %w", err))
	}

	// Step 2: 调用风格化服务
	log.Printf("Image %d: transforming", image.ID)
	generated, err := p.transformer.Transform(ctx, original, msg.Prompt)
	if err != nil {
		return p.fail(ctx, msg, fmt.Errorf("transform failed: %w", err))
	}

	// Step 3: 上传结果
	log.Printf("Image %d: uploading result", image.ID)
	generatedKey, generatedURL, err := p.storeGenerated(image.ID, generated)
	if err != nil {
		return p.fail(ctx, msg, fmt.Errorf("failed to store result: %w", err))
	}

	// Step 4: 落库（仅当仍处于 processing 时生效）
	updated, err := p.imageRepo.MarkCompleted(image.ID, generatedKey, generatedURL)
	if err != nil {
		return fmt.Errorf("failed to mark image %d completed: %w", image.ID, err)
	}
	if !updated {
		// 已被对账任务或重复投递处理过，丢弃本次结果
		log.Printf("Image %d: already in terminal state, skipping notifications", image.ID)
		return nil
	}

	p.notify(ctx, msg, pubsub.EventCompleted, generatedURL, "")
	log.Printf("Image %d: completed", image.ID)
	return nil
}

// fail 标记任务失败并退还额度，仅首个终态生效
func (p *Processor) fail(ctx context.Context, msg *queue.JobMessage, cause error) error {
	log.Printf("Image %d: %v", msg.ImageID, cause)

	updated, err := p.imageRepo.MarkFailed(msg.ImageID, cause.Error())
	if err != nil {
		return fmt.Errorf("failed to mark image %d failed: %w", msg.ImageID, err)
	}
	if !updated {
		return nil
	}

	if err := p.subSvc.Refund(msg.UserID); err != nil {
		log.Printf("Failed to refund quota for user %d: %v", msg.UserID, err)
	}

	p.notify(ctx, msg, pubsub.EventFailed, "", cause.Error())
	return cause
}

// notify 推送 WebSocket 事件并发送邮件，失败只记日志
func (p *Processor) notify(ctx context.Context, msg *queue.JobMessage, status, generatedURL, errMsg string) {
	image, err := p.imageRepo.GetByID(msg.ImageID)
	if err != nil {
		log.Printf("Failed to reload image %d for notification: %v", msg.ImageID, err)
		return
	}

	if err := p.publisher.PublishEvent(ctx, &pubsub.ImageEvent{
		UserID:            msg.UserID,
		ImageID:           msg.ImageID,
		Name:              image.Name,
		Status:            status,
		GeneratedImageURL: generatedURL,
		Error:             errMsg,
	}); err != nil {
		log.Printf("Failed to publish event for image %d: %v", msg.ImageID, err)
	}

	user, err := p.userRepo.GetByID(msg.UserID)
	if err != nil {
		log.Printf("Failed to load user %d for notification: %v", msg.UserID, err)
		return
	}

	if status == pubsub.EventCompleted {
		err = p.mailer.SendGenerationCompleted(user.Email, user.Name, image.Name, generatedURL)
	} else {
		err = p.mailer.SendGenerationFailed(user.Email, user.Name, image.Name)
	}
	if err != nil {
		log.Printf("Failed to send email for image %d: %v", msg.ImageID, err)
	}
}

// downloadOriginal 从 OSS 取回原图；本地模式下直接读文件
func (p *Processor) downloadOriginal(key string) ([]byte, error) {
	if p.ossClient != nil {
		return p.ossClient.Download(key)
	}
	return os.ReadFile(filepath.Join(p.cfg.Upload.TempDir, key))
}

// storeGenerated 上传生成结果，本地模式写临时目录
func (p *Processor) storeGenerated(imageID int64, data []byte) (string, string, error) {
	if p.ossClient != nil {
		return p.ossClient.UploadGenerated(imageID, data, ".png")
	}

	key := fmt.Sprintf("generated/%d%s", imageID, ".png")
	localPath := filepath.Join(p.cfg.Upload.TempDir, key)
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return "", "", err
	}
	return key, "local://" + key, nil
}
