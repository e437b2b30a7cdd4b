package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/model"
	"github.com/artify/artify_go_server/internal/model/dto"
	"github.com/artify/artify_go_server/internal/pkg/oss"
	"github.com/artify/artify_go_server/internal/pkg/queue"
	"github.com/artify/artify_go_server/internal/repository"
)

var (
	ErrImageNotFound   = errors.New("图片不存在")
	ErrImagePermission = errors.New("无权访问此图片")
	ErrEmptyFile       = errors.New("请上传图片文件")
	ErrFileTooLarge    = errors.New("文件过大")
	ErrInvalidFormat   = errors.New("不支持的图片格式")
	ErrStorageFailed   = errors.New("图片存储失败，请稍后重试")
	ErrEnqueueFailed   = errors.New("任务提交失败，请稍后重试")
)

// ImageService 生成任务编排器
// 提交是异步的：占额度、建记录、入队后立即返回，结果由 worker 写回
type ImageService struct {
	imageRepo *repository.ImageRepository
	userRepo  *repository.UserRepository
	subSvc    *SubscriptionService
	ossClient *oss.Client
	jobQueue  *queue.Queue
	cfg       *config.Config
}

func NewImageService(
	imageRepo *repository.ImageRepository,
	userRepo *repository.UserRepository,
	subSvc *SubscriptionService,
	ossClient *oss.Client,
	jobQueue *queue.Queue,
	cfg *config.Config,
) *ImageService {
	return &ImageService{
		imageRepo: imageRepo,
		userRepo:  userRepo,
		subSvc:    subSvc,
		ossClient: ossClient,
		jobQueue:  jobQueue,
		cfg:       cfg,
	}
}

// Generate 提交生成任务
// 顺序：校验 → 存原图 → 占额度 → 建记录 → 入队，之后的失败都要退额度
func (s *ImageService) Generate(ctx context.Context, userID int64, data []byte, filename, name, prompt string) (*dto.GenerateImageResponse, error) {
	ext, err := s.validateImage(data, filename)
	if err != nil {
		return nil, err
	}

	canGen, err := s.subSvc.CanGenerate(userID)
	if err != nil {
		return nil, err
	}
	if !canGen {
		sub, err := s.subSvc.GetActive(userID)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			return nil, ErrNoActiveSubscription
		}
		return nil, ErrQuotaExceeded
	}

	// 先存原图：存储失败时还没占额度，直接向调用方报错
	originalKey, originalURL, err := s.storeOriginal(userID, data, ext)
	if err != nil {
		log.Printf("Failed to store original for user %d: %v", userID, err)
		return nil, ErrStorageFailed
	}

	// 悲观占用额度，worker 失败时再退还
	remaining, err := s.subSvc.Consume(userID)
	if err != nil {
		s.deleteObject(originalKey)
		return nil, err
	}

	if name == "" {
		name = fmt.Sprintf("Ghibli Art %d", time.Now().Unix())
	}

	image := &model.Image{
		UserID:           userID,
		Name:             name,
		Prompt:           prompt,
		OriginalKey:      originalKey,
		OriginalImageURL: originalURL,
		Status:           model.ImageStatusProcessing,
	}

	if err := s.imageRepo.Create(image); err != nil {
		s.subSvc.Refund(userID)
		s.deleteObject(originalKey)
		return nil, err
	}

	msg := &queue.JobMessage{
		ImageID:     image.ID,
		UserID:      userID,
		OriginalKey: originalKey,
		Prompt:      prompt,
	}
	if err := s.jobQueue.Push(ctx, msg); err != nil {
		// 入队失败：记录作废，额度退还
		log.Printf("Failed to enqueue image %d: %v", image.ID, err)
		s.imageRepo.MarkFailed(image.ID, "任务入队失败")
		s.subSvc.Refund(userID)
		return nil, ErrEnqueueFailed
	}

	return &dto.GenerateImageResponse{
		ID:               image.ID,
		Name:             image.Name,
		Status:           image.Status,
		OriginalImageURL: image.OriginalImageURL,
		ImagesRemaining:  remaining,
		CreatedAt:        image.CreatedAt.Format(time.RFC3339),
	}, nil
}

// List 分页查询自己的任务，最新的在前
func (s *ImageService) List(userID int64, page, pageSize int) ([]dto.ImageListItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	images, total, err := s.imageRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.ImageListItem, 0, len(images))
	for _, img := range images {
		item := dto.ImageListItem{
			ID:                img.ID,
			Name:              img.Name,
			Status:            img.Status,
			OriginalImageURL:  img.OriginalImageURL,
			GeneratedImageURL: img.GeneratedImageURL,
			CreatedAt:         img.CreatedAt.Format(time.RFC3339),
		}
		if img.CompletedAt != nil {
			item.CompletedAt = img.CompletedAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}

	return items, total, nil
}

// Get 查询单个任务，仅限所有者或管理员
func (s *ImageService) Get(userID int64, role string, imageID int64) (*dto.ImageDetail, error) {
	image, err := s.getOwned(userID, role, imageID)
	if err != nil {
		return nil, err
	}

	detail := &dto.ImageDetail{
		ID:                image.ID,
		UserID:            image.UserID,
		Name:              image.Name,
		Prompt:            image.Prompt,
		Status:            image.Status,
		OriginalImageURL:  image.OriginalImageURL,
		GeneratedImageURL: image.GeneratedImageURL,
		ErrorMessage:      image.ErrorMessage,
		CreatedAt:         image.CreatedAt.Format(time.RFC3339),
	}
	if image.CompletedAt != nil {
		detail.CompletedAt = image.CompletedAt.Format(time.RFC3339)
	}

	return detail, nil
}

// Delete 删除任务记录及关联资源
// 存储清理是尽力而为：失败不阻止记录删除，但要在 warnings 里报告
func (s *ImageService) Delete(userID int64, role string, imageID int64) (*dto.DeleteImageResponse, error) {
	image, err := s.getOwned(userID, role, imageID)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if image.OriginalKey != "" {
		if err := s.deleteObject(image.OriginalKey); err != nil {
			warnings = append(warnings, fmt.Sprintf("原图清理失败: %v", err))
		}
	}
	if image.GeneratedKey != "" {
		if err := s.deleteObject(image.GeneratedKey); err != nil {
			warnings = append(warnings, fmt.Sprintf("生成图清理失败: %v", err))
		}
	}

	if err := s.imageRepo.Delete(image.ID); err != nil {
		return nil, err
	}

	return &dto.DeleteImageResponse{
		Deleted:  true,
		Warnings: warnings,
	}, nil
}

func (s *ImageService) getOwned(userID int64, role string, imageID int64) (*model.Image, error) {
	image, err := s.imageRepo.GetByID(imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}

	if image.UserID != userID && role != model.RoleAdmin {
		return nil, ErrImagePermission
	}

	return image, nil
}

// validateImage 校验大小、扩展名与内容类型，返回归一化扩展名
func (s *ImageService) validateImage(data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if s.cfg.Upload.MaxSize > 0 && int64(len(data)) > s.cfg.Upload.MaxSize {
		return "", ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, a := range s.cfg.Upload.AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", ErrInvalidFormat
	}

	// 扩展名可以伪造，再嗅探一次实际内容
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrInvalidFormat
	}

	return ext, nil
}

// storeOriginal 上传原图；未配置 OSS 时落到本地临时目录（开发模式）
func (s *ImageService) storeOriginal(userID int64, data []byte, ext string) (string, string, error) {
	if s.ossClient != nil {
		return s.ossClient.UploadOriginal(userID, data, ext)
	}

	key := fmt.Sprintf("originals/%d/%d%s", userID, time.Now().UnixNano(), ext)
	localPath := filepath.Join(s.cfg.Upload.TempDir, key)
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return "", "", err
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return "", "", err
	}
	return key, "local://" + key, nil
}

func (s *ImageService) deleteObject(key string) error {
	if s.ossClient != nil {
		return s.ossClient.Delete(key)
	}
	localPath := filepath.Join(s.cfg.Upload.TempDir, key)
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
