package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/artify/artify_go_server/internal/model"
)

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(image *model.Image) error {
	return r.db.Create(image).Error
}

func (r *ImageRepository) GetByID(id int64) (*model.Image, error) {
	var image model.Image
	err := r.db.Where("id = ?", id).First(&image).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// ListByUser 按用户分页查询，最新的在前
func (r *ImageRepository) ListByUser(userID int64, page, pageSize int) ([]model.Image, int64, error) {
	var images []model.Image
	var total int64

	if err := r.db.Model(&model.Image{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&images).Error
	if err != nil {
		return nil, 0, err
	}

	return images, total, nil
}

// MarkCompleted 置为完成态
// 条件更新保证终态只进入一次，重复调用返回 false
func (r *ImageRepository) MarkCompleted(id int64, generatedKey, generatedURL string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&model.Image{}).
		Where("id = ? AND status = ?", id, model.ImageStatusProcessing).
		Updates(map[string]interface{}{
			"status":              model.ImageStatusCompleted,
			"generated_key":       generatedKey,
			"generated_image_url": generatedURL,
			"completed_at":        now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed 置为失败态，同样只允许从 processing 进入
func (r *ImageRepository) MarkFailed(id int64, errMsg string) (bool, error) {
	now := time.Now()
	res := r.db.Model(&model.Image{}).
		Where("id = ? AND status = ?", id, model.ImageStatusProcessing).
		Updates(map[string]interface{}{
			"status":        model.ImageStatusFailed,
			"error_message": errMsg,
			"completed_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ImageRepository) Delete(id int64) error {
	return r.db.Delete(&model.Image{}, id).Error
}

// ListStuckProcessing 查询卡在 processing 超过期限的任务
func (r *ImageRepository) ListStuckProcessing(before time.Time) ([]model.Image, error) {
	var images []model.Image
	err := r.db.Where("status = ? AND created_at < ?", model.ImageStatusProcessing, before).
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}
