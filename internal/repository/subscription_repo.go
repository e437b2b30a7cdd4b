package repository

import (
	"gorm.io/gorm"

	"github.com/artify/artify_go_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx 返回绑定到外部事务的仓库副本
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) GetByUserID(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetActiveByUserID(userID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ? AND active = ?", userID, true).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) Update(sub *model.Subscription) error {
	return r.db.Save(sub).Error
}

// ConsumeQuota 原子地占用一个额度
// 条件更新代替读改写，并发提交时额度不会被超卖；返回是否占用成功
func (r *SubscriptionRepository) ConsumeQuota(userID int64) (bool, error) {
	res := r.db.Model(&model.Subscription{}).
		Where("user_id = ? AND active = ? AND images_generated < images_limit", userID, true).
		Update("images_generated", gorm.Expr("images_generated + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RefundQuota 退还一个额度，下限为 0
// CASE 表达式在 MySQL 和 SQLite 下行为一致
func (r *SubscriptionRepository) RefundQuota(userID int64) error {
	return r.db.Model(&model.Subscription{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("images_generated",
			gorm.Expr("CASE WHEN images_generated > 0 THEN images_generated - 1 ELSE 0 END")).Error
}
