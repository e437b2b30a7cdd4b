package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/artify/artify_go_server/internal/model"
)

// ErrDuplicatePayment 同一 payment_id 已经处理过
var ErrDuplicatePayment = errors.New("支付事件已处理")

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// RecordEvent 记录支付事件，payment_id 唯一索引负责去重
func (r *PaymentRepository) RecordEvent(event *model.PaymentEvent) error {
	return r.RecordEventAndApply(event, nil)
}

// RecordEventAndApply 在同一个事务里记录事件并执行后续动作
// 激活失败时事件一起回滚，网关重发同一 payment_id 还能重试，不会被去重吞掉
func (r *PaymentRepository) RecordEventAndApply(event *model.PaymentEvent, apply func(tx *gorm.DB) error) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		if apply == nil {
			return nil
		}
		return apply(tx)
	})
	if err != nil && isDuplicateKeyErr(err) {
		return ErrDuplicatePayment
	}
	return err
}

func (r *PaymentRepository) ExistsByPaymentID(paymentID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.PaymentEvent{}).Where("payment_id = ?", paymentID).Count(&count).Error
	return count > 0, err
}

// isDuplicateKeyErr 识别唯一索引冲突（MySQL 1062 / SQLite UNIQUE constraint）
func isDuplicateKeyErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
