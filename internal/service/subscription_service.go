package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/model"
	"github.com/artify/artify_go_server/internal/repository"
)

var (
	ErrQuotaExceeded        = errors.New("套餐额度已用完，请升级套餐")
	ErrNoActiveSubscription = errors.New("没有生效的订阅，请先购买套餐")
	ErrInvalidPlan          = errors.New("无效的套餐")
)

// SubscriptionService 订阅额度账本
type SubscriptionService struct {
	subRepo *repository.SubscriptionRepository
	cfg     *config.Config
}

func NewSubscriptionService(subRepo *repository.SubscriptionRepository, cfg *config.Config) *SubscriptionService {
	return &SubscriptionService{
		subRepo: subRepo,
		cfg:     cfg,
	}
}

// GetActive 查询生效订阅，不存在返回 nil
func (s *SubscriptionService) GetActive(userID int64) (*model.Subscription, error) {
	sub, err := s.subRepo.GetActiveByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// Activate 开通或重置订阅
// 同一 paymentID 的重复激活由调用方（payment_events 去重）拦截
func (s *SubscriptionService) Activate(userID int64, planID, paymentID string) (*model.Subscription, error) {
	return s.activate(s.subRepo, userID, planID, paymentID)
}

// ActivateTx 在外部事务中开通订阅，支付事件与激活必须一起提交
func (s *SubscriptionService) ActivateTx(tx *gorm.DB, userID int64, planID, paymentID string) (*model.Subscription, error) {
	return s.activate(s.subRepo.WithTx(tx), userID, planID, paymentID)
}

func (s *SubscriptionService) activate(repo *repository.SubscriptionRepository, userID int64, planID, paymentID string) (*model.Subscription, error) {
	plan, ok := s.cfg.Plans[planID]
	if !ok {
		return nil, ErrInvalidPlan
	}

	sub, err := repo.GetByUserID(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	if sub == nil {
		sub = &model.Subscription{
			UserID:          userID,
			Plan:            planID,
			ImagesLimit:     plan.ImagesLimit,
			ImagesGenerated: 0,
			Active:          true,
			PaymentID:       paymentID,
			StartedAt:       now,
		}
		if err := repo.Create(sub); err != nil {
			return nil, err
		}
		return sub, nil
	}

	sub.Plan = planID
	sub.ImagesLimit = plan.ImagesLimit
	sub.ImagesGenerated = 0
	sub.Active = true
	sub.PaymentID = paymentID
	sub.StartedAt = now
	if err := repo.Update(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// CanGenerate 是否还有可用额度
func (s *SubscriptionService) CanGenerate(userID int64) (bool, error) {
	sub, err := s.GetActive(userID)
	if err != nil {
		return false, err
	}
	if sub == nil {
		return false, nil
	}
	return sub.ImagesGenerated < sub.ImagesLimit, nil
}

// Consume 占用一个额度，返回剩余数
// 底层是单条条件 UPDATE，两个并发请求抢最后一个额度时只有一个能成功
func (s *SubscriptionService) Consume(userID int64) (int, error) {
	ok, err := s.subRepo.ConsumeQuota(userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		// 区分没有订阅和额度耗尽，给前端不同的提示
		sub, err := s.GetActive(userID)
		if err != nil {
			return 0, err
		}
		if sub == nil {
			return 0, ErrNoActiveSubscription
		}
		return 0, ErrQuotaExceeded
	}

	sub, err := s.subRepo.GetActiveByUserID(userID)
	if err != nil {
		return 0, err
	}
	return sub.ImagesRemaining(), nil
}

// Refund 任务失败后退还额度
func (s *SubscriptionService) Refund(userID int64) error {
	return s.subRepo.RefundQuota(userID)
}

// PlanOf 查询套餐配置
func (s *SubscriptionService) PlanOf(planID string) (config.PlanConfig, bool) {
	plan, ok := s.cfg.Plans[planID]
	return plan, ok
}
