package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/model"
	"github.com/artify/artify_go_server/internal/model/dto"
	"github.com/artify/artify_go_server/internal/pkg/email"
	"github.com/artify/artify_go_server/internal/pkg/payment"
	"github.com/artify/artify_go_server/internal/repository"
)

var (
	ErrInvalidWebhookPayload = errors.New("webhook 报文格式错误")
	ErrSessionFailed         = errors.New("支付会话创建失败，请稍后重试")
)

// 关注的支付事件类型
const eventPaymentCaptured = "payment.captured"

type PaymentService struct {
	paymentRepo *repository.PaymentRepository
	userRepo    *repository.UserRepository
	subSvc      *SubscriptionService
	gateway     *payment.Client
	mailer      *email.Service
	cfg         *config.Config
}

func NewPaymentService(
	paymentRepo *repository.PaymentRepository,
	userRepo *repository.UserRepository,
	subSvc *SubscriptionService,
	gateway *payment.Client,
	mailer *email.Service,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		userRepo:    userRepo,
		subSvc:      subSvc,
		gateway:     gateway,
		mailer:      mailer,
		cfg:         cfg,
	}
}

// ListPlans 套餐目录
func (s *PaymentService) ListPlans() []dto.PlanInfo {
	plans := make([]dto.PlanInfo, 0, len(s.cfg.Plans))
	for id, p := range s.cfg.Plans {
		plans = append(plans, dto.PlanInfo{
			ID:          id,
			Name:        p.Name,
			Price:       p.Price,
			Currency:    p.Currency,
			ImagesLimit: p.ImagesLimit,
			Description: p.Description,
		})
	}
	// map 遍历无序，按价格排序保证输出稳定
	sort.Slice(plans, func(i, j int) bool { return plans[i].Price < plans[j].Price })
	return plans
}

// CreateSession 创建支付会话
func (s *PaymentService) CreateSession(userID int64, planID string) (*dto.SessionDescriptor, error) {
	plan, ok := s.cfg.Plans[planID]
	if !ok {
		return nil, ErrInvalidPlan
	}

	orderID, err := s.gateway.CreateOrder(plan.Price, plan.Currency, userID, planID)
	if err != nil {
		log.Printf("Failed to create payment order for user %d: %v", userID, err)
		return nil, ErrSessionFailed
	}

	return &dto.SessionDescriptor{
		OrderID:     orderID,
		Amount:      plan.Price,
		Currency:    plan.Currency,
		Key:         s.gateway.KeyID(),
		CallbackURL: fmt.Sprintf("%s/api/v1/payments/webhook", s.cfg.Server.PublicURL),
	}, nil
}

// HandleWebhook 处理已验签的 webhook 报文
// 同一 payment_id 重复投递是幂等的：事件表唯一索引拦截后直接返回
func (s *PaymentService) HandleWebhook(rawBody []byte, signature string) error {
	if err := s.gateway.VerifyWebhookSignature(rawBody, signature); err != nil {
		return err
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return ErrInvalidWebhookPayload
	}

	if payload.Event != eventPaymentCaptured {
		// 不关注的事件直接确认
		return nil
	}

	entity := payload.Payload.Payment.Entity
	userID, err := strconv.ParseInt(entity.Notes["user_id"], 10, 64)
	if err != nil {
		return ErrInvalidWebhookPayload
	}
	planID := entity.Notes["plan_id"]
	if _, ok := s.cfg.Plans[planID]; !ok {
		return ErrInvalidPlan
	}

	event := &model.PaymentEvent{
		PaymentID: entity.ID,
		OrderID:   entity.OrderID,
		UserID:    userID,
		Plan:      planID,
		Amount:    float64(entity.Amount) / 100,
		Event:     payload.Event,
	}
	// 事件与激活同一事务：激活失败时事件记录一起回滚，网关重发还能重试
	err = s.paymentRepo.RecordEventAndApply(event, func(tx *gorm.DB) error {
		_, err := s.subSvc.ActivateTx(tx, userID, planID, entity.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			log.Printf("Duplicate webhook for payment %s, ignored", entity.ID)
			return nil
		}
		return err
	}

	// 通知是尽力而为，失败只记日志
	if user, err := s.userRepo.GetByID(userID); err == nil {
		plan := s.cfg.Plans[planID]
		if err := s.mailer.SendSubscriptionConfirmation(user.Email, user.Name, plan.Name, plan.ImagesLimit); err != nil {
			log.Printf("Failed to send subscription confirmation to user %d: %v", userID, err)
		}
	}

	log.Printf("Subscription activated for user %d, plan: %s, payment: %s", userID, planID, entity.ID)
	return nil
}

// GetSubscriptionDetail 当前订阅详情（含派生的剩余额度）
func (s *PaymentService) GetSubscriptionDetail(userID int64) (*dto.SubscriptionDetail, error) {
	sub, err := s.subSvc.GetActive(userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return &dto.SubscriptionDetail{HasSubscription: false}, nil
	}

	detail := &dto.SubscriptionDetail{
		HasSubscription: true,
		Subscription: &dto.SubscriptionInfo{
			Plan:            sub.Plan,
			ImagesLimit:     sub.ImagesLimit,
			ImagesGenerated: sub.ImagesGenerated,
			ImagesRemaining: sub.ImagesRemaining(),
			Active:          sub.Active,
			StartedAt:       sub.StartedAt.Format(time.RFC3339),
		},
	}

	if plan, ok := s.cfg.Plans[sub.Plan]; ok {
		detail.Plan = &dto.PlanInfo{
			ID:          sub.Plan,
			Name:        plan.Name,
			Price:       plan.Price,
			Currency:    plan.Currency,
			ImagesLimit: plan.ImagesLimit,
			Description: plan.Description,
		}
	}

	return detail, nil
}
