package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/artify/artify_go_server/internal/api/middleware"
	"github.com/artify/artify_go_server/internal/model/dto"
	"github.com/artify/artify_go_server/internal/pkg/payment"
	"github.com/artify/artify_go_server/internal/pkg/response"
	"github.com/artify/artify_go_server/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// ListPlans 套餐列表
// GET /api/v1/payments/plans
func (h *PaymentHandler) ListPlans(c *gin.Context) {
	response.Success(c, h.paymentService.ListPlans())
}

// CreateSession 创建支付会话
// POST /api/v1/payments/create-session
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	session, err := h.paymentService.CreateSession(userID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPlan):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrSessionFailed):
			response.UpstreamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, session)
}

// Webhook Razorpay 支付回调
// POST /api/v1/payments/webhook
// 签名基于原始报文计算，必须在 JSON 解析前读出完整 body
func (h *PaymentHandler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.ParamError(c, "读取请求失败")
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")

	if err := h.paymentService.HandleWebhook(rawBody, signature); err != nil {
		switch {
		case errors.Is(err, payment.ErrMissingSignature),
			errors.Is(err, payment.ErrInvalidSignature):
			response.AuthError(c, err.Error())
		case errors.Is(err, service.ErrInvalidWebhookPayload):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, nil)
}

// GetSubscription 当前订阅详情
// GET /api/v1/payments/subscription
func (h *PaymentHandler) GetSubscription(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	detail, err := h.paymentService.GetSubscriptionDetail(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, detail)
}
