package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artify/artify_go_server/internal/api/middleware"
	"github.com/artify/artify_go_server/internal/model/dto"
	"github.com/artify/artify_go_server/internal/pkg/response"
	"github.com/artify/artify_go_server/internal/service"
)

type SupportHandler struct {
	supportService *service.SupportService
}

func NewSupportHandler(supportService *service.SupportService) *SupportHandler {
	return &SupportHandler{
		supportService: supportService,
	}
}

// Create 新建工单
// POST /api/v1/support/tickets
func (h *SupportHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	detail, err := h.supportService.CreateTicket(userID, &req)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "工单已创建", detail)
}

// List 当前用户的工单列表
// GET /api/v1/support/tickets
func (h *SupportHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	items, err := h.supportService.ListForUser(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// ListAll 全部工单（管理员）
// GET /api/v1/support/admin/tickets?status=open
func (h *SupportHandler) ListAll(c *gin.Context) {
	items, err := h.supportService.ListAll(c.Query("status"))
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Get 工单详情
// GET /api/v1/support/tickets/:id
func (h *SupportHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的工单ID")
		return
	}

	detail, err := h.supportService.Get(userID, middleware.GetRole(c), ticketID)
	if err != nil {
		h.dispatchError(c, err)
		return
	}

	response.Success(c, detail)
}

// AddMessage 追加工单消息
// POST /api/v1/support/tickets/:id/messages
func (h *SupportHandler) AddMessage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的工单ID")
		return
	}

	var req dto.AddMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	detail, err := h.supportService.AddMessage(userID, middleware.GetRole(c), ticketID, req.Message)
	if err != nil {
		h.dispatchError(c, err)
		return
	}

	response.SuccessWithMessage(c, "回复成功", detail)
}

// Close 关闭工单
// POST /api/v1/support/tickets/:id/close
func (h *SupportHandler) Close(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的工单ID")
		return
	}

	detail, err := h.supportService.Close(userID, middleware.GetRole(c), ticketID)
	if err != nil {
		h.dispatchError(c, err)
		return
	}

	response.SuccessWithMessage(c, "工单已关闭", detail)
}

func (h *SupportHandler) dispatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTicketNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrTicketPermission):
		response.PermissionError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}
