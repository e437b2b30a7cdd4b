package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/api/middleware"
	"github.com/artify/artify_go_server/internal/pkg/response"
	"github.com/artify/artify_go_server/internal/service"
)

// multipart 边界和表单字段的余量
const multipartOverhead = 1 << 20

type ImageHandler struct {
	imageService *service.ImageService
	cfg          *config.Config
}

func NewImageHandler(imageService *service.ImageService, cfg *config.Config) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
		cfg:          cfg,
	}
}

// Generate 提交生成任务
// POST /api/v1/images/generate
// multipart 表单：image 文件 + name / prompt 可选字段
func (h *ImageHandler) Generate(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	// 超限的上传在流式解析阶段就截断，不落盘不进内存
	maxSize := h.cfg.Upload.MaxSize
	if maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.ParamError(c, service.ErrFileTooLarge.Error())
			return
		}
		response.ParamError(c, "请上传图片文件")
		return
	}
	defer file.Close()

	if maxSize > 0 && header.Size > maxSize {
		response.ParamError(c, service.ErrFileTooLarge.Error())
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}

	name := c.PostForm("name")
	prompt := c.PostForm("prompt")

	resp, err := h.imageService.Generate(c.Request.Context(), userID, data, header.Filename, name, prompt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyFile),
			errors.Is(err, service.ErrFileTooLarge),
			errors.Is(err, service.ErrInvalidFormat):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrNoActiveSubscription):
			response.QuotaError(c, err.Error())
		case errors.Is(err, service.ErrQuotaExceeded):
			response.QuotaError(c, err.Error())
		case errors.Is(err, service.ErrStorageFailed),
			errors.Is(err, service.ErrEnqueueFailed):
			response.ServerError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "任务已提交，生成完成后会通知你", resp)
}

// List 当前用户的图片列表
// GET /api/v1/images
func (h *ImageHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.imageService.List(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Get 图片详情
// GET /api/v1/images/:id
func (h *ImageHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	imageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的图片ID")
		return
	}

	detail, err := h.imageService.Get(userID, middleware.GetRole(c), imageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrImagePermission):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, detail)
}

// Delete 删除图片及其存储对象
// DELETE /api/v1/images/:id
func (h *ImageHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	imageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的图片ID")
		return
	}

	result, err := h.imageService.Delete(userID, middleware.GetRole(c), imageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrImagePermission):
			response.PermissionError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "删除成功", result)
}
