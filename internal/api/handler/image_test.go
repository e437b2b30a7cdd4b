package handler

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/artify/artify_go_server/internal/api/middleware"
	"github.com/artify/artify_go_server/internal/model"
	"github.com/artify/artify_go_server/internal/pkg/queue"
	"github.com/artify/artify_go_server/internal/pkg/response"
	"github.com/artify/artify_go_server/internal/repository"
	"github.com/artify/artify_go_server/internal/service"
	"github.com/artify/artify_go_server/internal/testutil"
)

// 最小合法 PNG 文件头，足够通过内容嗅探
var testPNG = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func mockAuth(userID int64, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

func setupImageHandler(t *testing.T) (*ImageHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := handlerTestConfig()
	cfg.Upload.TempDir = t.TempDir()

	imageRepo := repository.NewImageRepository(db)
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	subService := service.NewSubscriptionService(subRepo, cfg)
	jobQueue := queue.NewQueue(client, "test_generate_queue")

	imageService := service.NewImageService(imageRepo, userRepo, subService, nil, jobQueue, cfg)
	handler := NewImageHandler(imageService, cfg)

	cleanup := func() {
		client.Close()
		mr.Close()
		testutil.CleanupTestDB(t, db)
	}

	return handler, db, cleanup
}

func performGenerateRequest(t *testing.T, r http.Handler, filename string, content []byte, name, prompt string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	part.Write(content)
	if name != "" {
		writer.WriteField("name", name)
	}
	if prompt != "" {
		writer.WriteField("prompt", prompt)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/images/generate", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestImageHandler_Generate_Success(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithPlan("basic", 2))

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.POST("/images/generate", handler.Generate)

	w := performGenerateRequest(t, router, "photo.png", testPNG, "My Art", "dreamy sky")
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "My Art", data["name"])
	assert.Equal(t, model.ImageStatusProcessing, data["status"])
	assert.Equal(t, float64(1), data["images_remaining"])
}

func TestImageHandler_Generate_NoFile(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithPlan("basic", 2))

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.POST("/images/generate", handler.Generate)

	req := httptest.NewRequest("POST", "/images/generate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestImageHandler_Generate_NoSubscription(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.POST("/images/generate", handler.Generate)

	w := performGenerateRequest(t, router, "photo.png", testPNG, "", "")
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeQuotaExceeded, resp.Code)
}

func TestImageHandler_Generate_QuotaExhausted(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithPlan("basic", 2), testutil.WithGenerated(2))

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.POST("/images/generate", handler.Generate)

	w := performGenerateRequest(t, router, "photo.png", testPNG, "", "")
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeQuotaExceeded, resp.Code)
}

func TestImageHandler_Generate_BadExtension(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithPlan("basic", 2))

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.POST("/images/generate", handler.Generate)

	w := performGenerateRequest(t, router, "photo.exe", testPNG, "", "")
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestImageHandler_Generate_OversizedRejectedBeforeRead(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	testutil.TestSubscription(t, db, user.ID, testutil.WithPlan("basic", 2))

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.POST("/images/generate", handler.Generate)

	// 11MB，超出配置的 10MB 上限
	big := append(append([]byte{}, testPNG...), bytes.Repeat([]byte{0x00}, 11*1024*1024)...)
	w := performGenerateRequest(t, router, "photo.png", big, "", "")
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)

	// 额度不能被占用，也不能留下任务记录
	var sub model.Subscription
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&sub).Error)
	assert.Equal(t, 0, sub.ImagesGenerated)

	var count int64
	db.Model(&model.Image{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestImageHandler_Get_Success(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	image := testutil.TestImage(t, db, user.ID)

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.GET("/images/:id", handler.Get)

	w := performRequest(router, "GET", fmt.Sprintf("/images/%d", image.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(image.ID), data["id"])
}

func TestImageHandler_Get_OtherUserForbidden(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	image := testutil.TestImage(t, db, owner.ID)

	router := gin.New()
	router.Use(mockAuth(other.ID, other.Role))
	router.GET("/images/:id", handler.Get)

	w := performRequest(router, "GET", fmt.Sprintf("/images/%d", image.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodePermissionDenied, resp.Code)
}

func TestImageHandler_Get_AdminCanSeeAll(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	admin := testutil.TestUser(t, db, testutil.WithRole(model.RoleAdmin))
	image := testutil.TestImage(t, db, owner.ID)

	router := gin.New()
	router.Use(mockAuth(admin.ID, admin.Role))
	router.GET("/images/:id", handler.Get)

	w := performRequest(router, "GET", fmt.Sprintf("/images/%d", image.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)
}

func TestImageHandler_Get_NotFound(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.GET("/images/:id", handler.Get)

	w := performRequest(router, "GET", "/images/99999", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}

func TestImageHandler_List_OnlyOwn(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	other := testutil.TestUser(t, db)
	testutil.TestImage(t, db, user.ID)
	testutil.TestImage(t, db, user.ID)
	testutil.TestImage(t, db, other.ID)

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.GET("/images", handler.List)

	w := performRequest(router, "GET", "/images", nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["total"])
}

func TestImageHandler_Delete_Success(t *testing.T) {
	handler, db, cleanup := setupImageHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)
	image := testutil.TestImage(t, db, user.ID)

	router := gin.New()
	router.Use(mockAuth(user.ID, user.Role))
	router.DELETE("/images/:id", handler.Delete)

	w := performRequest(router, "DELETE", fmt.Sprintf("/images/%d", image.ID), nil)
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeSuccess, resp.Code)

	var count int64
	db.Model(&model.Image{}).Where("id = ?", image.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
