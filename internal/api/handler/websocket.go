package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/artify/artify_go_server/internal/pkg/jwt"
	"github.com/artify/artify_go_server/internal/pkg/ws"
)

// 客户端只收不发，入站帧限制很小
const wsReadLimit = 512

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境需要验证 Origin
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type WebSocketHandler struct {
	hub       *ws.Hub
	jwtSecret string
}

func NewWebSocketHandler(hub *ws.Hub, jwtSecret string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// Handle 建立生成进度推送连接
// GET /api/v1/ws?token=xxx
// 浏览器的 WebSocket API 不能带自定义 Header，token 走查询参数
func (h *WebSocketHandler) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := jwt.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection for user %d: %v", claims.UserID, err)
		return
	}

	client := &ws.Client{
		UserID:      claims.UserID,
		Conn:        conn,
		ConnectedAt: time.Now(),
	}

	h.hub.Register(client)

	// 连接只用于服务端推送，读循环仅检测客户端断开
	go func() {
		defer h.hub.Unregister(client)
		conn.SetReadLimit(wsReadLimit)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
