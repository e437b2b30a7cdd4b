package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/artify/artify_go_server/config"
	"github.com/artify/artify_go_server/internal/pkg/response"
)

// RateLimit 基于 Redis 的固定窗口限流
// class 区分路由类别（auth / generate / webhook 等），各自独立计数
// Redis 出错时放行，限流失效不应影响正常服务
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig, class string) gin.HandlerFunc {
	window, ok := cfg.Windows[class]
	if !cfg.Enabled || !ok {
		return func(c *gin.Context) { c.Next() }
	}

	ttl := time.Duration(window.WindowMinutes) * time.Minute

	return func(c *gin.Context) {
		key := rateLimitKey(c, class)

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Printf("Rate limit check failed for %s: %v", key, err)
			c.Next()
			return
		}

		if count == 1 {
			if err := rdb.Expire(c.Request.Context(), key, ttl).Err(); err != nil {
				log.Printf("Failed to set rate limit expiry for %s: %v", key, err)
			}
		}

		if count > int64(window.MaxRequests) {
			response.RateLimitError(c, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}

// rateLimitKey 已登录用户按用户维度计数，否则按客户端 IP
func rateLimitKey(c *gin.Context, class string) string {
	if userID, ok := GetUserID(c); ok {
		return fmt.Sprintf("ratelimit:%s:user:%d", class, userID)
	}
	return fmt.Sprintf("ratelimit:%s:ip:%s", class, c.ClientIP())
}
