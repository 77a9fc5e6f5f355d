package router

import (
	"time"

	"github.com/cardstall/internal/cache"
	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// 固定窗口计数脚本，首次命中时设置过期
var rateLimitScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RateLimit 基于 Redis 的固定窗口限流，按客户端 IP 计数。
// Redis 不可用时放行，不阻断业务。
func RateLimit(scope string, cfg config.RateLimitConfig) gin.HandlerFunc {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	return func(c *gin.Context) {
		if !cache.Enabled() || cfg.MaxAttempts <= 0 || cfg.WindowSeconds <= 0 {
			c.Next()
			return
		}

		key := cache.Key("ratelimit", scope, c.ClientIP())
		count, err := rateLimitScript.Run(c.Request.Context(), cache.Client(),
			[]string{key}, cfg.WindowSeconds).Int64()
		if err != nil {
			logger.Warnw("限流计数失败，请求放行", "scope", scope, "error", err)
			c.Next()
			return
		}
		if count > int64(cfg.MaxAttempts) {
			logger.Warnw("请求触发限流",
				"scope", scope,
				"client_ip", c.ClientIP(),
				"count", count,
				"window", window.String(),
			)
			response.AbortError(c, response.CodeTooManyRequests, "请求过于频繁，请稍后重试")
			return
		}
		c.Next()
	}
}
