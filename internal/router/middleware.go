package router

import (
	"strings"
	"time"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID 为每个请求生成追踪 ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(response.ContextKeyRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// AccessLog 结构化访问日志
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Infow("http_access",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(response.ContextKeyRequestID),
		)
	}
}

// Recovery panic 恢复，记录堆栈并返回统一错误
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Errorw("http_panic",
			"path", c.Request.URL.Path,
			"panic", recovered,
		)
		response.AbortError(c, response.CodeInternalError, "系统繁忙，请稍后重试")
	})
}

// CORS 跨域处理
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	allowAll := len(cfg.AllowedOrigins) == 0
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := allowed[origin]
			if allowAll || ok {
				if allowAll && !cfg.AllowCredentials {
					c.Header("Access-Control-Allow-Origin", "*")
				} else {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
				}
				if cfg.AllowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Methods", methods)
				c.Header("Access-Control-Allow-Headers", headers)
			}
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// bearerToken 提取 Authorization 头中的 Bearer 令牌
func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AdminAuth 管理端认证
func AdminAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortError(c, response.CodeUnauthorized, "请先登录")
			return
		}
		claims, err := auth.ParseAdminToken(token)
		if err != nil {
			response.AbortError(c, response.CodeUnauthorized, "登录已失效，请重新登录")
			return
		}
		c.Set(shared.ContextKeyAdminID, claims.AdminID)
		c.Set(shared.ContextKeyAdminName, claims.Username)
		c.Next()
	}
}

// UserAuth 买家端认证
func UserAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.AbortError(c, response.CodeUnauthorized, "请先登录")
			return
		}
		claims, err := auth.ParseUserToken(token)
		if err != nil {
			response.AbortError(c, response.CodeUnauthorized, "登录已失效，请重新登录")
			return
		}
		c.Set(shared.ContextKeyUserID, claims.UserID)
		c.Set(shared.ContextKeyUserPhone, claims.Phone)
		c.Next()
	}
}

// OptionalUserAuth 买家端可选认证，携带有效令牌时注入用户身份
func OptionalUserAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := auth.ParseUserToken(token); err == nil {
				c.Set(shared.ContextKeyUserID, claims.UserID)
				c.Set(shared.ContextKeyUserPhone, claims.Phone)
			}
		}
		c.Next()
	}
}
