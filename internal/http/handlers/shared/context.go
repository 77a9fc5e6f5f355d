package shared

import (
	"github.com/gin-gonic/gin"
)

// 认证信息在 gin 上下文中的键
const (
	ContextKeyAdminID   = "admin_id"
	ContextKeyAdminName = "admin_name"
	ContextKeyUserID    = "user_id"
	ContextKeyUserPhone = "user_phone"
)

// AdminID 从上下文取当前管理员 ID
func AdminID(c *gin.Context) uint {
	if v, ok := c.Get(ContextKeyAdminID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// UserID 从上下文取当前买家 ID，匿名请求返回 0
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextKeyUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
