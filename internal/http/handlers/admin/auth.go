package admin

import (
	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Login 管理员登录
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, response.CodeBadRequest, "用户名或密码不能为空")
		return
	}
	token, admin, err := h.auth.AdminLogin(input.Username, input.Password)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"token": token,
		"admin": gin.H{"id": admin.ID, "username": admin.Username},
	})
}
