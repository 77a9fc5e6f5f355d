package public

import (
	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"

	"github.com/gin-gonic/gin"
)

type userAuthInput struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// Register 买家注册
func (h *Handler) Register(c *gin.Context) {
	var input userAuthInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, response.CodeBadRequest, "手机号或密码格式不正确")
		return
	}
	user, err := h.auth.UserRegister(input.Phone, input.Password)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"id": user.ID, "phone": user.Phone})
}

// Login 买家登录
func (h *Handler) Login(c *gin.Context) {
	var input userAuthInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, response.CodeBadRequest, "手机号或密码格式不正确")
		return
	}
	token, user, err := h.auth.UserLogin(input.Phone, input.Password)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "phone": user.Phone},
	})
}
