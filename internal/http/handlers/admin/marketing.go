package admin

import (
	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/service"

	"github.com/gin-gonic/gin"
)

// GetFullReductionRule 读取满减规则
func (h *Handler) GetFullReductionRule(c *gin.Context) {
	rule, err := h.settings.GetFullReductionRule()
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, rule)
}

// SaveFullReductionRule 保存满减规则
func (h *Handler) SaveFullReductionRule(c *gin.Context) {
	var rule service.FullReductionRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		response.Error(c, response.CodeBadRequest, "满减规则格式不正确")
		return
	}
	if err := h.settings.SaveFullReductionRule(rule); err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, rule)
}
