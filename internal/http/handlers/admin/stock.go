package admin

import (
	"strings"

	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/repository"

	"github.com/gin-gonic/gin"
)

// ImportCards 批量导入卡密，按行解析并逐行统计失败原因
func (h *Handler) ImportCards(c *gin.Context) {
	var input struct {
		ProductID uint     `json:"product_id" binding:"required"`
		Content   string   `json:"content"`
		Cards     []string `json:"cards"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, response.CodeBadRequest, "商品 ID 不能为空")
		return
	}
	content := input.Content
	if content == "" && len(input.Cards) > 0 {
		content = strings.Join(input.Cards, "\n")
	}
	result, err := h.cards.Import(input.ProductID, content)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, result)
}

// ListCards 卡密列表
func (h *Handler) ListCards(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	var productID uint
	if v, ok := shared.ParseUintQuery(c, "product_id"); ok {
		productID = v
	}
	filter := repository.CardListFilter{
		Page:      page,
		PageSize:  pageSize,
		ProductID: productID,
		Status:    c.Query("status"),
		Keyword:   c.Query("keyword"),
	}
	items, total, err := h.cards.List(filter)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.SuccessPage(c, items, total, page, pageSize)
}

// GetStock 单商品库存统计
func (h *Handler) GetStock(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "商品 ID 无效")
		return
	}
	stock, err := h.cards.Stock(id)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, stock)
}

// DeleteCard 删除未占用的卡密
func (h *Handler) DeleteCard(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "卡密 ID 无效")
		return
	}
	if err := h.cards.Delete(id); err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, nil)
}
