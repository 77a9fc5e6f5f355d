package public

import (
	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListProducts 上架商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	filter := repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		OnlyOnline: true,
	}
	items, total, err := h.products.List(filter)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.SuccessPage(c, items, total, page, pageSize)
}

// GetProduct 上架商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "商品 ID 无效")
		return
	}
	product, err := h.products.GetOnline(id)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, product)
}
