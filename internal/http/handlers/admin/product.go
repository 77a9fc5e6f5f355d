package admin

import (
	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/repository"
	"github.com/cardstall/internal/service"

	"github.com/gin-gonic/gin"
)

// ListProducts 商品列表（含下架商品）
func (h *Handler) ListProducts(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	filter := repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	items, total, err := h.products.List(filter)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.SuccessPage(c, items, total, page, pageSize)
}

// GetProduct 商品详情（含完整库存统计）
func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "商品 ID 无效")
		return
	}
	product, err := h.products.Get(id)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, product)
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, response.CodeBadRequest, "商品参数不完整")
		return
	}
	product, err := h.products.Create(input)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "商品 ID 无效")
		return
	}
	var input service.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, response.CodeBadRequest, "商品参数不完整")
		return
	}
	product, err := h.products.Update(id, input)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, product)
}
