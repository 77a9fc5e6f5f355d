package admin

import (
	"time"

	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/repository"
	"github.com/cardstall/internal/service"

	"github.com/gin-gonic/gin"
)

// ListOrders 订单列表，支持多维度筛选
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	filter := repository.OrderListFilter{
		Page:          page,
		PageSize:      pageSize,
		OrderNo:       c.Query("order_no"),
		BuyerPhone:    c.Query("phone"),
		ProductName:   c.Query("product_name"),
		Status:        c.Query("status"),
		PayStatus:     c.Query("pay_status"),
		RefundStatus:  c.Query("refund_status"),
		PaymentMethod: c.Query("payment_method"),
		OrderBy:       c.Query("order_by"),
		Descending:    c.DefaultQuery("desc", "1") == "1",
	}
	if from, err := time.Parse(time.RFC3339, c.Query("created_from")); err == nil {
		filter.CreatedFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("created_to")); err == nil {
		filter.CreatedTo = &to
	}

	items, total, err := h.orders.ListAdmin(filter)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.SuccessPage(c, items, total, page, pageSize)
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "订单 ID 无效")
		return
	}
	detail, err := h.orders.Detail(id)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, detail)
}

// CancelOrder 取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "订单 ID 无效")
		return
	}
	if err := h.orders.Cancel(id); err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, nil)
}

// DeliverOrder 手工发货，可指定卡密内容定向绑定
func (h *Handler) DeliverOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "订单 ID 无效")
		return
	}
	var input struct {
		CardNumber string `json:"card_number"`
	}
	_ = c.ShouldBindJSON(&input)

	order, err := h.fulfillment.Deliver(id, input.CardNumber)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// BatchDeliver 批量发货
func (h *Handler) BatchDeliver(c *gin.Context) {
	var input struct {
		OrderIDs []uint `json:"order_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, response.CodeBadRequest, "订单 ID 列表不能为空")
		return
	}
	result, err := h.fulfillment.BatchDeliver(input.OrderIDs)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, result)
}

// RepairOrder 补单，修正已支付订单的卡密绑定
func (h *Handler) RepairOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "订单 ID 无效")
		return
	}
	var input service.RepairInput
	_ = c.ShouldBindJSON(&input)
	input.OrderID = id

	order, err := h.fulfillment.Repair(input)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// RefundOrder 订单退款
func (h *Handler) RefundOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "订单 ID 无效")
		return
	}
	var input service.RefundInput
	_ = c.ShouldBindJSON(&input)
	input.OrderID = id

	order, err := h.fulfillment.Refund(input)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}
