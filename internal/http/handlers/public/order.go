package public

import (
	"strings"

	"github.com/cardstall/internal/http/handlers/shared"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrder 下单。登录用户订单归属账号，匿名订单仅凭手机号查询。
func (h *Handler) CreateOrder(c *gin.Context) {
	var input service.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数不完整")
		return
	}
	input.UserID = shared.UserID(c)
	input.ClientIP = c.ClientIP()

	order, err := h.orders.Create(input)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// verifyOrderAccess 校验订单访问权：登录用户看归属，匿名凭手机号
func (h *Handler) verifyOrderAccess(c *gin.Context, orderID uint) (*service.OrderDetail, error) {
	if userID := shared.UserID(c); userID > 0 {
		return h.orders.DetailForUser(orderID, userID)
	}
	detail, err := h.orders.Detail(orderID)
	if err != nil {
		return nil, err
	}
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" || detail.BuyerPhone != phone {
		return nil, service.ErrForbidden
	}
	return detail, nil
}

// GetOrder 订单详情，pending 订单附带剩余支付秒数
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "订单 ID 无效")
		return
	}
	detail, err := h.verifyOrderAccess(c, id)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, detail)
}

// ListOrders 登录用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	items, total, err := h.orders.ListForUser(shared.UserID(c), page, pageSize)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.SuccessPage(c, items, total, page, pageSize)
}

// QueryOrders 匿名订单查询，按手机号匹配
func (h *Handler) QueryOrders(c *gin.Context) {
	page, pageSize := shared.ParsePagination(c)
	items, total, err := h.orders.Query(c.Query("phone"), c.Query("order_no"), page, pageSize)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.SuccessPage(c, items, total, page, pageSize)
}

// CancelOrder 取消待支付订单
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "订单 ID 无效")
		return
	}
	if _, err := h.verifyOrderAccess(c, id); err != nil {
		shared.RespondError(c, err)
		return
	}
	if err := h.orders.Cancel(id); err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, nil)
}

// PayOrder 支付确认（模拟支付入口）。success=false 表示支付失败，
// 订单转为取消；默认按成功处理并交付卡密。
func (h *Handler) PayOrder(c *gin.Context) {
	id, ok := shared.ParseUintParam(c, "id")
	if !ok {
		response.Error(c, response.CodeBadRequest, "订单 ID 无效")
		return
	}
	if _, err := h.verifyOrderAccess(c, id); err != nil {
		shared.RespondError(c, err)
		return
	}
	// 请求体可为空，默认按支付成功处理
	var body struct {
		Success *bool  `json:"success"`
		TradeNo string `json:"trade_no"`
	}
	_ = c.ShouldBindJSON(&body)
	input := service.ConfirmPaymentInput{OrderID: id, Success: true, TradeNo: body.TradeNo}
	if body.Success != nil {
		input.Success = *body.Success
	}
	order, err := h.fulfillment.ConfirmPayment(input)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, order)
}

// PaymentNotify 支付回调入口。凭买家手机号校验归属，重复回调幂等处理。
func (h *Handler) PaymentNotify(c *gin.Context) {
	var body struct {
		OrderNo    string `json:"order_no" binding:"required"`
		BuyerPhone string `json:"buyer_phone"`
		Success    *bool  `json:"success"`
		TradeNo    string `json:"trade_no"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, response.CodeBadRequest, "请求参数不完整")
		return
	}
	input := service.PaymentNotifyInput{
		OrderNo:    body.OrderNo,
		BuyerPhone: body.BuyerPhone,
		Success:    true,
		TradeNo:    body.TradeNo,
	}
	if body.Success != nil {
		input.Success = *body.Success
	}
	order, err := h.fulfillment.ConfirmPaymentByOrderNo(input)
	if err != nil {
		shared.RespondError(c, err)
		return
	}
	response.Success(c, gin.H{"order_no": order.OrderNo, "status": order.Status})
}
