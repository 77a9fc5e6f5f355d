package public

import (
	"github.com/cardstall/internal/service"
)

// Handler 买家端接口处理器
type Handler struct {
	orders      *service.OrderService
	fulfillment *service.FulfillmentService
	products    *service.ProductService
	auth        *service.AuthService
}

// NewHandler 创建买家端处理器
func NewHandler(
	orders *service.OrderService,
	fulfillment *service.FulfillmentService,
	products *service.ProductService,
	auth *service.AuthService,
) *Handler {
	return &Handler{
		orders:      orders,
		fulfillment: fulfillment,
		products:    products,
		auth:        auth,
	}
}
