package admin

import (
	"github.com/cardstall/internal/service"
)

// Handler 管理端接口处理器
type Handler struct {
	orders      *service.OrderService
	fulfillment *service.FulfillmentService
	cards       *service.CardService
	products    *service.ProductService
	settings    *service.SettingService
	reconcile   *service.ReconcileService
	auth        *service.AuthService
}

// NewHandler 创建管理端处理器
func NewHandler(
	orders *service.OrderService,
	fulfillment *service.FulfillmentService,
	cards *service.CardService,
	products *service.ProductService,
	settings *service.SettingService,
	reconcile *service.ReconcileService,
	auth *service.AuthService,
) *Handler {
	return &Handler{
		orders:      orders,
		fulfillment: fulfillment,
		cards:       cards,
		products:    products,
		settings:    settings,
		reconcile:   reconcile,
		auth:        auth,
	}
}
