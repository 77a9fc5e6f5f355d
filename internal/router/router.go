package router

import (
	"github.com/cardstall/internal/config"
	adminhandler "github.com/cardstall/internal/http/handlers/admin"
	publichandler "github.com/cardstall/internal/http/handlers/public"
	"github.com/cardstall/internal/http/response"
	"github.com/cardstall/internal/service"

	"github.com/gin-gonic/gin"
)

// Setup 构建 HTTP 路由
func Setup(
	cfg *config.Config,
	public *publichandler.Handler,
	admin *adminhandler.Handler,
	auth *service.AuthService,
) *gin.Engine {
	gin.SetMode(ginMode(cfg.Server.Mode))
	engine := gin.New()
	engine.Use(RequestID(), AccessLog(), Recovery(), CORS(cfg.CORS))

	engine.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/auth/register", RateLimit("register", cfg.Security.LoginRateLimit), public.Register)
		v1.POST("/auth/login", RateLimit("login", cfg.Security.LoginRateLimit), public.Login)

		v1.GET("/products", public.ListProducts)
		v1.GET("/products/:id", public.GetProduct)

		v1.POST("/orders",
			RateLimit("order_create", cfg.Security.OrderRateLimit),
			OptionalUserAuth(auth),
			public.CreateOrder,
		)
		v1.GET("/orders", UserAuth(auth), public.ListOrders)
		v1.GET("/orders/query", public.QueryOrders)
		v1.GET("/orders/:id", OptionalUserAuth(auth), public.GetOrder)
		v1.POST("/orders/:id/cancel", OptionalUserAuth(auth), public.CancelOrder)
		v1.POST("/orders/:id/pay", OptionalUserAuth(auth), public.PayOrder)

		v1.POST("/payments/notify", public.PaymentNotify)
	}

	adminGroup := engine.Group("/api/v1/admin")
	{
		adminGroup.POST("/auth/login", RateLimit("admin_login", cfg.Security.LoginRateLimit), admin.Login)

		authed := adminGroup.Group("", AdminAuth(auth))
		{
			authed.GET("/orders", admin.ListOrders)
			authed.GET("/orders/:id", admin.GetOrder)
			authed.POST("/orders/:id/cancel", admin.CancelOrder)
			authed.POST("/orders/:id/deliver", admin.DeliverOrder)
			authed.POST("/orders/:id/repair", admin.RepairOrder)
			authed.POST("/orders/:id/refund", admin.RefundOrder)
			authed.POST("/orders/batch-deliver", admin.BatchDeliver)

			authed.GET("/products", admin.ListProducts)
			authed.GET("/products/:id", admin.GetProduct)
			authed.POST("/products", admin.CreateProduct)
			authed.PUT("/products/:id", admin.UpdateProduct)
			authed.GET("/products/:id/stock", admin.GetStock)

			authed.GET("/cards", admin.ListCards)
			authed.POST("/cards/import", admin.ImportCards)
			authed.DELETE("/cards/:id", admin.DeleteCard)

			authed.GET("/marketing/full-reduction", admin.GetFullReductionRule)
			authed.PUT("/marketing/full-reduction", admin.SaveFullReductionRule)

			authed.GET("/reconcile/summary", admin.ReconcileSummary)
			authed.GET("/reconcile/orders", admin.ReconcileDrift)
		}
	}

	return engine
}

func ginMode(mode string) string {
	switch mode {
	case gin.ReleaseMode, gin.TestMode:
		return mode
	default:
		return gin.DebugMode
	}
}
