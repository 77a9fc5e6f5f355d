package provider

import (
	"github.com/cardstall/internal/config"
	adminhandler "github.com/cardstall/internal/http/handlers/admin"
	publichandler "github.com/cardstall/internal/http/handlers/public"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/queue"
	"github.com/cardstall/internal/repository"
	"github.com/cardstall/internal/service"
	"github.com/cardstall/internal/worker"
)

// Container 依赖装配容器
type Container struct {
	Config *config.Config

	Orders      *service.OrderService
	Fulfillment *service.FulfillmentService
	Cards       *service.CardService
	Products    *service.ProductService
	Settings    *service.SettingService
	Reconcile   *service.ReconcileService
	Auth        *service.AuthService

	PublicHandler *publichandler.Handler
	AdminHandler  *adminhandler.Handler

	QueueClient *queue.Client
	Worker      *worker.Worker
}

// Build 按依赖顺序装配全部组件
func Build(cfg *config.Config) *Container {
	orderRepo := repository.NewOrderRepository(models.DB)
	cardRepo := repository.NewCardRepository(models.DB)
	productRepo := repository.NewProductRepository(models.DB)
	settingRepo := repository.NewSettingRepository(models.DB)
	adminRepo := repository.NewAdminRepository(models.DB)
	userRepo := repository.NewUserRepository(models.DB)

	queueClient := queue.NewClient(cfg.Queue)
	var scheduler service.TimeoutScheduler
	if queueClient != nil {
		scheduler = queueClient
	}

	settings := service.NewSettingService(settingRepo)
	orders := service.NewOrderService(orderRepo, cardRepo, productRepo, settings, scheduler, cfg)
	fulfillment := service.NewFulfillmentService(orderRepo, cardRepo)
	cards := service.NewCardService(cardRepo, productRepo, cfg)
	products := service.NewProductService(productRepo, cardRepo)
	reconcile := service.NewReconcileService(orderRepo)
	auth := service.NewAuthService(adminRepo, userRepo, cfg)

	return &Container{
		Config:        cfg,
		Orders:        orders,
		Fulfillment:   fulfillment,
		Cards:         cards,
		Products:      products,
		Settings:      settings,
		Reconcile:     reconcile,
		Auth:          auth,
		PublicHandler: publichandler.NewHandler(orders, fulfillment, products, auth),
		AdminHandler:  adminhandler.NewHandler(orders, fulfillment, cards, products, settings, reconcile, auth),
		QueueClient:   queueClient,
		Worker:        worker.New(orders, reconcile, cfg),
	}
}
