package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/repository"
)

// setupTestDB 初始化独立的内存数据库
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:cardstall_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	if err := models.InitDB("sqlite", dsn, models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1}); err != nil {
		t.Fatalf("初始化测试数据库失败: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}
}

func newTestConfig() *config.Config {
	return &config.Config{
		Order: config.OrderConfig{PaymentExpireMinutes: 15},
		Stock: config.StockConfig{ImportMaxBatch: 5000, CardMaxLength: 500},
	}
}

type testEnv struct {
	cfg         *config.Config
	orderRepo   *repository.GormOrderRepository
	cardRepo    *repository.GormCardRepository
	productRepo *repository.GormProductRepository
	settingRepo *repository.GormSettingRepository

	orders      *OrderService
	fulfillment *FulfillmentService
	cards       *CardService
	products    *ProductService
	settings    *SettingService
	reconcile   *ReconcileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	setupTestDB(t)

	cfg := newTestConfig()
	orderRepo := repository.NewOrderRepository(models.DB)
	cardRepo := repository.NewCardRepository(models.DB)
	productRepo := repository.NewProductRepository(models.DB)
	settingRepo := repository.NewSettingRepository(models.DB)

	settings := NewSettingService(settingRepo)
	return &testEnv{
		cfg:         cfg,
		orderRepo:   orderRepo,
		cardRepo:    cardRepo,
		productRepo: productRepo,
		settingRepo: settingRepo,
		orders:      NewOrderService(orderRepo, cardRepo, productRepo, settings, nil, cfg),
		fulfillment: NewFulfillmentService(orderRepo, cardRepo),
		cards:       NewCardService(cardRepo, productRepo, cfg),
		products:    NewProductService(productRepo, cardRepo),
		settings:    settings,
		reconcile:   NewReconcileService(orderRepo),
	}
}

func money(value float64) models.Money {
	return models.NewMoneyFromFloat(value)
}

// mustCreateProduct 创建测试商品
func (env *testEnv) mustCreateProduct(t *testing.T, name string, price float64) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: money(price), Status: "online"}
	if err := env.productRepo.Create(product); err != nil {
		t.Fatalf("创建测试商品失败: %v", err)
	}
	return product
}

// mustImportCards 为商品导入测试卡密
func (env *testEnv) mustImportCards(t *testing.T, productID uint, numbers ...string) {
	t.Helper()
	content := ""
	for _, n := range numbers {
		content += n + "\n"
	}
	if _, err := env.cards.Import(productID, content); err != nil {
		t.Fatalf("导入测试卡密失败: %v", err)
	}
}

// mustCreateOrder 创建测试订单
func (env *testEnv) mustCreateOrder(t *testing.T, productID uint) *models.Order {
	t.Helper()
	order, err := env.orders.Create(CreateOrderInput{
		ProductID:     productID,
		BuyerPhone:    "13800138000",
		PaymentMethod: "alipay",
	})
	if err != nil {
		t.Fatalf("创建测试订单失败: %v", err)
	}
	return order
}

// payInput 成功支付确认参数
func payInput(orderID uint) ConfirmPaymentInput {
	return ConfirmPaymentInput{OrderID: orderID, Success: true}
}

// mustExpireOrder 将订单强制改为已过期
func (env *testEnv) mustExpireOrder(t *testing.T, orderID uint) {
	t.Helper()
	expired := time.Now().Add(-time.Minute)
	if err := env.orderRepo.UpdateFields(orderID, map[string]interface{}{"expires_at": expired}); err != nil {
		t.Fatalf("设置订单过期失败: %v", err)
	}
}
