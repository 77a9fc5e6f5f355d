package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cardstall/internal/models"
)

func TestCreateOrderReservesCard(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "视频会员月卡", 19.90)
	env.mustImportCards(t, product.ID, "CARD-001", "CARD-002")

	order := env.mustCreateOrder(t, product.ID)

	if order.Status != "pending" || order.PayStatus != "unpaid" {
		t.Fatalf("新订单状态异常: status=%s pay_status=%s", order.Status, order.PayStatus)
	}
	if order.OrderAmount.String() != "19.90" {
		t.Fatalf("订单金额错误: %s", order.OrderAmount.String())
	}
	if order.ExpiresAt == nil || !order.ExpiresAt.After(time.Now()) {
		t.Fatal("订单应设置未来的过期时间")
	}

	card, err := env.cardRepo.GetReservedByOrder(order.ID)
	if err != nil {
		t.Fatalf("查询预占卡密失败: %v", err)
	}
	if card == nil {
		t.Fatal("下单后应有一张卡密被预占")
	}

	stock, err := env.cardRepo.CountByProduct(product.ID)
	if err != nil {
		t.Fatalf("统计库存失败: %v", err)
	}
	if stock.Available != 1 || stock.Reserved != 1 {
		t.Fatalf("库存统计错误: %+v", stock)
	}
}

func TestCreateOrderOutOfStock(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "游戏点卡", 98.00)
	env.mustImportCards(t, product.ID, "ONLY-ONE")

	env.mustCreateOrder(t, product.ID)

	_, err := env.orders.Create(CreateOrderInput{
		ProductID:     product.ID,
		BuyerPhone:    "13900139000",
		PaymentMethod: "wechat",
	})
	if !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("库存耗尽应返回 ErrOutOfStock, got %v", err)
	}

	// 库存不足时不应留下残余订单占用
	var count int64
	models.DB.Model(&models.Order{}).Where("status = ?", "pending").Count(&count)
	if count != 1 {
		t.Fatalf("应只有一笔待支付订单, got %d", count)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-X")

	cases := []struct {
		name  string
		input CreateOrderInput
		want  error
	}{
		{"手机号非法", CreateOrderInput{ProductID: product.ID, BuyerPhone: "12345", PaymentMethod: "alipay"}, ErrPhoneInvalid},
		{"支付方式非法", CreateOrderInput{ProductID: product.ID, BuyerPhone: "13800138000", PaymentMethod: "paypal"}, ErrPaymentMethodInvalid},
		{"商品不存在", CreateOrderInput{ProductID: 9999, BuyerPhone: "13800138000", PaymentMethod: "alipay"}, ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.orders.Create(tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateOrderOfflineProduct(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "下架商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-OFF")
	product.Status = "offline"
	if err := env.productRepo.Update(product); err != nil {
		t.Fatalf("下架商品失败: %v", err)
	}

	_, err := env.orders.Create(CreateOrderInput{
		ProductID:     product.ID,
		BuyerPhone:    "13800138000",
		PaymentMethod: "alipay",
	})
	if !errors.Is(err, ErrProductNotAvailable) {
		t.Fatalf("下架商品下单应失败, got %v", err)
	}
}

func TestCreateOrderAppliesFullReduction(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "高价商品", 100.00)
	env.mustImportCards(t, product.ID, "CARD-FR")

	rule := FullReductionRule{Enabled: true, Threshold: money(50.00), Reduce: money(10.00)}
	if err := env.settings.SaveFullReductionRule(rule); err != nil {
		t.Fatalf("保存满减规则失败: %v", err)
	}

	order := env.mustCreateOrder(t, product.ID)
	if order.OriginalAmount.String() != "100.00" {
		t.Fatalf("原价快照错误: %s", order.OriginalAmount.String())
	}
	if order.DiscountAmount.String() != "10.00" {
		t.Fatalf("优惠金额错误: %s", order.DiscountAmount.String())
	}
	if order.OrderAmount.String() != "90.00" {
		t.Fatalf("实付金额错误: %s", order.OrderAmount.String())
	}

	// 规则失效不应回溯已下单的金额快照
	rule.Enabled = false
	if err := env.settings.SaveFullReductionRule(rule); err != nil {
		t.Fatalf("关闭满减规则失败: %v", err)
	}
	latest, _ := env.orderRepo.GetByID(order.ID)
	if latest.DiscountAmount.String() != "10.00" || latest.OrderAmount.String() != "90.00" {
		t.Fatalf("金额快照不应随规则变更: %+v", latest)
	}
}

func TestCreateOrderRace(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "ONLY-CARD")

	// 两个并发下单争抢最后一张卡密，恰好一单成功
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.orders.Create(CreateOrderInput{
				ProductID:     product.ID,
				BuyerPhone:    "13800138000",
				PaymentMethod: "alipay",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, failed := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrOutOfStock) || errors.Is(err, ErrOrderConflict):
			failed++
		default:
			t.Fatalf("意外错误: %v", err)
		}
	}
	if succeeded != 1 || failed != 1 {
		t.Fatalf("并发下单应恰好一单成功, got succeeded=%d failed=%d", succeeded, failed)
	}
	stock, _ := env.cardRepo.CountByProduct(product.ID)
	if stock.Reserved != 1 || stock.Available != 0 {
		t.Fatalf("并发下单后库存错误: %+v", stock)
	}
}

func TestCancelThenReorderSameCard(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "SOLO-CARD")

	first := env.mustCreateOrder(t, product.ID)
	reserved, _ := env.cardRepo.GetReservedByOrder(first.ID)

	// 唯一卡密被占用期间无法下第二单
	if _, err := env.orders.Create(CreateOrderInput{
		ProductID:     product.ID,
		BuyerPhone:    "13900139000",
		PaymentMethod: "wechat",
	}); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("卡密被占用时下单应失败, got %v", err)
	}

	if err := env.orders.Cancel(first.ID); err != nil {
		t.Fatalf("取消订单失败: %v", err)
	}

	second := env.mustCreateOrder(t, product.ID)
	card, _ := env.cardRepo.GetReservedByOrder(second.ID)
	if card == nil || card.ID != reserved.ID {
		t.Fatal("取消释放后的卡密应可被新订单重新预占")
	}
}

func TestCancelOrderReleasesCard(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-C1")
	order := env.mustCreateOrder(t, product.ID)

	if err := env.orders.Cancel(order.ID); err != nil {
		t.Fatalf("取消订单失败: %v", err)
	}

	latest, _ := env.orderRepo.GetByID(order.ID)
	if latest.Status != "cancelled" || latest.CancelledAt == nil {
		t.Fatalf("订单应已取消: %+v", latest)
	}

	stock, _ := env.cardRepo.CountByProduct(product.ID)
	if stock.Available != 1 || stock.Reserved != 0 {
		t.Fatalf("取消后卡密应释放: %+v", stock)
	}

	// 重复取消幂等
	if err := env.orders.Cancel(order.ID); err != nil {
		t.Fatalf("重复取消应幂等成功: %v", err)
	}
}

func TestCancelPaidOrderConflict(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-P1")
	order := env.mustCreateOrder(t, product.ID)

	if _, err := env.fulfillment.ConfirmPayment(payInput(order.ID)); err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}
	if err := env.orders.Cancel(order.ID); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("已支付订单取消应冲突, got %v", err)
	}
}

func TestDetailHidesCardBeforePayment(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-S1")
	order := env.mustCreateOrder(t, product.ID)

	detail, err := env.orders.Detail(order.ID)
	if err != nil {
		t.Fatalf("查询订单详情失败: %v", err)
	}
	if detail.Card != nil || detail.CardNumber != "" {
		t.Fatal("未支付订单不应返回卡密")
	}
	if detail.ExpiresInSeconds == nil || *detail.ExpiresInSeconds <= 0 {
		t.Fatal("待支付订单应带剩余支付秒数")
	}

	if _, err := env.fulfillment.ConfirmPayment(payInput(order.ID)); err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}
	paid, err := env.orders.Detail(order.ID)
	if err != nil {
		t.Fatalf("查询已支付订单失败: %v", err)
	}
	if paid.Card == nil || paid.Card.CardNumber != "CARD-S1" || paid.CardNumber != "CARD-S1" {
		t.Fatalf("已支付订单应返回卡密: %+v", paid.Card)
	}
	if paid.ExpiresInSeconds != nil {
		t.Fatal("已支付订单不应带剩余支付秒数")
	}
}

func TestQueryOrdersByPhone(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-Q1", "CARD-Q2")
	order := env.mustCreateOrder(t, product.ID)

	items, total, err := env.orders.Query("13800138000", "", 1, 10)
	if err != nil {
		t.Fatalf("按手机号查询失败: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("应查到 1 笔订单, got total=%d", total)
	}

	// 订单号与手机号不匹配时不返回
	items, total, err = env.orders.Query("13900139000", order.OrderNo, 1, 10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatal("手机号不匹配不应返回订单")
	}

	if _, _, err := env.orders.Query("123", "", 1, 10); !errors.Is(err, ErrPhoneInvalid) {
		t.Fatalf("非法手机号应报错, got %v", err)
	}
}

func TestSweepExpiredOrders(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-E1", "CARD-E2", "CARD-E3")

	expired1 := env.mustCreateOrder(t, product.ID)
	expired2 := env.mustCreateOrder(t, product.ID)
	alive := env.mustCreateOrder(t, product.ID)
	env.mustExpireOrder(t, expired1.ID)
	env.mustExpireOrder(t, expired2.ID)

	cancelled, released, err := env.orders.SweepExpired(200)
	if err != nil {
		t.Fatalf("过期扫描失败: %v", err)
	}
	if cancelled != 2 || released != 2 {
		t.Fatalf("应取消 2 笔订单并释放 2 张卡密, got %d/%d", cancelled, released)
	}

	stock, _ := env.cardRepo.CountByProduct(product.ID)
	if stock.Available != 2 || stock.Reserved != 1 {
		t.Fatalf("过期释放后库存错误: %+v", stock)
	}

	latest, _ := env.orderRepo.GetByID(alive.ID)
	if latest.Status != "pending" {
		t.Fatalf("未过期订单不应被取消: %s", latest.Status)
	}
}

func TestCancelExpiredSkipsAliveOrder(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-A1")
	order := env.mustCreateOrder(t, product.ID)

	if err := env.orders.CancelExpired(order.ID); err != nil {
		t.Fatalf("未过期订单应静默跳过: %v", err)
	}
	latest, _ := env.orderRepo.GetByID(order.ID)
	if latest.Status != "pending" {
		t.Fatalf("未过期订单状态不应变更: %s", latest.Status)
	}

	env.mustExpireOrder(t, order.ID)
	if err := env.orders.CancelExpired(order.ID); err != nil {
		t.Fatalf("过期取消失败: %v", err)
	}
	latest, _ = env.orderRepo.GetByID(order.ID)
	if latest.Status != "cancelled" {
		t.Fatalf("过期订单应被取消: %s", latest.Status)
	}
}
