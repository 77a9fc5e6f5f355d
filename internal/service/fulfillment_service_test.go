package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cardstall/internal/models"
)

func TestConfirmPaymentDeliversCard(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-D1")
	order := env.mustCreateOrder(t, product.ID)

	confirmed, err := env.fulfillment.ConfirmPayment(payInput(order.ID))
	if err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}
	if confirmed.Status != "paid" || confirmed.PayStatus != "paid" {
		t.Fatalf("确认后订单状态错误: %+v", confirmed)
	}
	if confirmed.CardID == nil || confirmed.PaidAt == nil || confirmed.DeliveredAt == nil {
		t.Fatal("确认后应绑定卡密并记录时间")
	}
	if confirmed.CardNumber != "CARD-D1" {
		t.Fatalf("确认后应落地卡密内容快照, got %q", confirmed.CardNumber)
	}
	if !strings.HasPrefix(confirmed.PaymentTradeNo, "SIM-") {
		t.Fatalf("未携带流水号时应生成模拟流水, got %q", confirmed.PaymentTradeNo)
	}

	card, _ := env.cardRepo.GetByID(*confirmed.CardID)
	if card.Status != models.CardStatusSold {
		t.Fatalf("卡密应为售出状态: %s", card.Status)
	}
	if card.SoldOrderID == nil || *card.SoldOrderID != order.ID {
		t.Fatal("卡密售出订单归属错误")
	}
}

func TestConfirmPaymentRecordsTradeNo(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-TN1")
	order := env.mustCreateOrder(t, product.ID)

	confirmed, err := env.fulfillment.ConfirmPayment(ConfirmPaymentInput{
		OrderID: order.ID, Success: true, TradeNo: "TN-100",
	})
	if err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}
	if confirmed.PaymentTradeNo != "TN-100" {
		t.Fatalf("应记录回调流水号, got %q", confirmed.PaymentTradeNo)
	}

	// 重复回调携带不同流水号，已落地的流水号不被覆盖
	again, err := env.fulfillment.ConfirmPayment(ConfirmPaymentInput{
		OrderID: order.ID, Success: true, TradeNo: "TN-OTHER",
	})
	if err != nil {
		t.Fatalf("重复确认应幂等成功: %v", err)
	}
	if again.PaymentTradeNo != "TN-100" {
		t.Fatalf("流水号不应被重复回调覆盖, got %q", again.PaymentTradeNo)
	}
}

func TestConfirmPaymentFailureCancelsOrder(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-F1")
	order := env.mustCreateOrder(t, product.ID)

	cancelled, err := env.fulfillment.ConfirmPayment(ConfirmPaymentInput{OrderID: order.ID, Success: false})
	if err != nil {
		t.Fatalf("失败回调不应报错: %v", err)
	}
	if cancelled.Status != "cancelled" || cancelled.PayStatus != "unpaid" {
		t.Fatalf("失败回调应取消订单: %+v", cancelled)
	}
	stock, _ := env.cardRepo.CountByProduct(product.ID)
	if stock.Available != 1 || stock.Reserved != 0 {
		t.Fatalf("失败回调应释放卡密: %+v", stock)
	}
}

func TestConfirmPaymentFailureKeepsPaidOrder(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-F2")
	order := env.mustCreateOrder(t, product.ID)

	if _, err := env.fulfillment.ConfirmPayment(payInput(order.ID)); err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}
	// 迟到的失败回调不应动已支付订单
	latest, err := env.fulfillment.ConfirmPayment(ConfirmPaymentInput{OrderID: order.ID, Success: false})
	if err != nil {
		t.Fatalf("迟到失败回调不应报错: %v", err)
	}
	if latest.Status != "paid" || latest.CardNumber != "CARD-F2" {
		t.Fatalf("已支付订单不应被失败回调改写: %+v", latest)
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-I1", "CARD-I2")
	order := env.mustCreateOrder(t, product.ID)

	first, err := env.fulfillment.ConfirmPayment(payInput(order.ID))
	if err != nil {
		t.Fatalf("首次确认失败: %v", err)
	}
	second, err := env.fulfillment.ConfirmPayment(payInput(order.ID))
	if err != nil {
		t.Fatalf("重复确认应幂等成功: %v", err)
	}
	if second.CardID == nil || *second.CardID != *first.CardID {
		t.Fatal("重复确认不应换卡")
	}

	// 重复确认不应额外消耗库存
	stock, _ := env.cardRepo.CountByProduct(product.ID)
	if stock.Sold != 1 || stock.Available != 1 {
		t.Fatalf("重复确认后库存错误: %+v", stock)
	}
}

func TestConfirmPaymentExpiredOrder(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-X1")
	order := env.mustCreateOrder(t, product.ID)
	env.mustExpireOrder(t, order.ID)

	if _, err := env.fulfillment.ConfirmPayment(payInput(order.ID)); !errors.Is(err, ErrOrderExpired) {
		t.Fatalf("过期订单确认应返回 ErrOrderExpired, got %v", err)
	}

	latest, _ := env.orderRepo.GetByID(order.ID)
	if latest.Status != "cancelled" {
		t.Fatalf("过期确认应就地取消订单: %s", latest.Status)
	}
	stock, _ := env.cardRepo.CountByProduct(product.ID)
	if stock.Available != 1 {
		t.Fatalf("过期确认应释放卡密: %+v", stock)
	}
}

func TestConfirmPaymentCancelledOrder(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-N1")
	order := env.mustCreateOrder(t, product.ID)

	if err := env.orders.Cancel(order.ID); err != nil {
		t.Fatalf("取消订单失败: %v", err)
	}
	if _, err := env.fulfillment.ConfirmPayment(payInput(order.ID)); !errors.Is(err, ErrOrderCancelled) {
		t.Fatalf("已取消订单确认应失败, got %v", err)
	}
}

func TestConfirmPaymentCardSoldElsewhere(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-S1", "CARD-S2")
	order := env.mustCreateOrder(t, product.ID)

	// 人为将订单关联的卡密改写为他单售出
	if err := models.DB.Model(&models.Card{}).
		Where("id = ?", *order.CardID).
		Updates(map[string]interface{}{
			"status":            models.CardStatusSold,
			"sold_order_id":     9999,
			"reserved_order_id": nil,
			"reserved_at":       nil,
		}).Error; err != nil {
		t.Fatalf("改写卡密状态失败: %v", err)
	}

	// 关联卡密已被他单售出时不得静默换卡
	if _, err := env.fulfillment.ConfirmPayment(payInput(order.ID)); !errors.Is(err, ErrInventoryAnomaly) {
		t.Fatalf("他单售出的关联卡密应报库存异常, got %v", err)
	}
	stock, _ := env.cardRepo.CountByProduct(product.ID)
	if stock.Available != 1 {
		t.Fatalf("确认失败不应消耗其他卡密: %+v", stock)
	}
}

func TestConfirmPaymentByOrderNo(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-NO1")
	order := env.mustCreateOrder(t, product.ID)

	// 手机号不匹配或缺失的回调一律拒绝
	if _, err := env.fulfillment.ConfirmPaymentByOrderNo(PaymentNotifyInput{
		OrderNo: order.OrderNo, BuyerPhone: "13900139000", Success: true,
	}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("手机号不匹配应拒绝, got %v", err)
	}
	if _, err := env.fulfillment.ConfirmPaymentByOrderNo(PaymentNotifyInput{
		OrderNo: order.OrderNo, Success: true,
	}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("缺少手机号应拒绝, got %v", err)
	}

	confirmed, err := env.fulfillment.ConfirmPaymentByOrderNo(PaymentNotifyInput{
		OrderNo: order.OrderNo, BuyerPhone: order.BuyerPhone, Success: true,
	})
	if err != nil {
		t.Fatalf("按订单号确认失败: %v", err)
	}
	if confirmed.ID != order.ID {
		t.Fatal("确认的订单不匹配")
	}

	if _, err := env.fulfillment.ConfirmPaymentByOrderNo(PaymentNotifyInput{
		OrderNo: "ORD-NOT-EXIST", BuyerPhone: order.BuyerPhone, Success: true,
	}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("未知订单号应返回 ErrOrderNotFound, got %v", err)
	}
}

func TestDeliverMatchesReservation(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-T1", "CARD-T2", "CARD-T3")
	order := env.mustCreateOrder(t, product.ID)

	reserved, _ := env.cardRepo.GetReservedByOrder(order.ID)

	// 指定与预占不一致的卡密应冲突
	if _, err := env.fulfillment.Deliver(order.ID, "CARD-T3"); !errors.Is(err, ErrCardConflict) {
		t.Fatalf("指定卡密与预占不一致应冲突, got %v", err)
	}

	delivered, err := env.fulfillment.Deliver(order.ID, reserved.CardNumber)
	if err != nil {
		t.Fatalf("发货失败: %v", err)
	}
	if delivered.CardID == nil || *delivered.CardID != reserved.ID {
		t.Fatal("应交付订单预占的卡密")
	}
	if delivered.CardNumber != reserved.CardNumber {
		t.Fatalf("发货后应落地卡密内容快照, got %q", delivered.CardNumber)
	}
}

func TestDeliverExplicitCardWithoutReservation(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-E1", "CARD-E2")
	order := env.mustCreateOrder(t, product.ID)

	// 预占丢失的订单允许定向绑定任意可售卡密
	if err := env.orderRepo.UpdateFields(order.ID, map[string]interface{}{"card_id": nil}); err != nil {
		t.Fatalf("制造偏差失败: %v", err)
	}
	if _, err := env.cardRepo.ReleaseByOrder(order.ID); err != nil {
		t.Fatalf("释放预占失败: %v", err)
	}

	if _, err := env.fulfillment.Deliver(order.ID, "NOT-EXIST"); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("未知卡密应返回 ErrCardNotFound, got %v", err)
	}

	delivered, err := env.fulfillment.Deliver(order.ID, "CARD-E2")
	if err != nil {
		t.Fatalf("定向发货失败: %v", err)
	}
	card, _ := env.cardRepo.GetByID(*delivered.CardID)
	if card.CardNumber != "CARD-E2" {
		t.Fatalf("应绑定指定卡密, got %s", card.CardNumber)
	}
}

func TestDeliverCardConflict(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-CF1", "CARD-CF2")
	first := env.mustCreateOrder(t, product.ID)
	second := env.mustCreateOrder(t, product.ID)

	soldCard, _ := env.cardRepo.GetReservedByOrder(first.ID)
	if _, err := env.fulfillment.ConfirmPayment(payInput(first.ID)); err != nil {
		t.Fatalf("首单确认失败: %v", err)
	}

	// 指定已售给他单的卡密应冲突
	if _, err := env.fulfillment.Deliver(second.ID, soldCard.CardNumber); !errors.Is(err, ErrCardConflict) {
		t.Fatalf("指定他单卡密应冲突, got %v", err)
	}
}

func TestBatchDeliver(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-B1", "CARD-B2")
	order1 := env.mustCreateOrder(t, product.ID)
	order2 := env.mustCreateOrder(t, product.ID)

	result, err := env.fulfillment.BatchDeliver([]uint{order1.ID, order2.ID, 9999})
	if err != nil {
		t.Fatalf("批量发货失败: %v", err)
	}
	if result.Total != 3 || result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("批量发货结果错误: %+v", result)
	}
	for _, item := range result.Items {
		if item.OrderID == 9999 && item.Success {
			t.Fatal("不存在的订单不应发货成功")
		}
	}

	// 超出单批上限
	ids := make([]uint, 201)
	if _, err := env.fulfillment.BatchDeliver(ids); !errors.Is(err, ErrBatchTooLarge) {
		t.Fatalf("超出批量上限应失败, got %v", err)
	}
}

func TestRepairDriftOrder(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-R1", "CARD-R2")
	order := env.mustCreateOrder(t, product.ID)

	confirmed, err := env.fulfillment.ConfirmPayment(payInput(order.ID))
	if err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}
	soldCardID := *confirmed.CardID
	// 人为制造偏差：清空订单的卡密绑定
	if err := env.orderRepo.UpdateFields(order.ID, map[string]interface{}{"card_id": nil}); err != nil {
		t.Fatalf("制造偏差失败: %v", err)
	}

	repaired, err := env.fulfillment.Repair(RepairInput{OrderID: order.ID})
	if err != nil {
		t.Fatalf("补单失败: %v", err)
	}
	if repaired.CardID == nil || *repaired.CardID != soldCardID {
		t.Fatal("补单应按内容快照找回原卡密，而不是新分配")
	}
	card, _ := env.cardRepo.GetByID(*repaired.CardID)
	if card.Status != models.CardStatusSold || *card.SoldOrderID != order.ID {
		t.Fatalf("补单卡密状态错误: %+v", card)
	}
	// 修复不应额外消耗库存
	stock, _ := env.cardRepo.CountByProduct(product.ID)
	if stock.Sold != 1 || stock.Available != 1 {
		t.Fatalf("补单后库存错误: %+v", stock)
	}
}

func TestRepairPrefersCardNumberSnapshot(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	// 先导入的卡密 ID 更小，自动分配会优先选中它
	env.mustImportCards(t, product.ID, "CARD-DECOY", "CARD-OWN")
	order := env.mustCreateOrder(t, product.ID)

	// 人为制造偏差：订单已支付但关联丢失，仅剩内容快照，
	// 两张卡密均处于可售状态
	if err := env.orderRepo.UpdateFields(order.ID, map[string]interface{}{
		"status":      "paid",
		"pay_status":  "paid",
		"paid_at":     time.Now(),
		"card_id":     nil,
		"card_number": "CARD-OWN",
	}); err != nil {
		t.Fatalf("制造偏差失败: %v", err)
	}
	if _, err := env.cardRepo.ReleaseByOrder(order.ID); err != nil {
		t.Fatalf("释放预占失败: %v", err)
	}

	repaired, err := env.fulfillment.Repair(RepairInput{OrderID: order.ID})
	if err != nil {
		t.Fatalf("补单失败: %v", err)
	}
	card, _ := env.cardRepo.GetByID(*repaired.CardID)
	if card.CardNumber != "CARD-OWN" {
		t.Fatalf("补单应优先绑定快照记录的卡密, got %s", card.CardNumber)
	}

	// 另一张卡密不应被消耗
	decoy, _ := env.cardRepo.GetByProductAndHash(product.ID, cardHash("CARD-DECOY"))
	if decoy.Status != models.CardStatusAvailable {
		t.Fatalf("非快照卡密不应被补单消耗: %s", decoy.Status)
	}
}

func TestRepairRequiresPaidOrder(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "CARD-RP1")
	order := env.mustCreateOrder(t, product.ID)

	if _, err := env.fulfillment.Repair(RepairInput{OrderID: order.ID}); !errors.Is(err, ErrOrderNotPaid) {
		t.Fatalf("未支付订单补单应失败, got %v", err)
	}
}

func TestRefund(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 30.00)
	env.mustImportCards(t, product.ID, "CARD-RF1")
	order := env.mustCreateOrder(t, product.ID)

	// 未支付不可退
	if _, err := env.fulfillment.Refund(RefundInput{OrderID: order.ID}); !errors.Is(err, ErrOrderNotPaid) {
		t.Fatalf("未支付订单退款应失败, got %v", err)
	}

	if _, err := env.fulfillment.ConfirmPayment(payInput(order.ID)); err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}

	// 超额退款
	if _, err := env.fulfillment.Refund(RefundInput{OrderID: order.ID, Amount: money(50.00)}); !errors.Is(err, ErrRefundInvalid) {
		t.Fatalf("超额退款应失败, got %v", err)
	}

	refunded, err := env.fulfillment.Refund(RefundInput{OrderID: order.ID, Reason: "用户申请"})
	if err != nil {
		t.Fatalf("退款失败: %v", err)
	}
	if refunded.RefundStatus != "refunded" || refunded.RefundAmount.String() != "30.00" {
		t.Fatalf("退款结果错误: %+v", refunded)
	}
	if refunded.Status != "paid" {
		t.Fatal("退款不应改变订单主状态")
	}

	// 卡密保持售出
	card, _ := env.cardRepo.GetByID(*refunded.CardID)
	if card.Status != models.CardStatusSold {
		t.Fatalf("退款后卡密应保持售出: %s", card.Status)
	}

	// 重复退款
	if _, err := env.fulfillment.Refund(RefundInput{OrderID: order.ID}); !errors.Is(err, ErrOrderRefunded) {
		t.Fatalf("重复退款应失败, got %v", err)
	}
}
