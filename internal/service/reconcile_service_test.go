package service

import (
	"context"
	"testing"

	"github.com/cardstall/internal/models"
)

func TestReconcileDetectsDrift(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "REC-1", "REC-2")

	healthy := env.mustCreateOrder(t, product.ID)
	drifted := env.mustCreateOrder(t, product.ID)
	if _, err := env.fulfillment.ConfirmPayment(payInput(healthy.ID)); err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}
	if _, err := env.fulfillment.ConfirmPayment(payInput(drifted.ID)); err != nil {
		t.Fatalf("支付确认失败: %v", err)
	}

	ctx := context.Background()
	snapshot, err := env.reconcile.Refresh(ctx)
	if err != nil {
		t.Fatalf("对账失败: %v", err)
	}
	if snapshot.Count != 0 {
		t.Fatalf("正常状态不应有偏差, got %d", snapshot.Count)
	}

	// 人为制造两类偏差：卡密绑定缺失、卡密售出归属错位
	if err := env.orderRepo.UpdateFields(drifted.ID, map[string]interface{}{"card_id": nil}); err != nil {
		t.Fatalf("制造偏差失败: %v", err)
	}
	if err := models.DB.Model(&models.Card{}).
		Where("sold_order_id = ?", healthy.ID).
		Update("sold_order_id", 9999).Error; err != nil {
		t.Fatalf("制造偏差失败: %v", err)
	}

	snapshot, err = env.reconcile.Refresh(ctx)
	if err != nil {
		t.Fatalf("对账失败: %v", err)
	}
	if snapshot.Count != 2 {
		t.Fatalf("应检出 2 笔偏差订单, got %d", snapshot.Count)
	}
	if snapshot.UpdatedAt.IsZero() {
		t.Fatal("快照应记录统计时间")
	}

	items, total, err := env.reconcile.ListDrift(1, 10)
	if err != nil {
		t.Fatalf("偏差明细查询失败: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("偏差明细数量错误: total=%d items=%d", total, len(items))
	}

	// 本地快照可直接读取
	cached := env.reconcile.Snapshot(ctx)
	if cached.Count != 2 {
		t.Fatalf("快照读取错误: %+v", cached)
	}
}

func TestReconcileIgnoresPendingAndCancelled(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "REC-P1", "REC-P2")

	pending := env.mustCreateOrder(t, product.ID)
	cancelled := env.mustCreateOrder(t, product.ID)
	if err := env.orders.Cancel(cancelled.ID); err != nil {
		t.Fatalf("取消订单失败: %v", err)
	}
	_ = pending

	snapshot, err := env.reconcile.Refresh(context.Background())
	if err != nil {
		t.Fatalf("对账失败: %v", err)
	}
	if snapshot.Count != 0 {
		t.Fatalf("未支付与已取消订单不应计入偏差, got %d", snapshot.Count)
	}
}
