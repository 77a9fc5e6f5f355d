package service

import (
	"errors"
	"strings"
	"testing"
)

func TestImportCardsDedup(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "EXISTED-1")

	content := strings.Join([]string{
		"NEW-1",
		"NEW-2",
		"NEW-1",            // 批次内重复
		"EXISTED-1",        // 库内已存在
		"  NEW-3  ",        // 前后空白应清理
		"",                 // 空行忽略
		strings.Repeat("X", 501), // 超长
	}, "\n")

	result, err := env.cards.Import(product.ID, content)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if result.Attempted != 6 {
		t.Fatalf("非空行数错误: %d", result.Attempted)
	}
	if result.Inserted != 3 {
		t.Fatalf("应成功导入 3 条, got %d", result.Inserted)
	}
	if result.Skipped != 3 {
		t.Fatalf("应跳过 3 条, got %d", result.Skipped)
	}
	if result.Summary.Duplicate != 1 || result.Summary.Existed != 1 || result.Summary.OverLength != 1 {
		t.Fatalf("跳过原因统计错误: %+v", result.Summary)
	}
	if len(result.Errors) != 3 {
		t.Fatalf("应有 3 条逐行错误, got %d", len(result.Errors))
	}
	if result.Stock.Total != 4 || result.Stock.Available != 4 {
		t.Fatalf("导入后库存错误: %+v", result.Stock)
	}
}

func TestImportCardsLimits(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Stock.ImportMaxBatch = 3
	env.cards = NewCardService(env.cardRepo, env.productRepo, env.cfg)
	product := env.mustCreateProduct(t, "测试商品", 10.00)

	if _, err := env.cards.Import(product.ID, "\n\n  \n"); !errors.Is(err, ErrImportEmpty) {
		t.Fatalf("空内容应报错, got %v", err)
	}
	if _, err := env.cards.Import(9999, "A"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("商品不存在应报错, got %v", err)
	}

	// 超出单批上限的行跳过，上限内的行照常入库
	result, err := env.cards.Import(product.ID, "A\nB\nC\nD")
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if result.Inserted != 3 {
		t.Fatalf("上限内应入库 3 条, got %d", result.Inserted)
	}
	if result.Skipped != 1 || result.Summary.OverLimit != 1 {
		t.Fatalf("超限行统计错误: %+v", result.Summary)
	}
	if result.Stock.Available != 3 {
		t.Fatalf("导入后库存错误: %+v", result.Stock)
	}

	// 超限行不计入已存在判断，下一批可继续导入
	again, err := env.cards.Import(product.ID, "D")
	if err != nil {
		t.Fatalf("续导失败: %v", err)
	}
	if again.Inserted != 1 {
		t.Fatalf("续导应入库 1 条, got %d", again.Inserted)
	}
}

func TestDeleteCardOnlyAvailable(t *testing.T) {
	env := newTestEnv(t)
	product := env.mustCreateProduct(t, "测试商品", 10.00)
	env.mustImportCards(t, product.ID, "DEL-1", "DEL-2")
	order := env.mustCreateOrder(t, product.ID)

	reserved, _ := env.cardRepo.GetReservedByOrder(order.ID)
	if err := env.cards.Delete(reserved.ID); !errors.Is(err, ErrCardNotDeletable) {
		t.Fatalf("已占用卡密删除应失败, got %v", err)
	}

	available, _ := env.cardRepo.GetByProductAndHash(product.ID, cardHash("DEL-2"))
	if available.ID == reserved.ID {
		available, _ = env.cardRepo.GetByProductAndHash(product.ID, cardHash("DEL-1"))
	}
	if err := env.cards.Delete(available.ID); err != nil {
		t.Fatalf("可售卡密删除失败: %v", err)
	}
	if err := env.cards.Delete(available.ID); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("已删除卡密再删应报不存在, got %v", err)
	}
}
