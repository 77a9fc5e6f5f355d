package service

import (
	"errors"
	"testing"
	"time"

	"github.com/cardstall/internal/models"
)

func TestResolveSalePrice(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name    string
		product models.Product
		want    string
	}{
		{
			name:    "无活动价",
			product: models.Product{Price: money(20.00)},
			want:    "20.00",
		},
		{
			name: "活动进行中",
			product: models.Product{
				Price: money(20.00), PromoPrice: money(15.00),
				PromoStartAt: &past, PromoEndAt: &future,
			},
			want: "15.00",
		},
		{
			name: "活动未开始",
			product: models.Product{
				Price: money(20.00), PromoPrice: money(15.00),
				PromoStartAt: &future,
			},
			want: "20.00",
		},
		{
			name: "活动已结束",
			product: models.Product{
				Price: money(20.00), PromoPrice: money(15.00),
				PromoEndAt: &past,
			},
			want: "20.00",
		},
		{
			name: "活动价无时间窗口",
			product: models.Product{
				Price: money(20.00), PromoPrice: money(15.00),
			},
			want: "15.00",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveSalePrice(&tc.product, now)
			if got.String() != tc.want {
				t.Fatalf("want %s, got %s", tc.want, got.String())
			}
		})
	}
}

func TestApplyFullReduction(t *testing.T) {
	rule := FullReductionRule{Enabled: true, Threshold: money(50.00), Reduce: money(10.00)}

	amount, discount := applyFullReduction(money(100.00), rule)
	if amount.String() != "90.00" || discount.String() != "10.00" {
		t.Fatalf("满减计算错误: amount=%s discount=%s", amount.String(), discount.String())
	}

	// 未达门槛
	amount, discount = applyFullReduction(money(49.99), rule)
	if amount.String() != "49.99" || discount.String() != "0.00" {
		t.Fatalf("未达门槛不应优惠: amount=%s discount=%s", amount.String(), discount.String())
	}

	// 规则关闭
	amount, _ = applyFullReduction(money(100.00), FullReductionRule{})
	if amount.String() != "100.00" {
		t.Fatalf("规则关闭不应优惠: %s", amount.String())
	}

	// 优惠不超过实付金额
	clamp := FullReductionRule{Enabled: true, Threshold: money(50.00), Reduce: money(80.00)}
	amount, discount = applyFullReduction(money(60.00), clamp)
	if amount.String() != "0.00" || discount.String() != "60.00" {
		t.Fatalf("优惠应封顶到实付金额: amount=%s discount=%s", amount.String(), discount.String())
	}
}

func TestFullReductionRuleValidate(t *testing.T) {
	cases := []struct {
		name string
		rule FullReductionRule
		ok   bool
	}{
		{"关闭状态任意值", FullReductionRule{}, true},
		{"正常规则", FullReductionRule{Enabled: true, Threshold: money(50), Reduce: money(10)}, true},
		{"立减超过门槛", FullReductionRule{Enabled: true, Threshold: money(10), Reduce: money(50)}, false},
		{"门槛为零", FullReductionRule{Enabled: true, Reduce: money(10)}, false},
		{"立减为零", FullReductionRule{Enabled: true, Threshold: money(50)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if tc.ok && err != nil {
				t.Fatalf("应通过校验: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrDiscountRuleInvalid) {
				t.Fatalf("应返回 ErrDiscountRuleInvalid, got %v", err)
			}
		})
	}
}
