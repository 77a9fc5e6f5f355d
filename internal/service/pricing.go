package service

import (
	"time"

	"github.com/cardstall/internal/models"
)

// resolveSalePrice 计算当前售价。活动价大于 0 且处于活动窗口内时生效，否则返回标准售价。
func resolveSalePrice(product *models.Product, now time.Time) models.Money {
	if !product.PromoPrice.IsPositive() {
		return product.Price
	}
	if product.PromoStartAt != nil && now.Before(*product.PromoStartAt) {
		return product.Price
	}
	if product.PromoEndAt != nil && now.After(*product.PromoEndAt) {
		return product.Price
	}
	return product.PromoPrice
}

// applyFullReduction 计算满减后的实付金额与优惠金额。
// 规则未启用或未达门槛时原价返回，优惠金额最多抵扣到 0 元。
func applyFullReduction(price models.Money, rule FullReductionRule) (amount, discount models.Money) {
	if !rule.Enabled || price.LessThan(rule.Threshold.Decimal) {
		return price, models.ZeroMoney()
	}
	reduce := rule.Reduce
	if reduce.GreaterThan(price.Decimal) {
		reduce = price
	}
	return price.Sub(reduce), reduce
}
