package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	UserID        uint
	OrderNo       string
	BuyerPhone    string
	ProductName   string
	Status        string
	PayStatus     string
	RefundStatus  string
	PaymentMethod string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	OrderBy       string
	Descending    bool
}

// CardListFilter 查询卡密列表的过滤条件
type CardListFilter struct {
	Page      int
	PageSize  int
	ProductID uint
	Status    string
	Keyword   string
}

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Category   string
	Search     string
	OnlyOnline bool
}
