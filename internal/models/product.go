package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Name           string         `gorm:"type:varchar(200);not null" json:"name"`                        // 商品名称
	Category       string         `gorm:"type:varchar(100);index" json:"category"`                       // 分类名称
	Description    string         `gorm:"type:text" json:"description"`                                  // 商品描述
	Price          Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`            // 标准售价
	OriginalPrice  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"original_price"`   // 原价（展示用）
	PromoPrice     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"promo_price"`      // 活动价（0 表示未配置）
	PromoStartAt   *time.Time     `json:"promo_start_at"`                                                // 活动开始时间
	PromoEndAt     *time.Time     `json:"promo_end_at"`                                                  // 活动结束时间
	Status         string         `gorm:"type:varchar(20);index;not null;default:'online'" json:"status"` // 状态（online/offline）
	SortOrder      int            `gorm:"default:0;index" json:"sort_order"`                             // 排序权重
	StockAvailable int64          `gorm:"-" json:"stock_available"`                                      // 可售库存（实时统计，不入库）
	StockReserved  int64          `gorm:"-" json:"stock_reserved"`                                       // 占用库存（实时统计，不入库）
	StockSold      int64          `gorm:"-" json:"stock_sold"`                                           // 已售数量（实时统计，不入库）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                    // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
