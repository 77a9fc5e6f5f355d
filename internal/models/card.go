package models

import (
	"time"
)

const (
	CardStatusAvailable = "available"
	CardStatusReserved  = "reserved"
	CardStatusSold      = "sold"
)

// Card 卡密库存表。每张卡密唯一，同一商品内按内容哈希去重。
type Card struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                                           // 主键
	ProductID       uint       `gorm:"not null;uniqueIndex:idx_cards_product_hash" json:"product_id"`                  // 商品ID
	CardNumber      string     `gorm:"type:text;not null" json:"card_number"`                                          // 卡密内容
	CardHash        string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_cards_product_hash" json:"card_hash"`  // 卡密内容 MD5
	Status          string     `gorm:"type:varchar(20);index;not null;default:'available'" json:"status"`              // 状态（available/reserved/sold）
	ReservedOrderID *uint      `gorm:"index" json:"reserved_order_id,omitempty"`                                       // 占用订单ID
	ReservedAt      *time.Time `json:"reserved_at"`                                                                    // 占用时间
	SoldOrderID     *uint      `gorm:"index" json:"sold_order_id,omitempty"`                                           // 售出订单ID
	SoldAt          *time.Time `json:"sold_at"`                                                                        // 售出时间
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                                        // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                                     // 更新时间
}

// TableName 指定表名
func (Card) TableName() string {
	return "cards"
}
