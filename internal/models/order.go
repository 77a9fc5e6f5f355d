package models

import (
	"time"
)

// Order 订单表。单笔订单固定对应一张卡密。
type Order struct {
	ID             uint       `gorm:"primarykey" json:"id"`                                           // 主键
	OrderNo        string     `gorm:"uniqueIndex;not null" json:"order_no"`                           // 订单编号
	UserID         uint       `gorm:"index;not null;default:0" json:"user_id,omitempty"`              // 用户ID（匿名订单为 0）
	ProductID      uint       `gorm:"index;not null" json:"product_id"`                               // 商品ID
	ProductName    string     `gorm:"type:varchar(200);not null" json:"product_name"`                 // 商品名称快照
	BuyerPhone     string     `gorm:"type:varchar(20);index;not null" json:"buyer_phone"`             // 买家手机号
	PaymentMethod  string     `gorm:"type:varchar(20);not null" json:"payment_method"`                // 支付方式（wechat/alipay/qq）
	Status         string     `gorm:"type:varchar(20);index;not null" json:"status"`                  // 订单状态（pending/paid/cancelled）
	PayStatus      string     `gorm:"type:varchar(20);index;not null" json:"pay_status"`              // 支付状态（unpaid/paid）
	OriginalAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"original_amount"`   // 下单时售价快照
	DiscountAmount Money      `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`   // 满减优惠金额
	OrderAmount    Money      `gorm:"type:decimal(20,2);not null;default:0" json:"order_amount"`      // 实付金额
	CardID         *uint      `gorm:"index" json:"card_id,omitempty"`                                 // 关联卡密ID
	CardNumber     string     `gorm:"type:varchar(600)" json:"card_number,omitempty"`                 // 交付卡密内容快照
	PaymentTradeNo string     `gorm:"type:varchar(100)" json:"payment_trade_no,omitempty"`            // 支付流水号
	RefundStatus   string     `gorm:"type:varchar(20);not null;default:'none'" json:"refund_status"`  // 退款状态（none/refunded）
	RefundAmount   Money      `gorm:"type:decimal(20,2);not null;default:0" json:"refund_amount"`     // 退款金额
	RefundReason   string     `gorm:"type:varchar(500)" json:"refund_reason,omitempty"`               // 退款原因
	RefundedAt     *time.Time `json:"refunded_at"`                                                    // 退款时间
	Remark         string     `gorm:"type:varchar(500)" json:"remark,omitempty"`                      // 买家备注
	ClientIP       string     `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                    // 下单客户端IP
	ExpiresAt      *time.Time `gorm:"index" json:"expires_at"`                                        // 过期时间
	PaidAt         *time.Time `gorm:"index" json:"paid_at"`                                           // 支付时间
	DeliveredAt    *time.Time `json:"delivered_at"`                                                   // 交付时间
	CancelledAt    *time.Time `json:"cancelled_at"`                                                   // 取消时间
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt      time.Time  `json:"updated_at"`                                                     // 更新时间

	Card *Card `gorm:"foreignKey:CardID" json:"card,omitempty"` // 卡密信息
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
