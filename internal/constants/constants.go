package constants

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// 支付状态常量
const (
	PayStatusUnpaid = "unpaid"
	PayStatusPaid   = "paid"
)

// 退款状态常量
const (
	RefundStatusNone     = "none"
	RefundStatusRefunded = "refunded"
)

// 支付方式常量
const (
	PaymentMethodWechat = "wechat"
	PaymentMethodAlipay = "alipay"
	PaymentMethodQQ     = "qq"
)

// 商品状态常量
const (
	ProductStatusOnline  = "online"
	ProductStatusOffline = "offline"
)

// 订单超时配置边界（分钟）
const (
	OrderExpireMinutesMin = 1
	OrderExpireMinutesMax = 1440
)

// 批量操作上限
const (
	CardImportMaxBatch   = 5000
	CardMaxLength        = 500
	BatchDeliverMaxCount = 200
	SweepBatchLimit      = 200
)

// 设置键常量
const (
	SettingKeyFullReductionRule = "full_reduction_rule"
)

// 队列与任务常量
const (
	QueueDefault           = "default"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)
