package service

import "errors"

// 业务哨兵错误，由 HTTP 层映射为对应状态码
var (
	// 订单
	ErrOrderNotFound  = errors.New("订单不存在")
	ErrOrderConflict  = errors.New("订单状态冲突")
	ErrOrderExpired   = errors.New("订单已过期")
	ErrOrderCancelled = errors.New("订单已取消")
	ErrOrderNotPaid   = errors.New("订单未支付")
	ErrOrderRefunded  = errors.New("订单已退款")
	ErrRefundInvalid  = errors.New("退款金额无效")
	ErrBatchTooLarge  = errors.New("批量操作数量超出上限")

	// 商品与库存
	ErrProductNotFound     = errors.New("商品不存在")
	ErrProductNotAvailable = errors.New("商品已下架")
	ErrOutOfStock          = errors.New("库存不足")
	ErrCardNotFound        = errors.New("卡密不存在")
	ErrCardConflict        = errors.New("卡密状态冲突")
	ErrCardNotDeletable    = errors.New("仅可删除未占用的卡密")
	ErrImportEmpty         = errors.New("导入内容为空")
	ErrInventoryAnomaly    = errors.New("库存状态异常")

	// 参数
	ErrPhoneInvalid         = errors.New("手机号格式不正确")
	ErrPaymentMethodInvalid = errors.New("不支持的支付方式")
	ErrDiscountRuleInvalid  = errors.New("满减规则无效")

	// 认证
	ErrUnauthorized    = errors.New("认证失败")
	ErrForbidden       = errors.New("无权访问该资源")
	ErrPasswordInvalid = errors.New("用户名或密码错误")
	ErrUserExists      = errors.New("该手机号已注册")
)
