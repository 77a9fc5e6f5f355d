package service

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/constants"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/repository"

	"gorm.io/gorm"
)

// reserveAttempts 同一笔下单内挑选可售卡密的最大尝试次数
const reserveAttempts = 3

// TimeoutScheduler 订单超时取消任务投递接口，队列不可用时可为 nil
type TimeoutScheduler interface {
	ScheduleOrderTimeout(orderID uint, delay time.Duration) error
}

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	ProductID     uint   `json:"product_id" binding:"required"`
	BuyerPhone    string `json:"buyer_phone" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	Remark        string `json:"remark"`
	UserID        uint   `json:"-"`
	ClientIP      string `json:"-"`
}

// OrderDetail 订单详情，pending 订单附带剩余支付秒数
type OrderDetail struct {
	*models.Order
	ExpiresInSeconds *int64 `json:"expires_in_seconds,omitempty"`
}

// OrderService 订单服务
type OrderService struct {
	orders    repository.OrderRepository
	cards     repository.CardRepository
	products  repository.ProductRepository
	settings  *SettingService
	scheduler TimeoutScheduler
	orderCfg  config.OrderConfig
}

// NewOrderService 创建订单服务
func NewOrderService(
	orders repository.OrderRepository,
	cards repository.CardRepository,
	products repository.ProductRepository,
	settings *SettingService,
	scheduler TimeoutScheduler,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orders:    orders,
		cards:     cards,
		products:  products,
		settings:  settings,
		scheduler: scheduler,
		orderCfg:  cfg.Order,
	}
}

// generateOrderNo 生成订单编号（时间戳 + 随机数）
func generateOrderNo(now time.Time) string {
	return fmt.Sprintf("ORD%s%06d", now.Format("20060102150405"), rand.Intn(1000000))
}

// paymentExpireDuration 订单支付时限，配置值收敛到 [1, 1440] 分钟
func (s *OrderService) paymentExpireDuration() time.Duration {
	minutes := s.orderCfg.PaymentExpireMinutes
	if minutes < constants.OrderExpireMinutesMin {
		minutes = constants.OrderExpireMinutesMin
	}
	if minutes > constants.OrderExpireMinutesMax {
		minutes = constants.OrderExpireMinutesMax
	}
	return time.Duration(minutes) * time.Minute
}

// validPaymentMethod 校验支付方式
func validPaymentMethod(method string) bool {
	switch method {
	case constants.PaymentMethodWechat, constants.PaymentMethodAlipay, constants.PaymentMethodQQ:
		return true
	}
	return false
}

// Create 下单并预占一张卡密。卡密预占通过条件更新完成，
// 并发下同一张卡密只会被一笔订单占用成功。
func (s *OrderService) Create(input CreateOrderInput) (*models.Order, error) {
	input.BuyerPhone = strings.TrimSpace(input.BuyerPhone)
	if !ValidPhone(input.BuyerPhone) {
		return nil, ErrPhoneInvalid
	}
	if !validPaymentMethod(input.PaymentMethod) {
		return nil, ErrPaymentMethodInvalid
	}

	rule, err := s.settings.GetFullReductionRule()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(s.paymentExpireDuration())

	var order *models.Order
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)
		cards := s.cards.WithTx(tx)
		orders := s.orders.WithTx(tx)

		product, err := products.GetByID(input.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
		if product.Status != constants.ProductStatusOnline {
			return ErrProductNotAvailable
		}

		salePrice := resolveSalePrice(product, now)
		orderAmount, discount := applyFullReduction(salePrice, rule)

		order = &models.Order{
			OrderNo:        generateOrderNo(now),
			UserID:         input.UserID,
			ProductID:      product.ID,
			ProductName:    product.Name,
			BuyerPhone:     input.BuyerPhone,
			PaymentMethod:  input.PaymentMethod,
			Status:         constants.OrderStatusPending,
			PayStatus:      constants.PayStatusUnpaid,
			OriginalAmount: salePrice,
			DiscountAmount: discount,
			OrderAmount:    orderAmount,
			Remark:         input.Remark,
			ClientIP:       input.ClientIP,
			ExpiresAt:      &expiresAt,
		}
		if err := orders.Create(order); err != nil {
			return err
		}

		// 挑卡与预占之间可能被并发订单抢先，换一张重试
		var reserved *models.Card
		for attempt := 0; attempt < reserveAttempts; attempt++ {
			card, err := cards.FirstAvailable(product.ID)
			if err != nil {
				return err
			}
			if card == nil {
				return ErrOutOfStock
			}
			affected, err := cards.Reserve(card.ID, order.ID, now)
			if err != nil {
				return err
			}
			if affected > 0 {
				reserved = card
				break
			}
		}
		if reserved == nil {
			return ErrOutOfStock
		}

		// 预占成功即回写订单的卡密关联，支付确认沿用同一张卡
		if err := orders.UpdateFields(order.ID, map[string]interface{}{
			"card_id":    reserved.ID,
			"updated_at": now,
		}); err != nil {
			return err
		}
		order.CardID = &reserved.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleOrderTimeout(order.ID, s.paymentExpireDuration()); err != nil {
			logger.Warnw("订单超时任务投递失败，等待兜底扫描",
				"order_id", order.ID, "error", err)
		}
	}

	logger.Infow("订单创建成功",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"product_id", order.ProductID,
		"amount", order.OrderAmount.String(),
	)
	return order, nil
}

// orderExpiresIn 计算 pending 订单剩余支付秒数，已到期返回 0
func orderExpiresIn(order *models.Order, now time.Time) *int64 {
	if order.Status != constants.OrderStatusPending || order.ExpiresAt == nil {
		return nil
	}
	seconds := int64(order.ExpiresAt.Sub(now).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return &seconds
}

// Detail 订单详情。未支付订单不返回卡密内容。
func (s *OrderService) Detail(id uint) (*OrderDetail, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	s.sanitizeCard(order)
	return &OrderDetail{
		Order:            order,
		ExpiresInSeconds: orderExpiresIn(order, time.Now()),
	}, nil
}

// DetailForUser 买家订单详情，校验归属
func (s *OrderService) DetailForUser(id, userID uint) (*OrderDetail, error) {
	detail, err := s.Detail(id)
	if err != nil {
		return nil, err
	}
	if detail.UserID != userID {
		return nil, ErrForbidden
	}
	return detail, nil
}

// 卡密内容仅对已支付订单可见
func (s *OrderService) sanitizeCard(order *models.Order) {
	if order.PayStatus != constants.PayStatusPaid {
		order.Card = nil
		order.CardNumber = ""
	}
}

// ListForUser 买家订单列表
func (s *OrderService) ListForUser(userID uint, page, pageSize int) ([]models.Order, int64, error) {
	items, total, err := s.orders.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Query 匿名订单查询。按手机号查询，给出订单号时校验归属后返回单条。
func (s *OrderService) Query(phone, orderNo string, page, pageSize int) ([]models.Order, int64, error) {
	phone = strings.TrimSpace(phone)
	if !ValidPhone(phone) {
		return nil, 0, ErrPhoneInvalid
	}
	if orderNo = strings.TrimSpace(orderNo); orderNo != "" {
		order, err := s.orders.GetByOrderNo(orderNo)
		if err != nil {
			return nil, 0, err
		}
		if order == nil || order.BuyerPhone != phone {
			return []models.Order{}, 0, nil
		}
		s.sanitizeCard(order)
		return []models.Order{*order}, 1, nil
	}
	return s.orders.ListByPhone(phone, page, pageSize)
}

// ListAdmin 管理端订单列表
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orders.ListAdmin(filter)
}

// Cancel 取消待支付订单并释放预占卡密。已取消订单重复取消视为成功。
func (s *OrderService) Cancel(id uint) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		cards := s.cards.WithTx(tx)

		order, err := orders.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == constants.OrderStatusCancelled {
			return nil
		}
		if order.Status == constants.OrderStatusPaid {
			return ErrOrderConflict
		}

		affected, err := orders.MarkCancelled(id, time.Now())
		if err != nil {
			return err
		}
		if affected == 0 {
			// 条件更新落空说明状态已被并发改写，重读判定
			latest, err := orders.GetByID(id)
			if err != nil {
				return err
			}
			if latest != nil && latest.Status == constants.OrderStatusCancelled {
				return nil
			}
			return ErrOrderConflict
		}

		if _, err := cards.ReleaseByOrder(id); err != nil {
			return err
		}
		logger.Infow("订单已取消", "order_id", id)
		return nil
	})
}

// CancelForUser 买家取消订单，校验归属
func (s *OrderService) CancelForUser(id, userID uint) error {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.UserID != userID {
		return ErrForbidden
	}
	return s.Cancel(id)
}

// CancelExpired 取消已过期的待支付订单。未过期或状态已变更时静默跳过，
// 延迟任务与周期扫描会重复触达同一笔订单。
func (s *OrderService) CancelExpired(id uint) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		cards := s.cards.WithTx(tx)

		order, err := orders.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if order == nil || order.Status != constants.OrderStatusPending {
			return nil
		}
		now := time.Now()
		if order.ExpiresAt == nil || order.ExpiresAt.After(now) {
			return nil
		}

		affected, err := orders.MarkCancelled(id, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		if _, err := cards.ReleaseByOrder(id); err != nil {
			return err
		}
		logger.Infow("过期订单已取消", "order_id", id)
		return nil
	})
}

// SweepExpired 批量取消过期订单并释放卡密，返回取消与释放数量。
// 释放按 reserved_order_id 范围收敛，已支付订单的卡密不受影响。
func (s *OrderService) SweepExpired(limit int) (int64, int64, error) {
	var cancelled, released int64
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		cards := s.cards.WithTx(tx)

		now := time.Now()
		ids, err := orders.ListExpiredIDs(now, limit)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		cancelled, err = orders.CancelByIDs(ids, now)
		if err != nil {
			return err
		}
		released, err = cards.ReleaseByOrders(ids)
		if err != nil {
			return err
		}
		logger.Infow("过期订单扫描完成",
			"matched", len(ids),
			"cancelled", cancelled,
			"released", released,
		)
		return nil
	})
	return cancelled, released, err
}
