package service

import (
	"errors"
	"strings"
	"time"

	"github.com/cardstall/internal/constants"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConfirmPaymentInput 支付确认参数。Success=false 表示支付失败回调，
// 订单转为取消并释放卡密。
type ConfirmPaymentInput struct {
	OrderID uint
	Success bool
	TradeNo string
}

// PaymentNotifyInput 支付回调参数，按订单编号定位并凭手机号校验归属
type PaymentNotifyInput struct {
	OrderNo    string
	BuyerPhone string
	Success    bool
	TradeNo    string
}

// RepairInput 补单参数。管理端可指定卡密 ID 或卡密内容，
// 均未指定时按订单自身线索修复。
type RepairInput struct {
	OrderID    uint   `json:"-"`
	CardID     uint   `json:"card_id"`
	CardNumber string `json:"card_number"`
}

// BatchDeliverItem 批量发货单项结果
type BatchDeliverItem struct {
	OrderID uint   `json:"order_id"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// BatchDeliverResult 批量发货汇总
type BatchDeliverResult struct {
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Items     []BatchDeliverItem `json:"items"`
}

// RefundInput 退款参数
type RefundInput struct {
	OrderID uint         `json:"-"`
	Amount  models.Money `json:"amount"`
	Reason  string       `json:"reason"`
}

// FulfillmentService 支付确认与交付服务
type FulfillmentService struct {
	orders repository.OrderRepository
	cards  repository.CardRepository
}

// NewFulfillmentService 创建交付服务
func NewFulfillmentService(orders repository.OrderRepository, cards repository.CardRepository) *FulfillmentService {
	return &FulfillmentService{orders: orders, cards: cards}
}

// resolveTradeNo 支付流水号取值：已有流水号保持不变，
// 回调未携带时生成模拟流水号
func resolveTradeNo(order *models.Order, tradeNo string) string {
	if order.PaymentTradeNo != "" {
		return order.PaymentTradeNo
	}
	if tradeNo = strings.TrimSpace(tradeNo); tradeNo != "" {
		return tradeNo
	}
	return "SIM-" + order.OrderNo
}

// ConfirmPayment 确认支付并交付卡密。重复确认幂等返回，
// 过期订单就地取消并释放卡密，支付失败回调转为取消。
func (s *FulfillmentService) ConfirmPayment(input ConfirmPaymentInput) (*models.Order, error) {
	var confirmed *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		cards := s.cards.WithTx(tx)

		order, err := orders.GetByIDForUpdate(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}

		now := time.Now()
		if !input.Success {
			// 失败回调：尚未支付的订单就地取消，其余状态原样返回
			if _, err := orders.MarkCancelled(order.ID, now); err != nil {
				return err
			}
			if _, err := cards.ReleaseByOrder(order.ID); err != nil {
				return err
			}
			confirmed, err = orders.GetByID(order.ID)
			return err
		}

		if order.Status == constants.OrderStatusPaid {
			// 重复回调：确保卡密与订单绑定后幂等返回
			if err := s.healPaidCard(orders, cards, order, now); err != nil {
				return err
			}
			confirmed = order
			return nil
		}
		if order.Status == constants.OrderStatusCancelled {
			return ErrOrderCancelled
		}

		if order.ExpiresAt != nil && order.ExpiresAt.Before(now) {
			if _, err := orders.MarkCancelled(order.ID, now); err != nil {
				return err
			}
			if _, err := cards.ReleaseByOrder(order.ID); err != nil {
				return err
			}
			return ErrOrderExpired
		}

		card, err := s.cardForDelivery(cards, order, now)
		if err != nil {
			return err
		}

		affected, err := orders.MarkPaid(order.ID, card.ID, card.CardNumber, resolveTradeNo(order, input.TradeNo), now)
		if err != nil {
			return err
		}
		if affected == 0 {
			latest, err := orders.GetByID(order.ID)
			if err != nil {
				return err
			}
			if latest != nil && latest.Status == constants.OrderStatusPaid {
				confirmed = latest
				return nil
			}
			return ErrOrderConflict
		}

		sold, err := cards.MarkSold(card.ID, order.ID, now)
		if err != nil {
			return err
		}
		if sold == 0 {
			// 卡密在确认过程中被其他路径改写，回滚整笔确认
			return ErrInventoryAnomaly
		}

		confirmed, err = orders.GetByID(order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("订单支付确认完成",
		"order_id", confirmed.ID,
		"order_no", confirmed.OrderNo,
		"status", confirmed.Status,
	)
	return confirmed, nil
}

// ConfirmPaymentByOrderNo 按订单编号确认支付（回调入口），
// 回调方需携带与订单一致的买家手机号
func (s *FulfillmentService) ConfirmPaymentByOrderNo(input PaymentNotifyInput) (*models.Order, error) {
	order, err := s.orders.GetByOrderNo(input.OrderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	phone := strings.TrimSpace(input.BuyerPhone)
	if phone == "" || phone != order.BuyerPhone {
		return nil, ErrForbidden
	}
	return s.ConfirmPayment(ConfirmPaymentInput{
		OrderID: order.ID,
		Success: input.Success,
		TradeNo: input.TradeNo,
	})
}

// allocateCard 现场分配一张可售卡密并预占给订单。
// 挑卡与预占之间可能被并发请求抢先，换一张重试。
func (s *FulfillmentService) allocateCard(cards *repository.GormCardRepository, order *models.Order, now time.Time) (*models.Card, error) {
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		candidate, err := cards.FirstAvailable(order.ProductID)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, ErrOutOfStock
		}
		affected, err := cards.Reserve(candidate.ID, order.ID, now)
		if err != nil {
			return nil, err
		}
		if affected > 0 {
			return candidate, nil
		}
	}
	return nil, ErrOutOfStock
}

// cardForDelivery 获取交付用卡密：优先订单已关联的卡密，
// 关联卡密已被他单占用或售出视为异常，关联缺失时现场分配。
func (s *FulfillmentService) cardForDelivery(cards *repository.GormCardRepository, order *models.Order, now time.Time) (*models.Card, error) {
	if order.CardID != nil {
		card, err := cards.GetByID(*order.CardID)
		if err != nil {
			return nil, err
		}
		if card == nil || card.Status == models.CardStatusSold {
			return nil, ErrInventoryAnomaly
		}
		if card.Status == models.CardStatusReserved &&
			(card.ReservedOrderID == nil || *card.ReservedOrderID != order.ID) {
			return nil, ErrOrderConflict
		}
		return card, nil
	}
	return s.allocateCard(cards, order, now)
}

// reattachCard 按订单自身线索定位交付卡密，依次尝试：
// 已关联的卡密、卡密内容快照、现场分配
func (s *FulfillmentService) reattachCard(cards *repository.GormCardRepository, order *models.Order, now time.Time) (*models.Card, error) {
	if order.CardID != nil {
		card, err := cards.GetByID(*order.CardID)
		if err != nil {
			return nil, err
		}
		if card != nil && card.ProductID == order.ProductID {
			if bound, bindErr := s.verifyBindable(card, order); bindErr == nil {
				return bound, nil
			}
			// 关联卡密已被他单占用，降级到内容快照定位
		}
	}
	if number := strings.TrimSpace(order.CardNumber); number != "" {
		card, err := cards.GetByProductAndHash(order.ProductID, cardHash(number))
		if err != nil {
			return nil, err
		}
		if card != nil {
			return s.verifyBindable(card, order)
		}
	}
	return s.allocateCard(cards, order, now)
}

// healPaidCard 已支付订单的卡密自愈：绑定关系完好时仅补齐内容快照，
// 缺失或被改写时按订单线索重新绑定。
func (s *FulfillmentService) healPaidCard(orders *repository.GormOrderRepository, cards *repository.GormCardRepository, order *models.Order, now time.Time) error {
	if order.CardID != nil {
		card, err := cards.GetByID(*order.CardID)
		if err != nil {
			return err
		}
		if card != nil && card.Status == models.CardStatusSold &&
			card.SoldOrderID != nil && *card.SoldOrderID == order.ID {
			if order.CardNumber == card.CardNumber {
				return nil
			}
			return orders.UpdateFields(order.ID, map[string]interface{}{
				"card_number": card.CardNumber,
				"updated_at":  now,
			})
		}
	}

	card, err := s.reattachCard(cards, order, now)
	if err != nil {
		return err
	}
	if card.Status != models.CardStatusSold ||
		card.SoldOrderID == nil || *card.SoldOrderID != order.ID {
		sold, err := cards.MarkSold(card.ID, order.ID, now)
		if err != nil {
			return err
		}
		if sold == 0 {
			return ErrInventoryAnomaly
		}
	}
	// 换绑后释放订单遗留的其他占用
	if _, err := cards.ReleaseByOrder(order.ID); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"card_id":     card.ID,
		"card_number": card.CardNumber,
		"updated_at":  now,
	}
	if order.DeliveredAt == nil {
		updates["delivered_at"] = now
	}
	return orders.UpdateFields(order.ID, updates)
}

// Deliver 管理端手工发货。与支付确认等价，但不做过期取消；
// 指定卡密内容时必须与订单预占一致，无预占时定向绑定该卡密。
func (s *FulfillmentService) Deliver(orderID uint, cardNumber string) (*models.Order, error) {
	var delivered *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		cards := s.cards.WithTx(tx)

		order, err := orders.GetByIDForUpdate(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		now := time.Now()
		if order.Status == constants.OrderStatusPaid {
			if err := s.healPaidCard(orders, cards, order, now); err != nil {
				return err
			}
			delivered = order
			return nil
		}
		if order.Status == constants.OrderStatusCancelled {
			return ErrOrderCancelled
		}

		cardNumber = strings.TrimSpace(cardNumber)
		var card *models.Card
		switch {
		case order.CardID != nil:
			card, err = s.cardForDelivery(cards, order, now)
			if err != nil {
				return err
			}
			if cardNumber != "" && card.CardNumber != cardNumber {
				return ErrCardConflict
			}
		case cardNumber != "":
			card, err = s.bindableCard(cards, order, cardNumber)
			if err != nil {
				return err
			}
		default:
			card, err = s.allocateCard(cards, order, now)
			if err != nil {
				return err
			}
		}

		affected, err := orders.MarkPaid(orderID, card.ID, card.CardNumber, "", now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderConflict
		}
		sold, err := cards.MarkSold(card.ID, orderID, now)
		if err != nil {
			return err
		}
		if sold == 0 {
			return ErrInventoryAnomaly
		}
		// 定向绑定可能绕开原预占卡密，释放遗留的占用
		if _, err := cards.ReleaseByOrder(orderID); err != nil {
			return err
		}

		delivered, err = orders.GetByID(orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("订单手工发货完成", "order_id", orderID)
	return delivered, nil
}

// bindableCard 按卡密内容查找可绑定到订单的卡密
func (s *FulfillmentService) bindableCard(cards *repository.GormCardRepository, order *models.Order, cardNumber string) (*models.Card, error) {
	card, err := cards.GetByProductAndHash(order.ProductID, cardHash(cardNumber))
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	return s.verifyBindable(card, order)
}

// BatchDeliver 批量发货，逐单处理并汇总结果
func (s *FulfillmentService) BatchDeliver(orderIDs []uint) (*BatchDeliverResult, error) {
	if len(orderIDs) == 0 {
		return &BatchDeliverResult{}, nil
	}
	if len(orderIDs) > constants.BatchDeliverMaxCount {
		return nil, ErrBatchTooLarge
	}

	result := &BatchDeliverResult{Total: len(orderIDs)}
	for _, id := range orderIDs {
		item := BatchDeliverItem{OrderID: id}
		if _, err := s.Deliver(id, ""); err != nil {
			item.Message = err.Error()
			result.Failed++
		} else {
			item.Success = true
			result.Succeeded++
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// Repair 补单。管理端指定卡密优先，未指定时按订单自身线索修复：
// 已关联的卡密、卡密内容快照、现场分配。仅修正绑定关系，不改动支付金额。
func (s *FulfillmentService) Repair(input RepairInput) (*models.Order, error) {
	var repaired *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		cards := s.cards.WithTx(tx)

		order, err := orders.GetByIDForUpdate(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == constants.OrderStatusCancelled {
			return ErrOrderCancelled
		}
		if order.PayStatus != constants.PayStatusPaid {
			return ErrOrderNotPaid
		}

		now := time.Now()
		card, err := s.repairCard(cards, order, input, now)
		if err != nil {
			return err
		}

		if card.Status != models.CardStatusSold ||
			card.SoldOrderID == nil || *card.SoldOrderID != order.ID {
			sold, err := cards.MarkSold(card.ID, order.ID, now)
			if err != nil {
				return err
			}
			if sold == 0 {
				return ErrCardConflict
			}
		}
		// 换绑后释放订单遗留的其他占用
		if _, err := cards.ReleaseByOrder(order.ID); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"card_id":     card.ID,
			"card_number": card.CardNumber,
			"updated_at":  now,
		}
		if order.PaidAt == nil {
			updates["paid_at"] = now
		}
		if order.DeliveredAt == nil {
			updates["delivered_at"] = now
		}
		if err := orders.UpdateFields(order.ID, updates); err != nil {
			return err
		}

		repaired, err = orders.GetByID(order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("订单补单完成",
		"order_id", input.OrderID,
		"card_id", repaired.CardID,
	)
	return repaired, nil
}

// repairCard 补单卡密选择阶梯
func (s *FulfillmentService) repairCard(cards *repository.GormCardRepository, order *models.Order, input RepairInput, now time.Time) (*models.Card, error) {
	if input.CardID > 0 {
		card, err := cards.GetByID(input.CardID)
		if err != nil {
			return nil, err
		}
		if card == nil {
			return nil, ErrCardNotFound
		}
		if card.ProductID != order.ProductID {
			return nil, ErrCardConflict
		}
		return s.verifyBindable(card, order)
	}
	if number := strings.TrimSpace(input.CardNumber); number != "" {
		card, err := cards.GetByProductAndHash(order.ProductID, cardHash(number))
		if err != nil {
			return nil, err
		}
		if card == nil {
			return nil, ErrCardNotFound
		}
		return s.verifyBindable(card, order)
	}
	return s.reattachCard(cards, order, now)
}

// verifyBindable 校验卡密可绑定到订单
func (s *FulfillmentService) verifyBindable(card *models.Card, order *models.Order) (*models.Card, error) {
	switch card.Status {
	case models.CardStatusAvailable:
		return card, nil
	case models.CardStatusReserved:
		if card.ReservedOrderID != nil && *card.ReservedOrderID == order.ID {
			return card, nil
		}
		return nil, ErrCardConflict
	case models.CardStatusSold:
		if card.SoldOrderID != nil && *card.SoldOrderID == order.ID {
			return card, nil
		}
		return nil, ErrCardConflict
	default:
		return nil, ErrCardConflict
	}
}

// Refund 订单退款。仅已支付且未退款的订单可退，只修改退款字段，
// 卡密保持售出状态。
func (s *FulfillmentService) Refund(input RefundInput) (*models.Order, error) {
	var refunded *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)

		order, err := orders.GetByIDForUpdate(input.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.PayStatus != constants.PayStatusPaid {
			return ErrOrderNotPaid
		}
		if order.RefundStatus == constants.RefundStatusRefunded {
			return ErrOrderRefunded
		}

		amount := input.Amount
		if amount.IsZero() {
			amount = order.OrderAmount
		}
		if !amount.GreaterThan(decimal.Zero) || amount.GreaterThan(order.OrderAmount.Decimal) {
			return ErrRefundInvalid
		}

		now := time.Now()
		if err := orders.UpdateFields(order.ID, map[string]interface{}{
			"refund_status": constants.RefundStatusRefunded,
			"refund_amount": amount,
			"refund_reason": strings.TrimSpace(input.Reason),
			"refunded_at":   now,
			"updated_at":    now,
		}); err != nil {
			return err
		}

		refunded, err = orders.GetByID(order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("订单退款完成",
		"order_id", input.OrderID,
		"amount", refunded.RefundAmount.String(),
	)
	return refunded, nil
}

// IsBusinessError 判断是否为业务错误（批量处理时区分系统错误用）
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrOrderNotFound, ErrOrderConflict, ErrOrderExpired, ErrOrderCancelled,
		ErrOrderNotPaid, ErrOrderRefunded, ErrOutOfStock, ErrCardNotFound,
		ErrCardConflict, ErrInventoryAnomaly,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
