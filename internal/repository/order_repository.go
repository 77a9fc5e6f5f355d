package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/cardstall/internal/constants"
	"github.com/cardstall/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByIDForUpdate(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	ListByUser(userID uint, page, pageSize int) ([]models.Order, int64, error)
	ListByPhone(phone string, page, pageSize int) ([]models.Order, int64, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	MarkPaid(id, cardID uint, cardNumber, tradeNo string, paidAt time.Time) (int64, error)
	MarkCancelled(id uint, cancelledAt time.Time) (int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	ListExpiredIDs(now time.Time, limit int) ([]uint, error)
	CancelByIDs(ids []uint, cancelledAt time.Time) (int64, error)
	CountPaidCardDrift() (int64, error)
	ListPaidCardDrift(page, pageSize int) ([]models.Order, int64, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Card").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 根据 ID 获取订单，postgres 下带行锁
func (r *GormOrderRepository) GetByIDForUpdate(id uint) (*models.Order, error) {
	var order models.Order
	if err := lockForUpdate(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单编号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, nil
	}
	var order models.Order
	if err := r.db.Preload("Card").Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ListByUser 获取用户订单列表
func (r *GormOrderRepository) ListByUser(userID uint, page, pageSize int) ([]models.Order, int64, error) {
	if userID == 0 {
		return []models.Order{}, 0, nil
	}
	query := r.db.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Order
	if err := applyPagination(query, page, pageSize).
		Order("id desc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListByPhone 按手机号获取订单列表
func (r *GormOrderRepository) ListByPhone(phone string, page, pageSize int) ([]models.Order, int64, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return []models.Order{}, 0, nil
	}
	query := r.db.Model(&models.Order{}).Where("buyer_phone = ?", phone)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Order
	if err := applyPagination(query, page, pageSize).
		Order("id desc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{})
	if filter.UserID > 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if orderNo := strings.TrimSpace(filter.OrderNo); orderNo != "" {
		query = query.Where("order_no "+likeOperator(r.db)+" ?", "%"+orderNo+"%")
	}
	if phone := strings.TrimSpace(filter.BuyerPhone); phone != "" {
		query = query.Where("buyer_phone "+likeOperator(r.db)+" ?", "%"+phone+"%")
	}
	if name := strings.TrimSpace(filter.ProductName); name != "" {
		query = query.Where("product_name "+likeOperator(r.db)+" ?", "%"+name+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PayStatus != "" {
		query = query.Where("pay_status = ?", filter.PayStatus)
	}
	if filter.RefundStatus != "" {
		query = query.Where("refund_status = ?", filter.RefundStatus)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := normalizeOrderBy(filter.OrderBy)
	direction := "asc"
	if filter.Descending {
		direction = "desc"
	}
	var items []models.Order
	if err := applyPagination(query, filter.Page, filter.PageSize).
		Preload("Card").
		Order(orderBy + " " + direction).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// 可排序列白名单，其他输入回退为按 ID 排序
func normalizeOrderBy(column string) string {
	switch strings.ToLower(strings.TrimSpace(column)) {
	case "created_at":
		return "created_at"
	case "paid_at":
		return "paid_at"
	case "order_amount":
		return "order_amount"
	default:
		return "id"
	}
}

// MarkPaid 条件标记订单已支付并落地卡密与流水号快照，
// 仅待支付且未付款的订单生效
func (r *GormOrderRepository) MarkPaid(id, cardID uint, cardNumber, tradeNo string, paidAt time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	updates := map[string]interface{}{
		"status":       constants.OrderStatusPaid,
		"pay_status":   constants.PayStatusPaid,
		"paid_at":      paidAt,
		"delivered_at": paidAt,
		"card_number":  cardNumber,
		"updated_at":   paidAt,
	}
	if cardID > 0 {
		updates["card_id"] = cardID
	}
	if tradeNo != "" {
		updates["payment_trade_no"] = tradeNo
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND pay_status = ?",
			id, constants.OrderStatusPending, constants.PayStatusUnpaid).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// MarkCancelled 条件取消订单，仅待支付且未付款的订单生效
func (r *GormOrderRepository) MarkCancelled(id uint, cancelledAt time.Time) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ? AND pay_status = ?",
			id, constants.OrderStatusPending, constants.PayStatusUnpaid).
		Updates(map[string]interface{}{
			"status":       constants.OrderStatusCancelled,
			"cancelled_at": cancelledAt,
			"updated_at":   cancelledAt,
		})
	return result.RowsAffected, result.Error
}

// UpdateFields 更新指定字段
func (r *GormOrderRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// ListExpiredIDs 获取已过期的待支付订单 ID 列表
func (r *GormOrderRepository) ListExpiredIDs(now time.Time, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = constants.SweepBatchLimit
	}
	var ids []uint
	if err := r.db.Model(&models.Order{}).
		Where("status = ? AND pay_status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			constants.OrderStatusPending, constants.PayStatusUnpaid, now).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CancelByIDs 批量条件取消订单
func (r *GormOrderRepository) CancelByIDs(ids []uint, cancelledAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Order{}).
		Where("id IN ? AND status = ? AND pay_status = ?",
			ids, constants.OrderStatusPending, constants.PayStatusUnpaid).
		Updates(map[string]interface{}{
			"status":       constants.OrderStatusCancelled,
			"cancelled_at": cancelledAt,
			"updated_at":   cancelledAt,
		})
	return result.RowsAffected, result.Error
}

// 已支付订单与卡密状态的偏差判定条件
const paidCardDriftCondition = "orders.status = ? AND (orders.card_number IS NULL OR orders.card_number = '' OR orders.card_id IS NULL OR cards.id IS NULL OR cards.status <> ? OR cards.sold_order_id IS NULL OR cards.sold_order_id <> orders.id)"

// CountPaidCardDrift 统计已支付但卡密状态不一致的订单数量
func (r *GormOrderRepository) CountPaidCardDrift() (int64, error) {
	var count int64
	if err := r.db.Model(&models.Order{}).
		Joins("LEFT JOIN cards ON cards.id = orders.card_id").
		Where(paidCardDriftCondition, constants.OrderStatusPaid, models.CardStatusSold).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListPaidCardDrift 分页获取偏差订单
func (r *GormOrderRepository) ListPaidCardDrift(page, pageSize int) ([]models.Order, int64, error) {
	query := r.db.Model(&models.Order{}).
		Select("orders.*").
		Joins("LEFT JOIN cards ON cards.id = orders.card_id").
		Where(paidCardDriftCondition, constants.OrderStatusPaid, models.CardStatusSold)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Order
	if err := applyPagination(query, page, pageSize).
		Preload("Card").
		Order("orders.id asc").
		Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
