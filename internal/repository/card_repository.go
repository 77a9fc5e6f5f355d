package repository

import (
	"errors"
	"time"

	"github.com/cardstall/internal/models"

	"gorm.io/gorm"
)

// CardRepository 卡密库存数据访问接口
type CardRepository interface {
	CreateBatch(items []models.Card) error
	GetByID(id uint) (*models.Card, error)
	GetByProductAndHash(productID uint, hash string) (*models.Card, error)
	GetReservedByOrder(orderID uint) (*models.Card, error)
	List(filter CardListFilter) ([]models.Card, int64, error)
	ListHashesByProduct(productID uint) (map[string]struct{}, error)
	FirstAvailable(productID uint) (*models.Card, error)
	Reserve(id, orderID uint, reservedAt time.Time) (int64, error)
	ReleaseByOrder(orderID uint) (int64, error)
	ReleaseByOrders(orderIDs []uint) (int64, error)
	MarkSold(id, orderID uint, soldAt time.Time) (int64, error)
	DeleteAvailable(id uint) (int64, error)
	CountByProduct(productID uint) (CardStockStat, error)
	CountAvailableByProductIDs(productIDs []uint) (map[uint]int64, error)
	CountByStatus() (map[string]int64, error)
	WithTx(tx *gorm.DB) *GormCardRepository
}

// CardStockStat 单商品库存统计
type CardStockStat struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
	Reserved  int64 `json:"reserved"`
	Sold      int64 `json:"sold"`
}

// GormCardRepository GORM 实现
type GormCardRepository struct {
	db *gorm.DB
}

// NewCardRepository 创建卡密仓库
func NewCardRepository(db *gorm.DB) *GormCardRepository {
	return &GormCardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCardRepository) WithTx(tx *gorm.DB) *GormCardRepository {
	if tx == nil {
		return r
	}
	return &GormCardRepository{db: tx}
}

// CreateBatch 批量创建卡密
func (r *GormCardRepository) CreateBatch(items []models.Card) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

// GetByID 根据 ID 获取卡密
func (r *GormCardRepository) GetByID(id uint) (*models.Card, error) {
	var card models.Card
	if err := r.db.First(&card, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// GetByProductAndHash 按商品与内容哈希获取卡密
func (r *GormCardRepository) GetByProductAndHash(productID uint, hash string) (*models.Card, error) {
	if productID == 0 || hash == "" {
		return nil, nil
	}
	var card models.Card
	if err := r.db.Where("product_id = ? AND card_hash = ?", productID, hash).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// GetReservedByOrder 获取订单当前占用的卡密
func (r *GormCardRepository) GetReservedByOrder(orderID uint) (*models.Card, error) {
	if orderID == 0 {
		return nil, nil
	}
	var card models.Card
	if err := r.db.Where("reserved_order_id = ? AND status = ?", orderID, models.CardStatusReserved).
		First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// List 按条件获取卡密列表
func (r *GormCardRepository) List(filter CardListFilter) ([]models.Card, int64, error) {
	query := r.db.Model(&models.Card{})
	if filter.ProductID > 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		query = query.Where("card_number "+likeOperator(r.db)+" ?", "%"+filter.Keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	var items []models.Card
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListHashesByProduct 获取商品下全部卡密哈希，用于导入去重
func (r *GormCardRepository) ListHashesByProduct(productID uint) (map[string]struct{}, error) {
	result := make(map[string]struct{})
	if productID == 0 {
		return result, nil
	}
	var hashes []string
	if err := r.db.Model(&models.Card{}).
		Where("product_id = ?", productID).
		Pluck("card_hash", &hashes).Error; err != nil {
		return nil, err
	}
	for _, h := range hashes {
		result[h] = struct{}{}
	}
	return result, nil
}

// FirstAvailable 获取商品下最早的一张可售卡密。
// postgres 下带行锁，最终一致性由 Reserve/MarkSold 的条件更新保证。
func (r *GormCardRepository) FirstAvailable(productID uint) (*models.Card, error) {
	if productID == 0 {
		return nil, errors.New("invalid product id")
	}
	var card models.Card
	query := lockForUpdate(r.db).
		Where("product_id = ? AND status = ?", productID, models.CardStatusAvailable).
		Order("id asc")
	if err := query.First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

// Reserve 占用卡密，仅在可售状态下生效
func (r *GormCardRepository) Reserve(id, orderID uint, reservedAt time.Time) (int64, error) {
	if id == 0 || orderID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Card{}).
		Where("id = ? AND status = ?", id, models.CardStatusAvailable).
		Updates(map[string]interface{}{
			"status":            models.CardStatusReserved,
			"reserved_order_id": orderID,
			"reserved_at":       reservedAt,
			"updated_at":        reservedAt,
		})
	return result.RowsAffected, result.Error
}

// ReleaseByOrder 释放订单占用的卡密
func (r *GormCardRepository) ReleaseByOrder(orderID uint) (int64, error) {
	if orderID == 0 {
		return 0, nil
	}
	return r.ReleaseByOrders([]uint{orderID})
}

// ReleaseByOrders 批量释放订单占用的卡密，范围严格限定在给定订单内
func (r *GormCardRepository) ReleaseByOrders(orderIDs []uint) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	now := time.Now()
	result := r.db.Model(&models.Card{}).
		Where("reserved_order_id IN ? AND status = ?", orderIDs, models.CardStatusReserved).
		Updates(map[string]interface{}{
			"status":            models.CardStatusAvailable,
			"reserved_order_id": nil,
			"reserved_at":       nil,
			"updated_at":        now,
		})
	return result.RowsAffected, result.Error
}

// MarkSold 标记卡密售出。仅允许从可售状态或本订单占用状态迁移。
func (r *GormCardRepository) MarkSold(id, orderID uint, soldAt time.Time) (int64, error) {
	if id == 0 || orderID == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Card{}).
		Where("id = ? AND (status = ? OR (status = ? AND reserved_order_id = ?))",
			id, models.CardStatusAvailable, models.CardStatusReserved, orderID).
		Updates(map[string]interface{}{
			"status":            models.CardStatusSold,
			"sold_order_id":     orderID,
			"sold_at":           soldAt,
			"reserved_order_id": nil,
			"reserved_at":       nil,
			"updated_at":        soldAt,
		})
	return result.RowsAffected, result.Error
}

// DeleteAvailable 删除卡密，仅可售状态可删
func (r *GormCardRepository) DeleteAvailable(id uint) (int64, error) {
	if id == 0 {
		return 0, nil
	}
	result := r.db.
		Where("id = ? AND status = ?", id, models.CardStatusAvailable).
		Delete(&models.Card{})
	return result.RowsAffected, result.Error
}

// CountByProduct 统计单商品库存
func (r *GormCardRepository) CountByProduct(productID uint) (CardStockStat, error) {
	var stat CardStockStat
	if productID == 0 {
		return stat, errors.New("invalid product id")
	}

	type countRow struct {
		Status string
		Total  int64
	}
	var rows []countRow
	if err := r.db.Model(&models.Card{}).
		Select("status, COUNT(*) as total").
		Where("product_id = ?", productID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return stat, err
	}
	for _, row := range rows {
		stat.Total += row.Total
		switch row.Status {
		case models.CardStatusAvailable:
			stat.Available = row.Total
		case models.CardStatusReserved:
			stat.Reserved = row.Total
		case models.CardStatusSold:
			stat.Sold = row.Total
		}
	}
	return stat, nil
}

// CountAvailableByProductIDs 批量统计可售库存
func (r *GormCardRepository) CountAvailableByProductIDs(productIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64)
	if len(productIDs) == 0 {
		return result, nil
	}

	type countRow struct {
		ProductID uint
		Total     int64
	}
	var rows []countRow
	if err := r.db.Model(&models.Card{}).
		Select("product_id, COUNT(*) as total").
		Where("product_id IN ? AND status = ?", productIDs, models.CardStatusAvailable).
		Group("product_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ProductID] = row.Total
	}
	return result, nil
}

// CountByStatus 按状态统计全量卡密
func (r *GormCardRepository) CountByStatus() (map[string]int64, error) {
	type countRow struct {
		Status string
		Total  int64
	}
	var rows []countRow
	if err := r.db.Model(&models.Card{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}
