package service

import (
	"time"

	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/repository"
)

// ProductService 商品服务
type ProductService struct {
	products repository.ProductRepository
	cards    repository.CardRepository
}

// NewProductService 创建商品服务
func NewProductService(products repository.ProductRepository, cards repository.CardRepository) *ProductService {
	return &ProductService{products: products, cards: cards}
}

// List 商品列表，附带实时可售库存
func (s *ProductService) List(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	items, total, err := s.products.List(filter)
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return items, total, nil
	}

	ids := make([]uint, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	available, err := s.cards.CountAvailableByProductIDs(ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].StockAvailable = available[items[i].ID]
	}
	return items, total, nil
}

// Get 商品详情，附带实时库存统计
func (s *ProductService) Get(id uint) (*models.Product, error) {
	product, err := s.products.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	stock, err := s.cards.CountByProduct(id)
	if err != nil {
		return nil, err
	}
	product.StockAvailable = stock.Available
	product.StockReserved = stock.Reserved
	product.StockSold = stock.Sold
	return product, nil
}

// GetOnline 上架商品详情（买家端）
func (s *ProductService) GetOnline(id uint) (*models.Product, error) {
	product, err := s.products.GetOnlineByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	stock, err := s.cards.CountByProduct(id)
	if err != nil {
		return nil, err
	}
	product.StockAvailable = stock.Available
	return product, nil
}

// SalePrice 商品当前生效售价
func (s *ProductService) SalePrice(product *models.Product) models.Money {
	return resolveSalePrice(product, time.Now())
}

// ProductInput 商品创建/更新参数
type ProductInput struct {
	Name          string       `json:"name" binding:"required"`
	Category      string       `json:"category"`
	Description   string       `json:"description"`
	Price         models.Money `json:"price"`
	OriginalPrice models.Money `json:"original_price"`
	PromoPrice    models.Money `json:"promo_price"`
	PromoStartAt  *time.Time   `json:"promo_start_at"`
	PromoEndAt    *time.Time   `json:"promo_end_at"`
	Status        string       `json:"status"`
	SortOrder     int          `json:"sort_order"`
}

func (input ProductInput) apply(product *models.Product) {
	product.Name = input.Name
	product.Category = input.Category
	product.Description = input.Description
	product.Price = input.Price
	product.OriginalPrice = input.OriginalPrice
	product.PromoPrice = input.PromoPrice
	product.PromoStartAt = input.PromoStartAt
	product.PromoEndAt = input.PromoEndAt
	if input.Status != "" {
		product.Status = input.Status
	}
	product.SortOrder = input.SortOrder
}

// Create 创建商品
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	product := &models.Product{}
	input.apply(product)
	if err := s.products.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input ProductInput) (*models.Product, error) {
	product, err := s.products.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	input.apply(product)
	if err := s.products.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}
