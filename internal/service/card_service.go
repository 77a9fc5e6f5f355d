package service

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/constants"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/repository"
)

// 导入明细中最多回传的逐行错误条数
const importErrorDetailLimit = 50

// ImportSummary 导入跳过原因统计
type ImportSummary struct {
	Duplicate  int `json:"duplicate"`   // 批次内重复
	Existed    int `json:"existed"`     // 库内已存在
	OverLength int `json:"over_length"` // 超出单条长度上限
	OverLimit  int `json:"over_limit"`  // 超出单批数量上限
}

// ImportLineError 单行导入错误明细
type ImportLineError struct {
	Line   int    `json:"line"`   // 行号（从 1 开始）
	Reason string `json:"reason"` // 失败原因
}

// ImportResult 卡密导入结果
type ImportResult struct {
	Attempted int                      `json:"attempted"` // 提交的非空行数
	Inserted  int                      `json:"inserted"`  // 成功入库数
	Skipped   int                      `json:"skipped"`   // 跳过数
	Summary   ImportSummary            `json:"summary"`   // 跳过原因统计
	Errors    []ImportLineError        `json:"errors"`    // 逐行错误明细（截断）
	Stock     repository.CardStockStat `json:"stock"`     // 导入后的商品库存
}

// CardService 卡密库存服务
type CardService struct {
	cards    repository.CardRepository
	products repository.ProductRepository
	stockCfg config.StockConfig
}

// NewCardService 创建卡密服务
func NewCardService(cards repository.CardRepository, products repository.ProductRepository, cfg *config.Config) *CardService {
	return &CardService{
		cards:    cards,
		products: products,
		stockCfg: cfg.Stock,
	}
}

// cardHash 卡密内容指纹，用于同商品去重
func cardHash(cardNumber string) string {
	sum := md5.Sum([]byte(cardNumber))
	return hex.EncodeToString(sum[:])
}

// Import 批量导入卡密。按行解析，同商品按内容哈希去重，逐行统计失败原因；
// 单行失败不影响其余行入库，超出单批上限的行单独计数跳过。
func (s *CardService) Import(productID uint, content string) (*ImportResult, error) {
	product, err := s.products.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	rawLines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	type parsedLine struct {
		number string
		line   int
	}
	var lines []parsedLine
	for i, raw := range rawLines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		lines = append(lines, parsedLine{number: trimmed, line: i + 1})
	}
	if len(lines) == 0 {
		return nil, ErrImportEmpty
	}

	maxBatch := s.stockCfg.ImportMaxBatch
	if maxBatch <= 0 {
		maxBatch = constants.CardImportMaxBatch
	}
	maxLength := s.stockCfg.CardMaxLength
	if maxLength <= 0 {
		maxLength = constants.CardMaxLength
	}

	existedHashes, err := s.cards.ListHashesByProduct(productID)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Attempted: len(lines)}
	addError := func(line int, reason string) {
		if len(result.Errors) < importErrorDetailLimit {
			result.Errors = append(result.Errors, ImportLineError{Line: line, Reason: reason})
		}
	}

	now := time.Now()
	batchHashes := make(map[string]struct{}, len(lines))
	var toInsert []models.Card
	validCount := 0
	for _, item := range lines {
		if len(item.number) > maxLength {
			result.Summary.OverLength++
			addError(item.line, "卡密长度超出上限")
			continue
		}
		hash := cardHash(item.number)
		if _, ok := batchHashes[hash]; ok {
			result.Summary.Duplicate++
			addError(item.line, "批次内重复")
			continue
		}
		batchHashes[hash] = struct{}{}
		// 超出单批上限的行跳过不入库，已入库部分不回滚
		if validCount >= maxBatch {
			result.Summary.OverLimit++
			addError(item.line, "超出单次导入上限")
			continue
		}
		validCount++
		if _, ok := existedHashes[hash]; ok {
			result.Summary.Existed++
			addError(item.line, "卡密已存在")
			continue
		}
		toInsert = append(toInsert, models.Card{
			ProductID:  productID,
			CardNumber: item.number,
			CardHash:   hash,
			Status:     models.CardStatusAvailable,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := s.cards.CreateBatch(toInsert); err != nil {
		return nil, err
	}
	result.Inserted = len(toInsert)
	result.Skipped = result.Attempted - result.Inserted

	stock, err := s.cards.CountByProduct(productID)
	if err != nil {
		return nil, err
	}
	result.Stock = stock

	logger.Infow("卡密导入完成",
		"product_id", productID,
		"attempted", result.Attempted,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
	)
	return result, nil
}

// List 卡密列表（管理端）
func (s *CardService) List(filter repository.CardListFilter) ([]models.Card, int64, error) {
	return s.cards.List(filter)
}

// Stock 单商品库存统计
func (s *CardService) Stock(productID uint) (repository.CardStockStat, error) {
	return s.cards.CountByProduct(productID)
}

// StatusCounts 全量卡密状态分布（监控用）
func (s *CardService) StatusCounts() (map[string]int64, error) {
	return s.cards.CountByStatus()
}

// Delete 删除卡密。仅可删除未被订单占用或售出的卡密。
func (s *CardService) Delete(cardID uint) error {
	card, err := s.cards.GetByID(cardID)
	if err != nil {
		return err
	}
	if card == nil {
		return ErrCardNotFound
	}
	affected, err := s.cards.DeleteAvailable(cardID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCardNotDeletable
	}
	return nil
}
