package service

import (
	"fmt"
	"time"

	"github.com/cardstall/internal/constants"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/repository"

	"github.com/shopspring/decimal"
)

// FullReductionRule 满减规则
type FullReductionRule struct {
	Enabled   bool         `json:"enabled"`
	Threshold models.Money `json:"threshold"` // 满足金额
	Reduce    models.Money `json:"reduce"`    // 立减金额
}

// Validate 校验满减规则
func (r FullReductionRule) Validate() error {
	if !r.Enabled {
		return nil
	}
	if !r.Threshold.GreaterThan(decimal.Zero) {
		return ErrDiscountRuleInvalid
	}
	if !r.Reduce.GreaterThan(decimal.Zero) {
		return ErrDiscountRuleInvalid
	}
	if r.Reduce.GreaterThan(r.Threshold.Decimal) {
		return ErrDiscountRuleInvalid
	}
	return nil
}

// SettingService 系统配置服务
type SettingService struct {
	settings repository.SettingRepository
}

// NewSettingService 创建配置服务
func NewSettingService(settings repository.SettingRepository) *SettingService {
	return &SettingService{settings: settings}
}

// GetFullReductionRule 读取满减规则，未配置时返回关闭状态的默认值
func (s *SettingService) GetFullReductionRule() (FullReductionRule, error) {
	rule := FullReductionRule{}
	setting, err := s.settings.GetByKey(constants.SettingKeyFullReductionRule)
	if err != nil {
		return rule, err
	}
	if setting == nil || setting.ValueJSON == nil {
		return rule, nil
	}

	if enabled, ok := setting.ValueJSON["enabled"].(bool); ok {
		rule.Enabled = enabled
	}
	if threshold, err := parseMoneyValue(setting.ValueJSON["threshold"]); err == nil {
		rule.Threshold = threshold
	}
	if reduce, err := parseMoneyValue(setting.ValueJSON["reduce"]); err == nil {
		rule.Reduce = reduce
	}
	return rule, nil
}

// SaveFullReductionRule 保存满减规则
func (s *SettingService) SaveFullReductionRule(rule FullReductionRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	setting := &models.Setting{
		Key: constants.SettingKeyFullReductionRule,
		ValueJSON: models.JSON{
			"enabled":   rule.Enabled,
			"threshold": rule.Threshold.String(),
			"reduce":    rule.Reduce.String(),
		},
		UpdatedAt: time.Now(),
	}
	return s.settings.Upsert(setting)
}

// JSON 配置中的金额兼容字符串与数字两种写法
func parseMoneyValue(raw interface{}) (models.Money, error) {
	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return models.Money{}, err
		}
		return models.NewMoneyFromDecimal(d), nil
	case float64:
		return models.NewMoneyFromFloat(v), nil
	case nil:
		return models.Money{}, fmt.Errorf("金额为空")
	default:
		return models.Money{}, fmt.Errorf("无法解析的金额类型: %T", raw)
	}
}
