package main

import (
	"fmt"
	"os"

	"github.com/cardstall/internal/app"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/models"
	"github.com/cardstall/internal/provider"
	"github.com/cardstall/internal/service"
)

// 开发环境演示数据：商品、卡密与满减规则
func main() {
	cfg, err := app.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "启动失败: %v\n", err)
		os.Exit(1)
	}
	container := provider.Build(cfg)

	var count int64
	models.DB.Model(&models.Product{}).Count(&count)
	if count > 0 {
		logger.Infow("已存在商品数据，跳过初始化")
		return
	}

	seeds := []struct {
		input service.ProductInput
		cards string
	}{
		{
			input: service.ProductInput{
				Name:        "视频会员月卡",
				Category:    "影音娱乐",
				Description: "全平台通用视频会员，30 天有效期",
				Price:       models.NewMoneyFromFloat(19.90),
				SortOrder:   1,
			},
			cards: "VIP-M-20260801-0001\nVIP-M-20260801-0002\nVIP-M-20260801-0003\nVIP-M-20260801-0004\nVIP-M-20260801-0005",
		},
		{
			input: service.ProductInput{
				Name:        "游戏点卡 100 点",
				Category:    "游戏充值",
				Description: "通用游戏点卡，购买后即时发放卡密",
				Price:       models.NewMoneyFromFloat(98.00),
				SortOrder:   2,
			},
			cards: "GAME-100-A7F2K9\nGAME-100-B3X8M1\nGAME-100-C5Q4N6",
		},
		{
			input: service.ProductInput{
				Name:        "云盘超级会员季卡",
				Category:    "效率工具",
				Description: "云盘超级会员 90 天，极速下载不限速",
				Price:       models.NewMoneyFromFloat(45.00),
				SortOrder:   3,
			},
			cards: "PAN-Q-X1Y2Z3\nPAN-Q-A4B5C6",
		},
	}

	for _, seed := range seeds {
		product, err := container.Products.Create(seed.input)
		if err != nil {
			logger.Errorw("创建商品失败", "name", seed.input.Name, "error", err)
			os.Exit(1)
		}
		result, err := container.Cards.Import(product.ID, seed.cards)
		if err != nil {
			logger.Errorw("导入卡密失败", "product_id", product.ID, "error", err)
			os.Exit(1)
		}
		logger.Infow("商品初始化完成",
			"product_id", product.ID,
			"name", product.Name,
			"cards", result.Inserted,
		)
	}

	rule := service.FullReductionRule{
		Enabled:   true,
		Threshold: models.NewMoneyFromFloat(50.00),
		Reduce:    models.NewMoneyFromFloat(5.00),
	}
	if err := container.Settings.SaveFullReductionRule(rule); err != nil {
		logger.Errorw("初始化满减规则失败", "error", err)
		os.Exit(1)
	}
	logger.Infow("演示数据初始化完成")
}
