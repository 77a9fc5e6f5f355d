package app

import (
	"fmt"
	"os"

	"github.com/cardstall/internal/cache"
	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/models"
)

// Bootstrap 初始化基础设施：日志、配置、数据库、缓存
func Bootstrap() (*config.Config, error) {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())

	pool := models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, pool); err != nil {
		return nil, fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	if err := models.InitDefaultAdmin(os.Getenv("ADMIN_USERNAME"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		return nil, fmt.Errorf("初始化默认管理员失败: %w", err)
	}

	cache.Init(cfg.Redis)
	return cfg, nil
}
