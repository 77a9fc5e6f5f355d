package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/logger"

	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	prefix string
)

// Init 初始化 Redis 连接。连接失败时降级为无缓存模式，不阻断启动。
func Init(cfg config.RedisConfig) {
	if !cfg.Enabled {
		logger.Infow("Redis 缓存未启用")
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnw("Redis 连接失败，缓存降级", "error", err)
		return
	}
	rdb = client
	prefix = strings.TrimSpace(cfg.Prefix)
	logger.Infow("Redis 连接成功", "addr", client.Options().Addr)
}

// Enabled Redis 是否可用
func Enabled() bool {
	return rdb != nil
}

// Client 返回底层客户端，未启用时为 nil
func Client() *redis.Client {
	return rdb
}

// Key 拼接带前缀的缓存键
func Key(parts ...string) string {
	if prefix == "" {
		return strings.Join(parts, ":")
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// Set 写入缓存，未启用时静默跳过
func Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, key, value, ttl).Err()
}

// Get 读取缓存。键不存在或未启用时返回空串。
func Get(ctx context.Context, key string) (string, error) {
	if rdb == nil {
		return "", nil
	}
	val, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Del 删除缓存键
func Del(ctx context.Context, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err()
}

// Close 关闭连接
func Close() {
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warnw("Redis 关闭失败", "error", err)
		}
		rdb = nil
	}
}
