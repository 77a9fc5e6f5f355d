package queue

import (
	"fmt"
	"time"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/constants"
	"github.com/cardstall/internal/logger"

	"github.com/hibiken/asynq"
)

// Client 异步任务投递客户端
type Client struct {
	client *asynq.Client
}

// RedisOpt 构造 asynq 的 Redis 连接参数
func RedisOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewClient 创建任务投递客户端，队列未启用时返回 nil
func NewClient(cfg config.QueueConfig) *Client {
	if !cfg.Enabled {
		logger.Infow("异步队列未启用，订单超时仅依赖周期扫描")
		return nil
	}
	return &Client{client: asynq.NewClient(RedisOpt(cfg))}
}

// ScheduleOrderTimeout 投递延迟执行的订单超时取消任务
func (c *Client) ScheduleOrderTimeout(orderID uint, delay time.Duration) error {
	task, err := NewOrderTimeoutTask(orderID)
	if err != nil {
		return err
	}
	info, err := c.client.Enqueue(task,
		asynq.ProcessIn(delay),
		asynq.Queue(constants.QueueDefault),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}
	logger.Debugw("订单超时任务已投递",
		"order_id", orderID,
		"task_id", info.ID,
		"process_in", delay.String(),
	)
	return nil
}

// Close 关闭客户端连接
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
