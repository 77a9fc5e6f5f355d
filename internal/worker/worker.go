package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/constants"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/queue"
	"github.com/cardstall/internal/service"

	"github.com/hibiken/asynq"
)

// Worker 后台任务进程：消费异步队列，并周期执行过期订单扫描与对账。
type Worker struct {
	orders    *service.OrderService
	reconcile *service.ReconcileService
	queueCfg  config.QueueConfig
	jobsCfg   config.JobsConfig

	server *asynq.Server
	cancel context.CancelFunc
	done   chan struct{}
}

// New 创建后台任务进程
func New(orders *service.OrderService, reconcile *service.ReconcileService, cfg *config.Config) *Worker {
	return &Worker{
		orders:    orders,
		reconcile: reconcile,
		queueCfg:  cfg.Queue,
		jobsCfg:   cfg.Jobs,
	}
}

// Name 服务名
func (w *Worker) Name() string {
	return "worker"
}

// Start 启动队列消费与周期任务
func (w *Worker) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.runLoops(ctx)

	if !w.queueCfg.Enabled {
		logger.Infow("异步队列未启用，仅运行周期任务")
		return nil
	}

	concurrency := w.queueCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	queues := w.queueCfg.Queues
	if len(queues) == 0 {
		queues = map[string]int{constants.QueueDefault: 10}
	}
	w.server = asynq.NewServer(queue.RedisOpt(w.queueCfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
		Logger:      logger.S(),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(constants.TaskOrderTimeoutCancel, w.handleOrderTimeout)

	go func() {
		if err := w.server.Run(mux); err != nil {
			logger.Errorw("异步队列消费异常退出", "error", err)
		}
	}()
	logger.Infow("后台任务进程已启动", "concurrency", concurrency)
	return nil
}

// Stop 停止后台任务
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.server != nil {
		w.server.Shutdown()
	}
	if w.done != nil {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// handleOrderTimeout 消费订单超时取消任务
func (w *Worker) handleOrderTimeout(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseOrderTimeoutPayload(task)
	if err != nil {
		logger.Errorw("订单超时任务载荷解析失败", "error", err)
		return nil // 载荷损坏无法重试
	}
	if err := w.orders.CancelExpired(payload.OrderID); err != nil {
		if service.IsBusinessError(err) {
			logger.Warnw("订单超时取消跳过", "order_id", payload.OrderID, "error", err)
			return nil
		}
		logger.Errorw("订单超时取消失败", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

// runLoops 周期任务：过期订单兜底扫描与一致性对账
func (w *Worker) runLoops(ctx context.Context) {
	defer close(w.done)

	sweepInterval := secondsOr(w.jobsCfg.SweepIntervalSeconds, 60)
	reconcileInterval := secondsOr(w.jobsCfg.ReconcileIntervalSeconds, 300)
	sweepLimit := w.jobsCfg.SweepBatchLimit
	if sweepLimit <= 0 {
		sweepLimit = constants.SweepBatchLimit
	}

	sweepTicker := time.NewTicker(sweepInterval)
	reconcileTicker := time.NewTicker(reconcileInterval)
	defer sweepTicker.Stop()
	defer reconcileTicker.Stop()

	logger.Infow("周期任务已启动",
		"sweep_interval", sweepInterval.String(),
		"reconcile_interval", reconcileInterval.String(),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			if _, _, err := w.orders.SweepExpired(sweepLimit); err != nil {
				logger.Errorw("过期订单扫描失败", "error", err)
			}
		case <-reconcileTicker.C:
			if _, err := w.reconcile.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorw("一致性对账失败", "error", err)
			}
		}
	}
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
