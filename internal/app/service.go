package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardstall/internal/logger"
)

// Service 可托管的长驻服务
type Service interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

// 优雅退出等待时间
const shutdownTimeout = 10 * time.Second

// Runner 服务编排器，统一启动与优雅退出
type Runner struct {
	services []Service
}

// NewRunner 创建编排器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// Run 启动全部服务并阻塞至退出信号
func (r *Runner) Run() error {
	for _, svc := range r.services {
		if err := svc.Start(); err != nil {
			logger.Errorw("服务启动失败", "service", svc.Name(), "error", err)
			r.stopAll()
			return err
		}
		logger.Infow("服务已启动", "service", svc.Name())
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Infow("收到退出信号，开始优雅退出", "signal", sig.String())

	r.stopAll()
	return nil
}

func (r *Runner) stopAll() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// 按启动顺序倒序停止
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if err := svc.Stop(ctx); err != nil {
			logger.Warnw("服务停止异常", "service", svc.Name(), "error", err)
			continue
		}
		logger.Infow("服务已停止", "service", svc.Name())
	}
}
