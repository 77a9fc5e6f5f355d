package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/cardstall/internal/config"
	"github.com/cardstall/internal/logger"

	"github.com/gin-gonic/gin"
)

// HTTPService HTTP 服务封装
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务
func NewHTTPService(cfg config.ServerConfig, engine *gin.Engine) *HTTPService {
	return &HTTPService{
		server: &http.Server{
			Addr:     cfg.Host + ":" + cfg.Port,
			Handler:  engine,
			ErrorLog: logger.StdLogger(),
		},
	}
}

// Name 服务名
func (s *HTTPService) Name() string {
	return "http"
}

// Start 启动监听
func (s *HTTPService) Start() error {
	go func() {
		logger.Infow("HTTP 服务监听中", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP 服务异常退出", "error", err)
		}
	}()
	return nil
}

// Stop 优雅关闭
func (s *HTTPService) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
