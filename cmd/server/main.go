package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cardstall/internal/app"
	"github.com/cardstall/internal/cache"
	"github.com/cardstall/internal/logger"
	"github.com/cardstall/internal/provider"
	"github.com/cardstall/internal/router"
)

func main() {
	mode := flag.String("mode", app.ModeAll, "运行模式: all / api / worker")
	flag.Parse()
	if !app.ValidMode(*mode) {
		fmt.Fprintf(os.Stderr, "未知运行模式: %s\n", *mode)
		os.Exit(2)
	}

	cfg, err := app.Bootstrap()
	if err != nil {
		fmt.Fprintf(os.Stderr, "启动失败: %v\n", err)
		os.Exit(1)
	}
	defer cache.Close()

	container := provider.Build(cfg)
	defer func() {
		if err := container.QueueClient.Close(); err != nil {
			logger.Warnw("队列客户端关闭失败", "error", err)
		}
	}()

	var services []app.Service
	if *mode == app.ModeAll || *mode == app.ModeAPI {
		engine := router.Setup(cfg, container.PublicHandler, container.AdminHandler, container.Auth)
		services = append(services, app.NewHTTPService(cfg.Server, engine))
	}
	if *mode == app.ModeAll || *mode == app.ModeWorker {
		services = append(services, container.Worker)
	}

	if err := app.NewRunner(services...).Run(); err != nil {
		os.Exit(1)
	}
}
