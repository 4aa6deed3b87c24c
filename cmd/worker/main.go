package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/app"
	"github.com/qs3c/metrics_go_server/internal/pkg/logger"
	"github.com/qs3c/metrics_go_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.Must(cfg.Log)

	c, err := app.NewContainer(cfg, zlog)
	if err != nil {
		zlog.Fatal("init container", zap.Error(err))
	}
	defer c.Close()

	// 创建 context 用于优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processor := worker.NewProcessor(c.Sync, c.Queue, zlog)

	zlog.Info("worker started", zap.Int("max_workers", cfg.Sync.MaxWorkers), zap.String("queue", cfg.Sync.Queue))
	processor.Run(ctx, cfg.Sync.MaxWorkers)
	zlog.Info("worker shutdown complete")
}
