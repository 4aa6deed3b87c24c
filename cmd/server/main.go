package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/api"
	"github.com/qs3c/metrics_go_server/internal/api/handler"
	"github.com/qs3c/metrics_go_server/internal/app"
	"github.com/qs3c/metrics_go_server/internal/pkg/cron"
	"github.com/qs3c/metrics_go_server/internal/pkg/logger"
	"github.com/qs3c/metrics_go_server/internal/pkg/ws"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// WebSocket Hub 接收 worker 经 Redis 转发的同步进度
	wsHub := ws.NewHub(zlog)
	go func() {
		if err := c.Subscriber.Subscribe(ctx, wsHub.HandleProgress); err != nil && ctx.Err() == nil {
			zlog.Error("progress subscription stopped", zap.Error(err))
		}
	}()

	if cfg.Sync.ScheduleEnabled {
		cronService := cron.NewService(c.Sync, cfg.Sync.ScheduleHour, 0, zlog)
		cronService.Start()
		defer cronService.Stop()
	}

	// 初始化 Handler
	userHandler := handler.NewUserHandler(c.Users)
	companyHandler := handler.NewCompanyHandler(c.Company, c.Connect)
	revenueHandler := handler.NewRevenueHandler(c.Sync, c.Revenue, zlog)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, zlog)

	router := api.NewRouter(
		userHandler,
		companyHandler,
		revenueHandler,
		websocketHandler,
		c.Limiter,
		cfg,
		zlog,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}
}
