package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/app"
	"github.com/qs3c/metrics_go_server/internal/cli"
	"github.com/qs3c/metrics_go_server/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	load := func(configPath string) (*app.Container, func(), error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		log, err := logger.New(cfg.Log)
		if err != nil {
			return nil, nil, err
		}
		c, err := app.NewContainer(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}

	if err := cli.Execute(ctx, load); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
