package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/logger"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/service"
)

// JobRunner 执行一次同步
type JobRunner interface {
	RunJob(ctx context.Context, msg *queue.SyncJobMessage) (*dto.SyncResponse, error)
}

// JobSource 阻塞获取任务，超时返回 nil
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.SyncJobMessage, error)
}

// Processor 任务处理器
type Processor struct {
	runner     JobRunner
	source     JobSource
	popTimeout time.Duration
	logger     *zap.Logger
}

// NewProcessor 创建任务处理器
func NewProcessor(runner JobRunner, source JobSource, logger *zap.Logger) *Processor {
	return &Processor{
		runner:     runner,
		source:     source,
		popTimeout: 5 * time.Second,
		logger:     logger.Named("worker"),
	}
}

// Process 处理一个同步任务。租约冲突和无权限属于预期情况，跳过不报错
func (p *Processor) Process(ctx context.Context, msg *queue.SyncJobMessage) error {
	log := p.logger.With(
		logger.CompanyID(msg.CompanyID),
		logger.UserID(msg.UserID),
		zap.String("trigger", msg.Trigger),
	)

	start := time.Now()
	resp, err := p.runner.RunJob(ctx, msg)
	switch {
	case err == nil:
		log.Info("job completed",
			logger.RunID(resp.RunID),
			zap.Int("subscriptions", resp.SubscriptionsProcessed),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	case errors.Is(err, service.ErrSyncInProgress):
		log.Info("job skipped, sync already running")
		return nil
	case errors.Is(err, service.ErrPaymentRequired), errors.Is(err, service.ErrStripeNotConnected):
		log.Warn("job skipped", zap.String("reason", err.Error()))
		return nil
	default:
		return err
	}
}

// Run 启动 workers 个循环，ctx 取消后等待所有循环退出
func (p *Processor) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (p *Processor) loop(ctx context.Context, workerID int) {
	log := p.logger.With(zap.Int("worker_id", workerID))
	for {
		if ctx.Err() != nil {
			log.Info("worker shutting down")
			return
		}

		msg, err := p.source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("pop job failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		if err := p.Process(ctx, msg); err != nil {
			log.Error("job failed", logger.CompanyID(msg.CompanyID), zap.Error(err))
		}
	}
}
