package cron

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Jobs 定时任务依赖的业务操作
type Jobs interface {
	// EnqueueScheduledSyncs 为所有已连接 Stripe 的公司投递全量同步任务
	EnqueueScheduledSyncs(ctx context.Context) (int, error)
	// ExpireStaleLeases 把超时仍为 running 的同步租约标记为 error
	ExpireStaleLeases(ctx context.Context) (int64, error)
	// ExpireOverduePlans 把到期的套餐置为 expired
	ExpireOverduePlans(ctx context.Context) (int64, error)
}

type Service struct {
	jobs         Jobs
	scheduleHour int
	sweepEvery   time.Duration
	logger       *zap.Logger
	stopChan     chan struct{}
}

func NewService(jobs Jobs, scheduleHour int, sweepEvery time.Duration, logger *zap.Logger) *Service {
	if sweepEvery <= 0 {
		sweepEvery = time.Hour
	}
	return &Service{
		jobs:         jobs,
		scheduleHour: scheduleHour,
		sweepEvery:   sweepEvery,
		logger:       logger.Named("cron"),
		stopChan:     make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runDailySync()
	go s.runLeaseSweep()
	s.logger.Info("cron service started", zap.Int("schedule_hour", s.scheduleHour))
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	s.logger.Info("cron service stopped")
}

// NextRun 返回 now 之后第一个 UTC hour:00
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// runDailySync 每日投递一次全量同步
func (s *Service) runDailySync() {
	now := time.Now()
	timer := time.NewTimer(NextRun(now, s.scheduleHour).Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.enqueueSyncs()
			now = time.Now()
			timer.Reset(NextRun(now, s.scheduleHour).Sub(now))
		}
	}
}

func (s *Service) enqueueSyncs() {
	n, err := s.jobs.EnqueueScheduledSyncs(context.Background())
	if err != nil {
		s.logger.Error("enqueue scheduled syncs failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled syncs enqueued", zap.Int("count", n))
}

// runLeaseSweep 定期清理过期租约
func (s *Service) runLeaseSweep() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweepLeases()
		}
	}
}

func (s *Service) sweepLeases() {
	n, err := s.jobs.ExpireStaleLeases(context.Background())
	if err != nil {
		s.logger.Error("expire stale leases failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Warn("stale sync leases expired", zap.Int64("count", n))
	}

	plans, err := s.jobs.ExpireOverduePlans(context.Background())
	if err != nil {
		s.logger.Error("expire overdue plans failed", zap.Error(err))
		return
	}
	if plans > 0 {
		s.logger.Info("overdue plans expired", zap.Int64("count", plans))
	}
}

// RunNow 立即投递一次同步（用于测试或手动触发）
func (s *Service) RunNow(ctx context.Context) (int, error) {
	s.logger.Info("manual scheduled sync triggered")
	return s.jobs.EnqueueScheduledSyncs(ctx)
}
