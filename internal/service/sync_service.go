package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/model/dto"
	"github.com/qs3c/metrics_go_server/internal/pkg/logger"
	"github.com/qs3c/metrics_go_server/internal/pkg/pubsub"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/revenue"
)

var (
	ErrSyncInProgress = errors.New("该公司已有同步在进行中")
	ErrStripeFetch    = errors.New("拉取 Stripe 订阅失败")
	ErrPersist        = errors.New("保存收入快照失败")
	ErrInvalidSince   = errors.New("since 必须是 RFC3339 时间或 YYYY-MM-DD 日期")
)

// 同步模式
const (
	SyncModeFull        = "full"
	SyncModeIncremental = "incremental"
)

// 触发来源，api 之外的取值见 queue.Trigger*
const TriggerAPI = "api"

// PagerFactory 根据解密后的密钥创建订阅分页器
type PagerFactory interface {
	NewPager(secretKey string) revenue.SubscriptionPager
}

// ProgressPublisher 发布同步进度
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error
}

// JobQueue 投递后台同步任务
type JobQueue interface {
	Push(ctx context.Context, msg *queue.SyncJobMessage) error
}

// SyncParams 一次同步的输入
type SyncParams struct {
	UserID    int64
	CompanyID *int64
	Months    int
	FullSync  bool
	Since     *time.Time
	Trigger   string
}

type SyncService struct {
	companies    *CompanyService
	access       *AccessService
	stateRepo    *repository.SyncStateRepository
	runRepo      *repository.SyncRunRepository
	snapshotRepo *repository.SnapshotRepository
	pagers       PagerFactory
	publisher    ProgressPublisher
	jobs         JobQueue
	cfg          *config.Config
	logger       *zap.Logger
	now          func() time.Time
}

func NewSyncService(
	companies *CompanyService,
	access *AccessService,
	stateRepo *repository.SyncStateRepository,
	runRepo *repository.SyncRunRepository,
	snapshotRepo *repository.SnapshotRepository,
	pagers PagerFactory,
	publisher ProgressPublisher,
	jobs JobQueue,
	cfg *config.Config,
	log *zap.Logger,
) *SyncService {
	return &SyncService{
		companies:    companies,
		access:       access,
		stateRepo:    stateRepo,
		runRepo:      runRepo,
		snapshotRepo: snapshotRepo,
		pagers:       pagers,
		publisher:    publisher,
		jobs:         jobs,
		cfg:          cfg,
		logger:       log.Named("sync"),
		now:          time.Now,
	}
}

// ParseSince 解析 since 参数，空字符串返回 nil
func ParseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	return nil, ErrInvalidSince
}

// Sync 处理 HTTP 同步请求
func (s *SyncService) Sync(ctx context.Context, userID int64, req *dto.SyncRequest) (*dto.SyncResponse, error) {
	var since *time.Time
	if !req.FullSync {
		// full_sync 时忽略 since，不做校验
		parsed, err := ParseSince(req.Since)
		if err != nil {
			return nil, err
		}
		since = parsed
	}
	return s.Run(ctx, SyncParams{
		UserID:    userID,
		CompanyID: req.CompanyID,
		Months:    req.Months,
		FullSync:  req.FullSync,
		Since:     since,
		Trigger:   TriggerAPI,
	})
}

// RunJob 处理队列中的同步任务
func (s *SyncService) RunJob(ctx context.Context, msg *queue.SyncJobMessage) (*dto.SyncResponse, error) {
	companyID := msg.CompanyID
	return s.Run(ctx, SyncParams{
		UserID:    msg.UserID,
		CompanyID: &companyID,
		Months:    msg.Months,
		FullSync:  msg.FullSync,
		Since:     msg.Since,
		Trigger:   msg.Trigger,
	})
}

// Run 执行完整同步：校验、租约、拉取、重建、写入，任何失败都会释放租约
func (s *SyncService) Run(ctx context.Context, p SyncParams) (resp *dto.SyncResponse, err error) {
	company, err := s.companies.Resolve(p.UserID, p.CompanyID)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireAccess(p.UserID); err != nil {
		return nil, err
	}
	if !company.HasStripe() {
		return nil, ErrStripeNotConnected
	}

	months := p.Months
	if months == 0 {
		months = s.cfg.Sync.DefaultMonths
	}
	months = revenue.ClampMonths(months)

	mode, since := SyncModeFull, p.Since
	if p.FullSync {
		since = nil
	}
	if since != nil {
		mode = SyncModeIncremental
	}

	runID := uuid.NewString()
	log := s.logger.With(
		logger.CompanyID(company.ID),
		logger.UserID(p.UserID),
		logger.RunID(runID),
		logger.SyncMode(mode),
	)

	acquired, err := s.stateRepo.TryAcquire(company.ID, runID, s.now(), s.cfg.Sync.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sync lease: %w", err)
	}
	if !acquired {
		log.Info("sync rejected, lease held by another run")
		return nil, ErrSyncInProgress
	}

	run := &model.SyncRun{
		RunID:     runID,
		CompanyID: company.ID,
		UserID:    p.UserID,
		Trigger:   p.Trigger,
		SyncMode:  mode,
		Months:    months,
		Status:    repository.RunStatusRunning,
	}
	if err := s.runRepo.Create(run); err != nil {
		log.Warn("record sync run failed", zap.Error(err))
	}

	progress := &pubsub.ProgressMessage{UserID: p.UserID, CompanyID: company.ID, RunID: runID, SyncMode: mode}
	var (
		processed int
		breakdown map[string]int
	)
	defer func() {
		if r := recover(); r != nil {
			s.finish(log, progress, mode, processed, breakdown, fmt.Errorf("sync panic: %v", r))
			panic(r)
		}
		s.finish(log, progress, mode, processed, breakdown, err)
	}()

	log.Info("sync started", zap.Int("months", months), zap.String("trigger", p.Trigger))

	// 请求断开不中断同步，整体耗时受租约时长约束
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Sync.LeaseTTL)
	defer cancel()

	secretKey, err := s.companies.StripeKey(company)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, progress, pubsub.StepFetching)
	subs, err := revenue.NewFetcher(s.pagers.NewPager(secretKey), s.cfg.Stripe.PageSize).FetchAll(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStripeFetch, err)
	}
	processed = len(subs)
	breakdown = revenue.StatusBreakdown(subs)
	log.Info("subscriptions fetched", zap.Int("count", processed))

	s.publish(ctx, progress, pubsub.StepReconstructing)
	buckets := revenue.Reconstruct(subs, revenue.BuildMonthBuckets(months, s.now()))

	s.publish(ctx, progress, pubsub.StepPersisting)
	if err := s.snapshotRepo.UpsertBatch(bucketsToSnapshots(company.ID, runID, buckets)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	// 同步期间套餐可能到期，返回前再校验一次
	if err := s.access.RequireAccess(p.UserID); err != nil {
		log.Warn("access revoked during sync")
		return nil, err
	}

	resp = &dto.SyncResponse{
		Synced:                 true,
		CompanyID:              strconv.FormatInt(company.ID, 10),
		SyncMode:               mode,
		Since:                  formatTime(since),
		MonthsSynced:           len(buckets),
		SubscriptionsProcessed: processed,
		StatusBreakdown:        breakdown,
		RunID:                  runID,
	}
	if len(buckets) > 0 {
		resp.LatestSnapshot = bucketToDTO(buckets[len(buckets)-1])
	}
	return resp, nil
}

// finish 释放租约并记录结果
func (s *SyncService) finish(log *zap.Logger, progress *pubsub.ProgressMessage, mode string, processed int, breakdown map[string]int, runErr error) {
	now := s.now()
	outcome := repository.SyncOutcome{
		Status:                 model.SyncStatusIdle,
		SyncMode:               mode,
		SubscriptionsProcessed: processed,
		StatusBreakdown:        breakdown,
	}
	runStatus := repository.RunStatusCompleted
	if runErr != nil {
		outcome.Status = model.SyncStatusError
		outcome.Error = PublicMessage(runErr)
		runStatus = repository.RunStatusFailed
	}

	released, err := s.stateRepo.Release(progress.CompanyID, progress.RunID, now, outcome)
	if err != nil {
		log.Error("release sync lease failed", zap.Error(err))
	} else if !released {
		log.Warn("sync lease no longer held at release")
	}

	if err := s.runRepo.Finish(progress.RunID, runStatus, processed, outcome.Error, now); err != nil {
		log.Warn("finish sync run failed", zap.Error(err))
	}

	ctx := context.Background()
	if runErr != nil {
		progress.Error = outcome.Error
		s.publish(ctx, progress, pubsub.StepFailed)
		log.Error("sync failed", zap.Error(runErr))
		return
	}
	s.publish(ctx, progress, pubsub.StepDone)
	log.Info("sync completed", zap.Int("subscriptions", processed))
}

func (s *SyncService) publish(ctx context.Context, progress *pubsub.ProgressMessage, step string) {
	if s.publisher == nil {
		return
	}
	msg := *progress
	msg.Step = step
	if err := s.publisher.PublishProgress(ctx, &msg); err != nil {
		s.logger.Debug("publish progress failed", zap.String("step", step), zap.Error(err))
	}
}

// EnqueueScheduledSyncs 为每个已连接 Stripe 的公司投递全量同步任务
func (s *SyncService) EnqueueScheduledSyncs(ctx context.Context) (int, error) {
	if s.jobs == nil {
		return 0, errors.New("job queue not configured")
	}
	companies, err := s.companies.ListStripeConnected()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, c := range companies {
		// 增量模式会漏掉 since 之前创建的终态订阅，定时刷新必须全量重建窗口
		msg := &queue.SyncJobMessage{
			CompanyID: c.ID,
			UserID:    c.OwnerID,
			Months:    s.cfg.Sync.DefaultMonths,
			FullSync:  true,
			Trigger:   queue.TriggerSchedule,
		}
		if err := s.jobs.Push(ctx, msg); err != nil {
			return count, fmt.Errorf("enqueue company %d: %w", c.ID, err)
		}
		count++
	}
	return count, nil
}

// ExpireStaleLeases 标记超时租约
func (s *SyncService) ExpireStaleLeases(ctx context.Context) (int64, error) {
	return s.stateRepo.ExpireStale(s.now(), s.cfg.Sync.LeaseTTL)
}

// ExpireOverduePlans 随租约清理一起把到期套餐置为 expired
func (s *SyncService) ExpireOverduePlans(ctx context.Context) (int64, error) {
	return s.access.ExpireOverdue()
}

// ResetLease 运维手动清除租约
func (s *SyncService) ResetLease(companyID int64) (bool, error) {
	s.logger.Warn("sync lease force reset", logger.CompanyID(companyID))
	return s.stateRepo.ForceReset(companyID)
}

// PublicMessage 返回可展示给用户的错误信息，不含上游细节
func PublicMessage(err error) string {
	for _, known := range []error{
		ErrCompanyNotFound,
		ErrCompanyForbidden,
		ErrPaymentRequired,
		ErrSyncInProgress,
		ErrStripeNotConnected,
		ErrSecretDecrypt,
		ErrStripeFetch,
		ErrPersist,
		ErrInvalidSince,
		ErrConnectExchangeFailed,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "同步失败"
}
