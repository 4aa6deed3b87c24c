package app

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/metrics_go_server/config"
	"github.com/qs3c/metrics_go_server/internal/database"
	"github.com/qs3c/metrics_go_server/internal/pkg/oauth"
	"github.com/qs3c/metrics_go_server/internal/pkg/pubsub"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/pkg/ratelimit"
	"github.com/qs3c/metrics_go_server/internal/pkg/secret"
	"github.com/qs3c/metrics_go_server/internal/pkg/stripeapi"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/service"
)

// Container server、worker 与 metricsctl 共用的依赖
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client

	Cipher     *secret.Cipher
	Queue      *queue.Queue
	Publisher  *pubsub.Publisher
	Subscriber *pubsub.Subscriber
	Limiter    *ratelimit.Limiter

	UserRepo     *repository.UserRepository
	PlanRepo     *repository.PlanRepository
	CompanyRepo  *repository.CompanyRepository
	SnapshotRepo *repository.SnapshotRepository
	StateRepo    *repository.SyncStateRepository
	RunRepo      *repository.SyncRunRepository

	Access  *service.AccessService
	Company *service.CompanyService
	Sync    *service.SyncService
	Revenue *service.RevenueService
	Users   *service.UserService
	Connect *service.ConnectService
	Stripe  *stripeapi.Factory
}

// NewContainer 连接 MySQL 与 Redis 并组装服务
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.NewMySQL(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	return Build(cfg, logger, db, rdb)
}

// Build 用已有连接组装服务
func Build(cfg *config.Config, logger *zap.Logger, db *gorm.DB, rdb *redis.Client) (*Container, error) {
	cipher, err := secret.NewCipherFromBase64Key(cfg.Crypto.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("crypto.secret_key: %w", err)
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Redis:  rdb,

		Cipher:     cipher,
		Queue:      queue.NewQueue(rdb, cfg.Sync.Queue),
		Publisher:  pubsub.NewPublisher(rdb),
		Subscriber: pubsub.NewSubscriber(rdb),
		Limiter:    ratelimit.NewLimiter(rdb),
		Stripe:     stripeapi.NewFactory(cfg.Stripe, logger),

		UserRepo:     repository.NewUserRepository(db),
		PlanRepo:     repository.NewPlanRepository(db),
		CompanyRepo:  repository.NewCompanyRepository(db),
		SnapshotRepo: repository.NewSnapshotRepository(db),
		StateRepo:    repository.NewSyncStateRepository(db),
		RunRepo:      repository.NewSyncRunRepository(db),
	}

	c.Access = service.NewAccessService(c.PlanRepo)
	c.Company = service.NewCompanyService(c.CompanyRepo, cipher, logger)
	c.Sync = service.NewSyncService(
		c.Company,
		c.Access,
		c.StateRepo,
		c.RunRepo,
		c.SnapshotRepo,
		c.Stripe,
		c.Publisher,
		c.Queue,
		cfg,
		logger,
	)
	c.Revenue = service.NewRevenueService(c.Company, c.SnapshotRepo, c.StateRepo, c.RunRepo, cfg)
	c.Users = service.NewUserService(c.UserRepo, c.PlanRepo, c.CompanyRepo)
	c.Connect = service.NewConnectService(
		c.Company,
		oauth.NewStripeConnect(cfg.Stripe.Connect),
		oauth.NewStateStore(rdb),
		logger,
	)

	return c, nil
}

// Close 释放连接
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("close redis", zap.Error(err))
		}
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	_ = c.Logger.Sync()
}
